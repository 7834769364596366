package number

import "time"

/* No tags: Number represents the business record, the HTTP layer owns its wire shape.
 * Value semantics: it represents data, not an API.
 */
type Number struct {
	ID        string
	Value     float64
	UserID    string
	CreatedAt time.Time
}
