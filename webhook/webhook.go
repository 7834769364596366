package webhook

import "time"

/* Webhook represents a received webhook record in the system
 * Uses value semantics as it represents data, not behavior
 * Empty ErrorMessage and UserID mean the field is absent
 */
type Webhook struct {
	ID           string
	Payload      string
	Source       string
	Status       Status
	ErrorMessage string
	UserID       string
	ReceivedAt   time.Time
	ProcessedAt  *time.Time
}

// UnknownSource is the source tag used when the sender does not declare one
const UnknownSource = "unknown"

// Stats holds record counts grouped by status
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Add counts a single record
func (s *Stats) Add(status Status) {
	s.Total++
	switch status {
	case Pending:
		s.Pending++
	case Processed:
		s.Processed++
	case Failed:
		s.Failed++
	}
}
