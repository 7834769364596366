package webhook

import "context"

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// Reader provides read operations for webhooks
type Reader interface {
	/* Get returns ErrNotFound when no record has the id */
	Get(ctx context.Context, id string) (Webhook, error)
	/* Scan returns every record whose index key equals key
	 * ByReceivedAt ignores key and returns the whole table ordered by receivedAt ascending
	 */
	Scan(ctx context.Context, index Index, key string) ([]Webhook, error)
}

// Writer provides write operations for webhooks
type Writer interface {
	/* Insert stores a new record, assigning its id when empty
	 * Returns the record id and any error
	 */
	Insert(ctx context.Context, webhook Webhook) (string, error)
	/* Patch updates the given fields of one record atomically
	 * Returns ErrNotFound when no record has the id
	 */
	Patch(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}
