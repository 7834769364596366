package fixtures

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-ledger/webhook"
)

/* Fixture is one seed record for a webhook store
 * Status defaults to pending; a settled fixture is stamped with processedAt on seeding
 */
type Fixture struct {
	Name         string
	Payload      string
	Source       string
	Status       webhook.Status
	ErrorMessage string
	UserID       string
	Age          time.Duration // How long before the seed time the webhook was received
}

// Validate checks that the fixture would be accepted by the ingestion path
func (f *Fixture) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if !json.Valid([]byte(f.Payload)) {
		return fmt.Errorf("payload of fixture %s is not valid JSON", f.Name)
	}
	if err := f.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status for fixture %s: %w", f.Name, err)
	}
	if f.ErrorMessage != "" && f.Status != webhook.Failed {
		return fmt.Errorf("error_message requires status failed for fixture %s", f.Name)
	}
	if f.Age < 0 {
		return fmt.Errorf("age cannot be negative for fixture %s", f.Name)
	}
	return nil
}

// Webhook builds the record this fixture seeds, received Age before now
func (f *Fixture) Webhook(now time.Time) webhook.Webhook {
	source := f.Source
	if source == "" {
		source = webhook.UnknownSource
	}

	receivedAt := time.UnixMilli(now.Add(-f.Age).UnixMilli())
	wh := webhook.Webhook{
		Payload:      f.Payload,
		Source:       source,
		Status:       f.Status,
		ErrorMessage: f.ErrorMessage,
		UserID:       f.UserID,
		ReceivedAt:   receivedAt,
	}
	if f.Status.IsFinal() {
		processedAt := time.UnixMilli(now.UnixMilli())
		wh.ProcessedAt = &processedAt
	}
	return wh
}
