package webhook

import "time"

// Patch is a partial update; nil fields are left untouched
type Patch struct {
	Status       *Status
	ErrorMessage *string
	ProcessedAt  *time.Time
}

// Apply returns a copy of wh with the patch fields written over it
func (p Patch) Apply(wh Webhook) Webhook {
	if p.Status != nil {
		wh.Status = *p.Status
	}
	if p.ErrorMessage != nil {
		wh.ErrorMessage = *p.ErrorMessage
	}
	if p.ProcessedAt != nil {
		t := *p.ProcessedAt
		wh.ProcessedAt = &t
	}
	return wh
}
