package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
)

/* Status represents the processing state of a webhook record
 * Follows the lifecycle: Pending -> Processed/Failed
 * Terminal states are terminal only by convention, any transition is accepted
 */
type Status int

const (
	Pending Status = iota + 1
	Processed
	Failed
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Processed:
		return "processed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// NewStatus creates a Status from a string, returning the zero value for unknown input
func NewStatus(str string) Status {
	switch str {
	case "pending":
		return Pending
	case "processed":
		return Processed
	case "failed":
		return Failed
	default:
		return 0
	}
}

// ParseStatus creates a Status from a string and rejects unknown values
func ParseStatus(str string) (Status, error) {
	s := NewStatus(str)
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return s, nil
}

// Validate checks if the status is valid
func (s Status) Validate() error {
	if s < Pending || s > Failed {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, s)
	}
	return nil
}

// IsFinal returns true if the status is a terminal state
func (s Status) IsFinal() bool {
	return s == Processed || s == Failed
}

// MarshalJSON encodes the status as its string form
func (s Status) MarshalJSON() ([]byte, error) {
	buffer := bytes.NewBufferString(`"`)
	buffer.WriteString(s.String())
	buffer.WriteString(`"`)
	return buffer.Bytes(), nil
}

// UnmarshalJSON decodes a status string, rejecting unknown values
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}
	parsed, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
