package webhook

import "errors"

var (
	ErrNotFound         = errors.New("webhook not found")
	ErrAlreadyExists    = errors.New("webhook already exists")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidPayload   = errors.New("invalid JSON payload")
)
