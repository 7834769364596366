package number

import "errors"

var (
	ErrNotFound         = errors.New("number not found")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotAuthorized    = errors.New("not authorized")
)
