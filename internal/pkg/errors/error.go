package xerrors

import "errors"

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrRateLimited    = errors.New("too many requests")
	ErrSessionExpired = errors.New("session expired or invalid")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrMissingConfig  = errors.New("missing required configuration")
)
