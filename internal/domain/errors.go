package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrDuplicate       = errors.New("duplicate")
	ErrNotRetryable    = errors.New("job is not in error state")
	ErrAlreadyRunning  = errors.New("job pipeline already running")
	ErrProviderFailure = errors.New("provider failure")
)
