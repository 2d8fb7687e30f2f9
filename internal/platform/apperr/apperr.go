package apperr

import "errors"

var (
	// ErrNotFound is the sentinel for missing-id lookups.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is the sentinel for malformed request input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnavailable is the sentinel for an unreachable backing service.
	ErrUnavailable = errors.New("unavailable")
)
