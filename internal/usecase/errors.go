package usecase

import "errors"

// Sentinels returned by the services. Store errors are wrapped as-is so
// callers can still match the repository's own errors.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
