package domain

import "errors"

// Builder errors: raised before anything is sent.
var (
	ErrMissingAuthorization = errors.New("missing authorization handle")
	ErrOutOfRange           = errors.New("value out of range")
	ErrInvalidIdentity      = errors.New("invalid asset identity")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotConfigured        = errors.New("contract package not configured")
	ErrNoAccount            = errors.New("no connected account")
)

// Collaborator errors.
var (
	ErrExecutionFailed = errors.New("execution failed")
	ErrQueryFailed     = errors.New("query failed")
	ErrNotFound        = errors.New("not found")
)
