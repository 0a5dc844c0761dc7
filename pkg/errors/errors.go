package chaterrors

import "errors"

// Common errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrRateLimited        = errors.New("rate limited")
	ErrDependency         = errors.New("dependency unavailable")
	ErrServiceUnavailable = errors.New("service unavailable")
)
