package domain

import "errors"

// Error taxonomy shared by the core and the transport layer. Services wrap
// these with fmt.Errorf("...: %w") so the HTTP error handler can map them
// with errors.Is while still rendering a specific message.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("account already exists")
	ErrAccountNotFound = errors.New("user not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInternal        = errors.New("internal error")
)
