package services

import "errors"

// Sentinel errors the handler layer maps onto HTTP statuses. Services wrap
// them with fmt.Errorf("...: %w", Err...) so callers keep the detail while
// errors.Is still matches.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
