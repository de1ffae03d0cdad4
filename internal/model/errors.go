package model

import (
	"errors"
	"fmt"
)

// ErrValidation is the sentinel every ValidationError unwraps to.
var ErrValidation = errors.New("validation failed")

// ValidationError describes a single violated invariant on a value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets callers test with errors.Is(err, ErrValidation).
func (e ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return ValidationError{Field: field, Reason: reason}
}
