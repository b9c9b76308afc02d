package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOwnerNotFound means the owner record a solve depends on is missing.
	// It is a configuration problem, not an empty plan.
	ErrOwnerNotFound = errors.New("owner not found")

	ErrInvalidRequest = errors.New("invalid request")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }
