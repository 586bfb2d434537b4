package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Authenticate for an unknown
	// username or a wrong password.
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// ErrValidation marks input rejected before it reaches storage.
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
