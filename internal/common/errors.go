// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// ErrInitialization indicates the underlying storage could not be opened
	// or its schema could not be created. All subsequent operations fail
	// until a retry succeeds.
	ErrInitialization = errors.New("storage initialization failed")

	// ErrNotFound indicates a referenced transaction, category or goal id
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates caller-supplied data violates constraints.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateEntry indicates a unique key (typically a category name)
	// is already taken. It is a validation failure.
	ErrDuplicateEntry = fmt.Errorf("%w: duplicate entry", ErrValidation)

	// ErrConsistency indicates the allocation sum invariant could not be
	// restored because no buffer or adjustable capacity exists.
	ErrConsistency = errors.New("budget consistency violated")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}
