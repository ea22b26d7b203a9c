package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation marks missing or malformed user input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks an email that already has a completed submission.
	ErrConflict = errors.New("email already used for quiz")
	// ErrRateLimited marks a client identity that exceeded the attempt cap.
	ErrRateLimited = errors.New("too many requests")
	// ErrUnauthorized marks a missing or invalid admin credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStorageUnavailable marks a backend failure. Callers must not expose the cause.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrNotFound marks a missing submission, session, or admin account.
	ErrNotFound = errors.New("not found")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for a missing field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// RateLimitError carries the reset hint for a denied attempt.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
}

func (e *RateLimitError) Error() string {
	return "Too many requests. Please try again later."
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// StorageError wraps a backend failure while matching ErrStorageUnavailable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

// WrapStorage tags err as a storage failure for op. Nil stays nil.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var already *StorageError
	if errors.As(err, &already) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
