package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller's identity cannot be established.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a task or user does not exist for the caller.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when registering an email that is already in use.
	ErrEmailTaken = errors.New("email already in use")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError reports malformed input. Nothing has been written when
// it is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StoreError wraps a persistence failure. A reconciliation that fails with
// a StoreError has not been applied and can be retried unchanged.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
