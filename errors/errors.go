package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the session is missing or expired
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNoSession indicates no persisted session exists; login is required
	ErrNoSession = errors.New("not logged in")

	// ErrNotConnected indicates the chat transport is not in the connected state
	ErrNotConnected = errors.New("transport not connected")

	// ErrServiceUnavailable indicates the backend could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if error is an authentication error
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotConnected checks if error is a transport gating error
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
