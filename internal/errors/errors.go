// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrNotFitted indicates a model component was used before training.
	ErrNotFitted = errors.New("model not fitted")

	// ErrEmptyTrainingSet indicates fitting was attempted with no samples.
	ErrEmptyTrainingSet = errors.New("empty training set")

	// ErrModelMismatch indicates loaded artifacts do not match the expected
	// dataset fingerprint.
	ErrModelMismatch = errors.New("model artifacts do not match dataset")

	// ErrUnknownIntent indicates the classifier produced a tag with no
	// registered responses.
	ErrUnknownIntent = errors.New("unknown intent")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrContextCanceled indicates context was canceled.
	ErrContextCanceled = errors.New("context canceled")

	// ErrNoSpeech indicates no usable speech was captured from the
	// microphone before the listen window closed.
	ErrNoSpeech = errors.New("no speech detected")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNotFitted reports whether err wraps ErrNotFitted.
func IsNotFitted(err error) bool {
	return errors.Is(err, ErrNotFitted)
}

// IsModelMismatch reports whether err wraps ErrModelMismatch.
func IsModelMismatch(err error) bool {
	return errors.Is(err, ErrModelMismatch)
}

// IsRateLimitExceeded reports whether err wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsInvalidInput reports whether err wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTimeout reports whether err wraps ErrTimeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// DatasetError represents dataset loading or validation failures with context.
type DatasetError struct {
	Path string
	Err  error
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("dataset error (path=%s): %v", e.Path, e.Err)
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

// NewDatasetError creates a new dataset error.
func NewDatasetError(path string, err error) *DatasetError {
	return &DatasetError{
		Path: path,
		Err:  err,
	}
}
