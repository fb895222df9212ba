package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound          = errors.New("resource not found")
	ErrRunNotFound       = fmt.Errorf("%w: run", ErrNotFound)
	ErrCandidateNotFound = fmt.Errorf("%w: candidate", ErrNotFound)
	ErrArtifactNotFound  = fmt.Errorf("%w: artifact", ErrNotFound)

	// Input errors
	ErrMalformedInput   = errors.New("malformed input record")
	ErrEmptyInput       = errors.New("empty input data")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Method dispatch errors
	ErrUnknownMethod = errors.New("unknown method")

	// Report parsing errors
	ErrReportFormat = errors.New("unrecognized report format")

	// Determinism errors
	ErrNonDeterministic = errors.New("non-deterministic result")
	ErrSeedMismatch     = errors.New("seed mismatch")
	ErrHashMismatch     = errors.New("hash mismatch")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewMalformedInputError(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedInput, reason)
}

func NewEmptyInputError(operation string) error {
	return fmt.Errorf("%w: %s requires at least one value", ErrEmptyInput, operation)
}

func NewUnknownMethodError(operation string, method string) error {
	return fmt.Errorf("%w: %s does not support %q", ErrUnknownMethod, operation, method)
}

func NewReportFormatError(reason string) error {
	return fmt.Errorf("%w: %s", ErrReportFormat, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsMalformedInputError(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

func IsEmptyInputError(err error) bool {
	return errors.Is(err, ErrEmptyInput)
}

func IsUnknownMethodError(err error) bool {
	return errors.Is(err, ErrUnknownMethod)
}

func IsReportFormatError(err error) bool {
	return errors.Is(err, ErrReportFormat)
}

func IsDeterminismError(err error) bool {
	return errors.Is(err, ErrNonDeterministic) ||
		errors.Is(err, ErrSeedMismatch) ||
		errors.Is(err, ErrHashMismatch)
}
