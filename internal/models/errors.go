package models

import (
	"errors"
	"fmt"
)

// Custom errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrInvalidID    = errors.New("invalid ID format")
)

// ValidationError represents a payload or input validation failure.
// It fails the affected record only; siblings proceed.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError creates a validation error with a stable code
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// IsValidationError reports whether err is a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ContractViolationError is raised when the odds provider's response shape
// degrades past the normalization survival threshold. The affected sport's
// ingest is aborted with no partial writes.
type ContractViolationError struct {
	Sport           string
	RawCount        int
	NormalizedCount int
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("contract violation for %s: normalized %d of %d raw games (below 60%% survival)",
		e.Sport, e.NormalizedCount, e.RawCount)
}

// IsContractViolation reports whether err is a ContractViolationError
func IsContractViolation(err error) bool {
	var cv *ContractViolationError
	return errors.As(err, &cv)
}
