// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyCompleted = errors.New("already completed")

	// Concurrency errors
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
	ErrLockNotAcquired  = errors.New("per-key lock not acquired")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "achievement", "leaderboard"
	Op      string // Operation that failed, e.g., "RecordAction", "Evaluate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrProgressNotFound    = NewDomainError("progress", "Find", ErrNotFound, "progress record not found")
	ErrNegativeIncrement   = NewDomainError("progress", "RecordAction", ErrNegativeValue, "increment cannot be negative")
	ErrInvalidAction       = NewDomainError("progress", "Validate", ErrInvalidInput, "action is required")
	ErrInvalidModule       = NewDomainError("progress", "Validate", ErrInvalidInput, "module is required")
	ErrProgressLockTimeout = NewDomainError("progress", "RecordAction", ErrConcurrentUpdate, "could not serialize progress update")
)

// Achievement domain errors
var (
	ErrAchievementNotFound  = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrUnknownCriteriaKind  = NewDomainError("achievement", "Validate", ErrInvalidInput, "unknown criteria kind")
	ErrInvalidThreshold     = NewDomainError("achievement", "Validate", ErrValueOutOfRange, "threshold must be positive")
	ErrNegativePoints       = NewDomainError("achievement", "Validate", ErrNegativeValue, "points cannot be negative")
	ErrCompletionRegression = NewDomainError("achievement", "Complete", ErrStateTransition, "completed achievement cannot regress")
	ErrEvaluationConflict   = NewDomainError("achievement", "Evaluate", ErrConcurrentUpdate, "could not serialize achievement evaluation")
)

// Leaderboard domain errors
var (
	ErrInvalidLimit  = NewDomainError("leaderboard", "Validate", ErrValueOutOfRange, "limit must be positive")
	ErrUserNotRanked = NewDomainError("leaderboard", "FindRank", ErrNotFound, "user has no completed achievements")
)

// Stats domain errors
var (
	ErrEventHistoryUnavailable = NewDomainError("stats", "SumValues", ErrServiceUnavailable, "event history source unavailable")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsConflict checks if the error is a concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrLockNotAcquired)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentUpdate) ||
		errors.Is(err, ErrLockNotAcquired)
}
