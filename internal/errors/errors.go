// Package errors provides the sentinel errors shared by telemetryd packages.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
// - A collector for configuration validation errors

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Query errors
	ErrNotFound = errors.New("not found")
	ErrNoData   = errors.New("no data")

	// Ingest errors
	ErrMalformedReport   = errors.New("malformed report")
	ErrReportTooLarge    = errors.New("report exceeds maximum size")
	ErrEmptyReport       = errors.New("empty report")
	ErrPeerBlocked       = errors.New("peer blocked")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidAnnounce   = errors.New("invalid announcement")
	ErrNoBroadcastSource = errors.New("no broadcast-capable local address")

	// Persistence errors
	ErrPersist       = errors.New("persist mirror")
	ErrCorruptMirror = errors.New("corrupt mirror file")

	// Validation errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")

	// Network errors
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsNoData returns true if an aggregate had nothing to aggregate.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

// IsMalformed returns true if err describes a report that could not be decoded.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedReport) ||
		errors.Is(err, ErrReportTooLarge) ||
		errors.Is(err, ErrEmptyReport)
}

// IsPersist returns true if err came from writing or reading the mirror file.
func IsPersist(err error) bool {
	return errors.Is(err, ErrPersist) ||
		errors.Is(err, ErrCorruptMirror)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrInvalidQuantity)
}

// IsTransient returns true if the error only affects the request it came from.
// Transient errors are logged and dropped; they never stop a server loop.
func IsTransient(err error) bool {
	return IsMalformed(err) ||
		errors.Is(err, ErrPeerBlocked) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewMalformed creates a malformed-report error with a reason.
func NewMalformed(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrMalformedReport)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
