// Package errors consolidates error definitions for the salesgrid pipeline.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities and constructors
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Connection errors - fatal, abort the run after cleanup
	ErrConnection       = errors.New("store connection failed")
	ErrConnectionClosed = errors.New("store connection closed")

	// Schema errors - fatal unless the table is already usable
	ErrSchema = errors.New("schema provisioning failed")

	// Key errors - skip the offending record, continue
	ErrInvalidKey = errors.New("invalid row key")

	// Serialization errors - skip the record or field, continue
	ErrSerialization = errors.New("serialization failed")

	// Not found - reported as an empty result, not a fault
	ErrNotFound = errors.New("row not found")

	// Validation errors
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidPredicate = errors.New("invalid scan predicate")
	ErrMissingField     = errors.New("missing required field")

	// Scan errors
	ErrScanClosed = errors.New("scan already closed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFatal returns true if err must abort the run.
// Connection and schema errors are fatal; everything else is recorded
// per record or per batch and the run continues.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConnection) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrSchema)
}

// IsSkippable returns true if err only affects a single record and the
// record can be skipped without aborting ingestion.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrSerialization)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidPredicate) ||
		errors.Is(err, ErrMissingField)
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

// NewConnection creates a connection error with the failing endpoint.
func NewConnection(endpoint string, cause error) error {
	return fmt.Errorf("connect to '%s': %v: %w", endpoint, cause, ErrConnection)
}

// NewSchema creates a schema error for a table operation.
func NewSchema(table, op string, cause error) error {
	return fmt.Errorf("%s table '%s': %v: %w", op, table, cause, ErrSchema)
}

// NewInvalidKey creates an invalid key error with the offending component.
func NewInvalidKey(component, reason string) error {
	return fmt.Errorf("key component '%s': %s: %w", component, reason, ErrInvalidKey)
}

// NewSerialization creates a serialization error for a field.
func NewSerialization(field, reason string) error {
	return fmt.Errorf("field '%s': %s: %w", field, reason, ErrSerialization)
}

// NewNotFound creates a not-found error with the row key.
func NewNotFound(key string) error {
	return fmt.Errorf("row '%s': %w", key, ErrNotFound)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}
