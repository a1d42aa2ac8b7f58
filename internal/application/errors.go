package application

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a resource with the same identity is already stored.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConcurrentModification is returned when the schedule state changed
	// between read and conditional write. Callers must redo the whole cycle.
	ErrConcurrentModification = errors.New("application: concurrent modification")
	// ErrNoValidSlot is returned when every strategy exhausted its budget.
	ErrNoValidSlot = errors.New("application: no valid slot")
	// ErrConfiguration is returned when a stored profile cannot be scheduled against.
	ErrConfiguration = errors.New("application: configuration error")
	// ErrPersistenceUnavailable is returned when the store failed for reasons
	// other than a missing record or a version conflict.
	ErrPersistenceUnavailable = errors.New("application: persistence unavailable")
)

// NoValidSlotError carries the search diagnostics of an exhausted proposal.
type NoValidSlotError struct {
	Attempts    int
	Constraints []string
}

// Error implements the error interface.
func (e *NoValidSlotError) Error() string {
	if len(e.Constraints) == 0 {
		return fmt.Sprintf("no valid slot after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("no valid slot after %d attempts: %s", e.Attempts, strings.Join(e.Constraints, ", "))
}

// Is reports whether target is ErrNoValidSlot.
func (e *NoValidSlotError) Is(target error) bool {
	return target == ErrNoValidSlot
}

// ConfigurationError reports which profile field prevents scheduling.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration of %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a store failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Is reports whether target is ErrPersistenceUnavailable.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceUnavailable
}

// Unwrap returns the underlying cause.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
