// Package domain holds the error taxonomy shared by the booking core and its adapters.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrCapacityExceeded   = errors.New("capacity exceeded")
	ErrUnavailable        = errors.New("room unavailable")
	ErrNotFound           = errors.New("not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrStorage            = errors.New("storage error")
)

// ValidationError collects per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a message for field. The first message per field wins.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil returns e if it carries any field errors, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// AvailabilityError rejects a booking request for the listed dates.
// Kind is ErrCapacityExceeded or ErrUnavailable.
type AvailabilityError struct {
	Kind       error
	RoomTypeID int64
	Dates      []time.Time
	Reason     string
}

func (e *AvailabilityError) Error() string {
	dates := make([]string, 0, len(e.Dates))
	for _, d := range e.Dates {
		dates = append(dates, d.Format("2006-01-02"))
	}
	msg := fmt.Sprintf("%v for room type %d", e.Kind, e.RoomTypeID)
	if len(dates) > 0 {
		msg += " on " + strings.Join(dates, ", ")
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *AvailabilityError) Is(target error) bool { return target == e.Kind }

// PreconditionError is returned when a transition is requested from the wrong state.
type PreconditionError struct {
	Action   string
	Current  string
	Required []string
}

func (e *PreconditionError) Error() string {
	if len(e.Required) == 0 {
		return fmt.Sprintf("cannot %s booking in status %q", e.Action, e.Current)
	}
	return fmt.Sprintf("cannot %s booking in status %q: requires %s",
		e.Action, e.Current, strings.Join(e.Required, " or "))
}

func (e *PreconditionError) Is(target error) bool { return target == ErrPreconditionFailed }

// StorageError wraps a persistence failure. The operation is presumed not applied.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err unless it is nil or already a domain error.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Temporary marks storage failures as safe to retry.
func (e *StorageError) Temporary() bool { return true }

// IsDomainError reports whether err already belongs to the taxonomy.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrCapacityExceeded, ErrUnavailable,
		ErrNotFound, ErrPreconditionFailed, ErrStorage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
