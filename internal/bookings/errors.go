package bookings

import (
	"errors"
	"fmt"
	"strings"
)

// Kind sentinels. Every typed error below matches exactly one of them via
// errors.Is so callers can branch without type switches.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// Repository sentinels, translated into the kinds above by the Service.
var (
	ErrBookingNotFound = errors.New("bookings: booking not found")
	ErrSlotNotFound    = errors.New("bookings: time slot not found")
	ErrSlotTaken       = errors.New("bookings: time slot already taken")
	ErrStaleStatus     = errors.New("bookings: booking status changed concurrently")
)

// MsgSlotUnavailable is the conflict message for an occupied interval.
const MsgSlotUnavailable = "time slot is not available"

// ValidationError names the offending request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError names the resource kind and the ids that did not resolve.
type NotFoundError struct {
	Resource string   `json:"resource"`
	IDs      []string `json:"ids,omitempty"`
}

func (e *NotFoundError) Error() string {
	if len(e.IDs) == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, strings.Join(e.IDs, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ConflictError struct {
	Message string `json:"message"`
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type ForbiddenError struct {
	Message string `json:"message"`
}

func (e *ForbiddenError) Error() string { return e.Message }

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func notFound(resource string, ids ...string) error {
	return &NotFoundError{Resource: resource, IDs: ids}
}

func forbidden(format string, args ...any) error {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
