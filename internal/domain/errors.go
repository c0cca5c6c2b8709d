package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("appointment conflict")
	ErrUnsupported = errors.New("operation not supported by registry")
	ErrInvalid     = errors.New("invalid request")
)

// TransportError is a network, timeout or decoding failure talking to the
// registry. For reservations the outcome is ambiguous.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("registry %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError means the registry session token could not be issued.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("registry auth: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RegistryError is a structured failure reported by the registry itself.
// Error returns the registry's description verbatim so it can be shown to
// the patient.
type RegistryError struct {
	Op          string
	Code        string
	Description string
}

func (e *RegistryError) Error() string {
	if e.Description != "" {
		return e.Description
	}
	if e.Code != "" {
		return fmt.Sprintf("registry %s failed with code %s", e.Op, e.Code)
	}
	return fmt.Sprintf("registry %s failed", e.Op)
}

type NotFoundError struct {
	Kind string // patient, profile, appointment, slug
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError carries the booked appointment that blocks a new booking.
type ConflictError struct {
	Existing Appointment
}

func (e *ConflictError) Error() string {
	what := e.Existing.Specialty
	if what == "" {
		what = "appointment"
	}
	when := e.Existing.DateTime
	if !e.Existing.StartsAt.IsZero() {
		when = e.Existing.StartsAt.Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("conflicts with existing %s at %s (id %s)", what, when, e.Existing.ID)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("registry does not support %s", e.Op)
}

func (e *UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupported }

// ValidationError rejects a request before it reaches the registry.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }
