// Package errors provides centralized error definitions and error handling
// utilities for the LOGIA hub. It defines domain-specific sentinel errors,
// semantic error types, and classification helpers.
//
// # Error Types
//
// Sentinel errors cover the three subsystems that surface errors to callers:
//   - Protocol errors: malformed, unsupported, or unknown wire messages
//   - Registry errors: registration and heartbeat failures
//   - Case errors: disruption case lookup and lifecycle failures
//
// Semantic errors represent common conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrDuplicateAgent) { ... }
//
//	var vErr *errors.ValidationError
//	if errors.As(err, &vErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Protocol-related sentinel errors
var (
	// ErrMalformedMessage indicates a message with missing or mistyped fields.
	ErrMalformedMessage = New("malformed message")
	// ErrUnsupportedVersion indicates a message with a protocol version newer than supported.
	ErrUnsupportedVersion = New("unsupported protocol version")
	// ErrUnknownMessageType indicates a message whose type is not part of the protocol.
	ErrUnknownMessageType = New("unknown message type")
	// ErrChannelClosed indicates a send on a closed agent channel.
	ErrChannelClosed = New("agent channel closed")
)

// Registry-related sentinel errors
var (
	// ErrDuplicateAgent indicates a registration for a name that is already connected.
	ErrDuplicateAgent = New("agent already registered")
	// ErrUnknownRegistration indicates a heartbeat with a stale or unrecognized registration ID.
	ErrUnknownRegistration = New("unknown registration")
)

// Case-related sentinel errors
var (
	// ErrInvalidEvent indicates a disruption event missing required fields.
	ErrInvalidEvent = New("invalid disruption event")
	// ErrCaseNotFound indicates a disruption case that could not be found.
	ErrCaseNotFound = New("case not found")
	// ErrCaseClosed indicates an operation on a case that has already been closed.
	ErrCaseClosed = New("case is closed")
	// ErrInvalidTransition indicates a state transition the workflow does not permit.
	// This is programming-fault class: it is reported, never silently corrected.
	ErrInvalidTransition = New("invalid state transition")
	// ErrDecisionAlreadySet indicates a second decision for a case that has one.
	// This is programming-fault class: it is reported, never silently corrected.
	ErrDecisionAlreadySet = New("decision already set")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrHubStopped indicates an operation on a hub that is not running.
	ErrHubStopped = New("hub is not running")
)

// NotFoundError indicates that a named resource could not be found.
type NotFoundError struct {
	// Resource is the kind of resource, e.g. "case", "agent".
	Resource string
	// ID identifies the specific resource that was looked up.
	ID string
}

// NewNotFoundError creates a NotFoundError for the given resource and ID.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// Is reports whether target matches the corresponding sentinel.
func (e *NotFoundError) Is(target error) bool {
	switch e.Resource {
	case "case":
		return target == ErrCaseNotFound
	case "registration":
		return target == ErrUnknownRegistration
	}
	return false
}

// ValidationError indicates that input validation failed.
type ValidationError struct {
	// Field is the field that failed validation.
	Field string
	// Reason describes why validation failed.
	Reason string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// TimeoutError indicates that an operation exceeded its deadline.
type TimeoutError struct {
	// Operation describes what timed out.
	Operation string
	// Duration is how long the operation waited before giving up.
	Duration time.Duration
}

// NewTimeoutError creates a TimeoutError for the given operation.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{Operation: operation, Duration: duration}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Duration)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsRetryable reports whether the error is transient and the operation may
// succeed on retry. Timeouts and channel sends to unresponsive agents are
// retryable; protocol and invariant violations are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var tErr *TimeoutError
	if As(err, &tErr) {
		return true
	}
	return Is(err, ErrTimeout) || Is(err, ErrChannelClosed)
}

// IsInvariantViolation reports whether the error indicates a programming
// fault rather than a runtime condition. Invariant violations must be
// surfaced loudly and never silently corrected.
func IsInvariantViolation(err error) bool {
	return Is(err, ErrInvalidTransition) || Is(err, ErrDecisionAlreadySet)
}

// IsUserFacing reports whether the error is safe to return to external
// callers of the intake and decision interfaces.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var nfErr *NotFoundError
	var vErr *ValidationError
	if As(err, &nfErr) || As(err, &vErr) {
		return true
	}
	return Is(err, ErrInvalidEvent) || Is(err, ErrCaseNotFound) ||
		Is(err, ErrCaseClosed) || Is(err, ErrDuplicateAgent) ||
		Is(err, ErrUnknownRegistration)
}
