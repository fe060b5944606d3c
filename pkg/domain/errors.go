package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation.
type ErrorKind string

// Error kinds surfaced by the entity service.
const (
	// KindNotFound indicates the requested entity id does not resolve.
	KindNotFound ErrorKind = "not_found"
	// KindIntegrityViolation indicates the mutation would break a
	// structural invariant; the Reason names which one.
	KindIntegrityViolation ErrorKind = "integrity_violation"
	// KindInvalidInput indicates caller-supplied data could not be parsed.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindStorage indicates the persistence gateway failed.
	KindStorage ErrorKind = "storage"
)

// Reason names the specific guard that rejected a mutation.
type Reason string

// Integrity denial and input reasons.
const (
	ReasonHasChildLocations Reason = "has_child_locations"
	ReasonContainsAssets    Reason = "contains_assets"
	ReasonHasAssignedAssets Reason = "has_assigned_assets"
	ReasonParentNotFound    Reason = "parent_not_found"
	ReasonLocationCycle     Reason = "location_cycle"
	ReasonInvalidDate       Reason = "invalid_date"
)

// Error is the tagged error type carried through the core. The kind and
// reason stay intact internally so callers and tests can branch on them;
// only the outermost boundary renders the display string.
type Error struct {
	Kind    ErrorKind
	Reason  Reason
	Entity  EntityType
	ID      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
	case KindStorage:
		if e.Err != nil {
			return fmt.Sprintf("storage: %v", e.Err)
		}
		return "storage failure"
	default:
		return string(e.Kind)
	}
}

// Unwrap exposes the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a not-found error for the given entity and id.
func NotFound(entity EntityType, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

// IntegrityViolation builds a guard-denial error.
func IntegrityViolation(reason Reason, entity EntityType, id, message string) *Error {
	return &Error{Kind: KindIntegrityViolation, Reason: reason, Entity: entity, ID: id, Message: message}
}

// InvalidInput builds an input validation error.
func InvalidInput(reason Reason, message string) *Error {
	return &Error{Kind: KindInvalidInput, Reason: reason, Message: message}
}

// StorageFailure wraps a persistence gateway error.
func StorageFailure(err error) *Error {
	return &Error{Kind: KindStorage, Err: err}
}

// KindOf extracts the error kind, or empty string for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf extracts the denial reason, or empty string when absent.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
