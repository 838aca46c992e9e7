// Package domain holds the contracts shared by the slot lifecycle services:
// the error taxonomy, the clock, the notifier and the event sink.
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a recoverable domain failure. Every kind maps to a stable
// machine-readable code the request layer can translate for users.
type Kind string

const (
	KindMissingIdentity      Kind = "MISSING_IDENTITY"
	KindAlreadyInSlot        Kind = "ALREADY_IN_SLOT"
	KindRegisteredElsewhere  Kind = "ALREADY_REGISTERED_ELSEWHERE"
	KindSlotLocked           Kind = "SLOT_LOCKED"
	KindExclusiveBlocked     Kind = "EXCLUSIVE_BLOCKED"
	KindSlotFull             Kind = "SLOT_FULL"
	KindNotRegistered        Kind = "NOT_REGISTERED"
	KindSlotNotFound         Kind = "SLOT_NOT_FOUND"
	KindTokenNotFound        Kind = "TOKEN_NOT_FOUND"
	KindTokenMismatch        Kind = "TOKEN_MISMATCH"
	KindTokenExpired         Kind = "TOKEN_EXPIRED"
	KindNotPending           Kind = "NOT_PENDING"
	KindNoSchedule           Kind = "NO_SCHEDULE"
	KindTooEarly             Kind = "TOO_EARLY"
	KindTooLate              Kind = "TOO_LATE"
	KindInProgress           Kind = "IN_PROGRESS"
	KindNotOnWaitingList     Kind = "NOT_ON_WAITING_LIST"
	KindAlreadyOnWaitingList Kind = "ALREADY_ON_WAITING_LIST"
)

// Error is a recoverable domain failure with enough context to render a
// user-facing message: the slot, the presenter and, for time-window failures,
// the exact boundary timestamp. Infrastructure failures are never wrapped in
// an Error; they propagate as opaque errors.
type Error struct {
	Kind      Kind
	SlotID    uuid.UUID
	Presenter string
	Boundary  *time.Time
	Message   string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// E builds a domain error for a slot-scoped failure.
func E(kind Kind, slotID uuid.UUID, presenter, msg string) *Error {
	return &Error{Kind: kind, SlotID: slotID, Presenter: presenter, Message: msg}
}

// EAt builds a time-window failure carrying the boundary that was violated.
func EAt(kind Kind, slotID uuid.UUID, presenter string, boundary time.Time, msg string) *Error {
	return &Error{Kind: kind, SlotID: slotID, Presenter: presenter, Boundary: &boundary, Message: msg}
}

// KindOf extracts the kind from err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// Boundary returns the window boundary attached to err, if any.
func Boundary(err error) (time.Time, bool) {
	var de *Error
	if errors.As(err, &de) && de.Boundary != nil {
		return *de.Boundary, true
	}
	return time.Time{}, false
}

// Errorf formats a message into a domain error.
func Errorf(kind Kind, slotID uuid.UUID, presenter, format string, args ...any) *Error {
	return E(kind, slotID, presenter, fmt.Sprintf(format, args...))
}
