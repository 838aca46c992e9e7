package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a structured domain event recorded on every state transition.
// Events are written to the store's outbox inside the same transaction as
// the transition and drained by the worker, keeping audit concerns out of
// the state-machine code.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	SlotID     uuid.UUID `json:"slot_id,omitempty"`
	Presenter  string    `json:"presenter,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

// Event types emitted by the slot lifecycle services.
const (
	EventSlotRegistered   = "slot.registered"
	EventSlotUnregistered = "slot.unregistered"
	EventSlotFullRejected = "slot.registration_rejected_full"
	EventApprovalIssued   = "approval.issued"
	EventApprovalApproved = "approval.approved"
	EventApprovalDeclined = "approval.declined"
	EventApprovalExpired  = "approval.expired"
	EventWaitlistAdded    = "waitlist.added"
	EventWaitlistRemoved  = "waitlist.removed"
	EventWaitlistPromoted = "waitlist.promoted"
	EventAttendanceOpened = "attendance.opened"
	EventAttendanceClosed = "attendance.closed"
)

// NewEvent stamps a fresh event envelope.
func NewEvent(eventType string, slotID uuid.UUID, presenter string, at time.Time, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: at,
		SlotID:     slotID,
		Presenter:  presenter,
		Payload:    payload,
	}
}
