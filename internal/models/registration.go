package models

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalStatus tracks the supervisor decision on a registration.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalDeclined ApprovalStatus = "DECLINED"
	ApprovalExpired  ApprovalStatus = "EXPIRED"
)

// Registration links a presenter to a slot. The composite key is
// (slot_id, presenter_username); a presenter holds at most one active
// registration across all slots.
type Registration struct {
	SlotID          uuid.UUID      `json:"slot_id"`
	Presenter       string         `json:"presenter_username"`
	Degree          Degree         `json:"degree"`
	Topic           string         `json:"topic"`
	SupervisorName  string         `json:"supervisor_name,omitempty"`
	SupervisorEmail string         `json:"supervisor_email,omitempty"`
	RegisteredAt    time.Time      `json:"registered_at"`
	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	ApprovalToken   *string        `json:"-"`
	TokenExpiresAt  *time.Time     `json:"token_expires_at,omitempty"`
	DecidedAt       *time.Time     `json:"decided_at,omitempty"`
	DeclineReason   *string        `json:"decline_reason,omitempty"`
}

// Active reports whether the registration occupies slot capacity at the
// given instant. Approved registrations always count; pending ones count
// until their approval token expires. Declined and expired registrations
// free their seat.
func (r *Registration) Active(now time.Time) bool {
	switch r.ApprovalStatus {
	case ApprovalApproved:
		return true
	case ApprovalPending:
		return r.TokenExpiresAt == nil || now.Before(*r.TokenExpiresAt)
	default:
		return false
	}
}
