package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a check-in session.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

// CheckinSession is the time-windowed record students scan against. It is
// owned by exactly one slot and materialized lazily the first time attendance
// is opened; a slot never references more than one OPEN session.
type CheckinSession struct {
	ID        uuid.UUID     `json:"id"`
	SlotID    uuid.UUID     `json:"slot_id"`
	OpenedBy  string        `json:"opened_by"`
	StartsAt  time.Time     `json:"starts_at"`
	EndsAt    *time.Time    `json:"ends_at,omitempty"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}
