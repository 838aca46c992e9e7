package models

import (
	"time"

	"github.com/google/uuid"
)

// SlotStatus is the denormalized occupancy of a slot. It is always a pure
// function of the active registrations and the capacity (see ComputeSlotStatus)
// and is recomputed on every mutation.
type SlotStatus string

const (
	SlotFree SlotStatus = "FREE"
	SlotSemi SlotStatus = "SEMI"
	SlotFull SlotStatus = "FULL"
)

// Slot is a scheduled seminar unit that hosts one or more presentations.
// The attendance fields describe the currently open check-in session, if any.
type Slot struct {
	ID            uuid.UUID  `json:"id"`
	SemesterLabel string     `json:"semester_label,omitempty"`
	StartsAt      time.Time  `json:"starts_at"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	Building      string     `json:"building,omitempty"`
	Room          string     `json:"room,omitempty"`
	Capacity      int        `json:"capacity"`
	Status        SlotStatus `json:"status"`

	SessionID          *uuid.UUID `json:"session_id,omitempty"`
	AttendanceOpenedAt *time.Time `json:"attendance_opened_at,omitempty"`
	AttendanceClosesAt *time.Time `json:"attendance_closes_at,omitempty"`
	AttendanceOpenedBy *string    `json:"attendance_opened_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClearAttendance drops the open-session reference and window fields.
func (s *Slot) ClearAttendance() {
	s.SessionID = nil
	s.AttendanceOpenedAt = nil
	s.AttendanceClosesAt = nil
	s.AttendanceOpenedBy = nil
}

// ComputeSlotStatus derives the slot status from its active registrations.
// A PhD registrant locks the slot regardless of capacity. Otherwise the slot
// is FULL at capacity, FREE when empty and SEMI in between.
func ComputeSlotStatus(capacity int, regs []Registration, now time.Time) SlotStatus {
	active := 0
	for i := range regs {
		if !regs[i].Active(now) {
			continue
		}
		if regs[i].Degree.Exclusive() {
			return SlotFull
		}
		active++
	}
	switch {
	case active == 0:
		return SlotFree
	case active >= capacity:
		return SlotFull
	default:
		return SlotSemi
	}
}

// ActiveRegistrations filters regs down to those occupying capacity at now.
func ActiveRegistrations(regs []Registration, now time.Time) []Registration {
	out := make([]Registration, 0, len(regs))
	for i := range regs {
		if regs[i].Active(now) {
			out = append(out, regs[i])
		}
	}
	return out
}
