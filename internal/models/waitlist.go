package models

import (
	"time"

	"github.com/google/uuid"
)

// WaitingListEntry is one position in a slot's ordered waiting queue.
// Positions are a dense 1..N sequence per slot; removing an entry renumbers
// everything after it.
type WaitingListEntry struct {
	SlotID          uuid.UUID `json:"slot_id"`
	Presenter       string    `json:"presenter_username"`
	Degree          Degree    `json:"degree"`
	Topic           string    `json:"topic,omitempty"`
	SupervisorName  string    `json:"supervisor_name,omitempty"`
	SupervisorEmail string    `json:"supervisor_email,omitempty"`
	Position        int       `json:"position"`
	AddedAt         time.Time `json:"added_at"`
}
