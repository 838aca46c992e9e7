package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailLogStatus tracks delivery of one outbound email.
type EmailLogStatus string

const (
	EmailQueued EmailLogStatus = "queued"
	EmailSent   EmailLogStatus = "sent"
	EmailFailed EmailLogStatus = "failed"
)

// EmailLog is the delivery record the worker writes for every email job.
type EmailLog struct {
	ID             uuid.UUID      `json:"id"`
	SlotID         *uuid.UUID     `json:"slot_id,omitempty"`
	Presenter      *string        `json:"presenter_username,omitempty"`
	EmailType      string         `json:"email_type"`
	RecipientEmail string         `json:"recipient_email"`
	Subject        string         `json:"subject"`
	Status         EmailLogStatus `json:"status"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
