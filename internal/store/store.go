// Package store defines the persistence contract for slots, registrations,
// waiting lists and check-in sessions, plus the transactional guarantee the
// lifecycle services rely on: every read-modify-write against a slot runs
// serialized per slot, so concurrent registrations can never both observe
// spare capacity.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

// ErrNotFound is returned by Get-style methods when no row matches.
var ErrNotFound = errors.New("store: not found")

// errDuplicate signals a unique-key violation in the in-memory store. The
// Postgres store surfaces the driver's constraint error instead.
var errDuplicate = errors.New("store: duplicate key")

// Store opens atomic units of work and offers plain reads for queries that
// do not mutate state.
type Store interface {
	// WithTx runs fn as one atomic unit. Locking the affected slot row
	// (SlotRepo.GetForUpdate) inside fn serializes all mutations per slot.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Read returns repositories for non-transactional reads.
	Read() Tx
}

// Tx groups the repositories of one unit of work.
type Tx interface {
	Slots() SlotRepo
	Registrations() RegistrationRepo
	WaitingList() WaitingListRepo
	Sessions() SessionRepo
	Outbox() OutboxRepo
}

// SlotRepo persists seminar slots.
type SlotRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Slot, error)
	// GetForUpdate locks the slot row for the remainder of the transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Slot, error)
	ListFrom(ctx context.Context, from time.Time) ([]models.Slot, error)
	Create(ctx context.Context, slot *models.Slot) error
	Update(ctx context.Context, slot *models.Slot) error
}

// RegistrationRepo persists slot registrations keyed by (slot, presenter).
type RegistrationRepo interface {
	Get(ctx context.Context, slotID uuid.UUID, presenter string) (*models.Registration, error)
	GetByToken(ctx context.Context, token string) (*models.Registration, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]models.Registration, error)
	ListByPresenter(ctx context.Context, presenter string) ([]models.Registration, error)
	Create(ctx context.Context, reg *models.Registration) error
	Update(ctx context.Context, reg *models.Registration) error
	Delete(ctx context.Context, slotID uuid.UUID, presenter string) error
}

// WaitingListRepo persists per-slot ordered waiting queues.
type WaitingListRepo interface {
	Get(ctx context.Context, slotID uuid.UUID, presenter string) (*models.WaitingListEntry, error)
	FindByPresenter(ctx context.Context, presenter string) (*models.WaitingListEntry, error)
	ListBySlot(ctx context.Context, slotID uuid.UUID) ([]models.WaitingListEntry, error)
	Count(ctx context.Context, slotID uuid.UUID) (int, error)
	Add(ctx context.Context, entry *models.WaitingListEntry) error
	Remove(ctx context.Context, slotID uuid.UUID, presenter string) error
	// DecrementPositionsAfter shifts every entry with a strictly greater
	// position down by one, keeping the 1..N sequence dense.
	DecrementPositionsAfter(ctx context.Context, slotID uuid.UUID, position int) error
}

// SessionRepo persists check-in sessions.
type SessionRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.CheckinSession, error)
	FindOpenBySlot(ctx context.Context, slotID uuid.UUID) (*models.CheckinSession, error)
	Create(ctx context.Context, sess *models.CheckinSession) error
	Update(ctx context.Context, sess *models.CheckinSession) error
}

// OutboxRepo records domain events inside the surrounding transaction.
type OutboxRepo interface {
	Insert(ctx context.Context, event domain.Event) error
}
