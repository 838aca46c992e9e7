// Package waitlist manages the per-slot ordered queue of presenters waiting
// for capacity. Positions form a dense 1..N sequence per slot; every removal
// renumbers the entries behind it under the same per-slot serialization as
// registration changes.
package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/internal/presenters"
	"github.com/benariet/SemScan-Project-sub001/internal/store"
)

// AddInput carries the registration details kept on the waiting entry so a
// later promotion can turn it into a real registration.
type AddInput struct {
	Topic           string
	SupervisorName  string
	SupervisorEmail string
}

// Service exposes the waiting-list operations.
type Service struct {
	store    store.Store
	resolver presenters.Resolver
	notifier domain.Notifier
	clock    domain.Clock
	logger   *zap.Logger
}

// NewService creates the waiting-list service.
func NewService(st store.Store, resolver presenters.Resolver, notifier domain.Notifier, clock domain.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	return &Service{store: st, resolver: resolver, notifier: notifier, clock: clock, logger: logger}
}

// Add appends the presenter to the slot's waiting list at position count+1.
// A presenter may wait on at most one slot and may not wait on a slot they
// already registered for.
func (s *Service) Add(ctx context.Context, handle string, slotID uuid.UUID, input AddInput) (*models.WaitingListEntry, error) {
	presenter, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var entry *models.WaitingListEntry
	var derr error
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Slots().GetForUpdate(ctx, slotID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindSlotNotFound, slotID, presenter.Username, "slot not found")
				return nil
			}
			return err
		}

		if _, err := tx.Registrations().Get(ctx, slotID, presenter.Username); err == nil {
			derr = domain.E(domain.KindAlreadyInSlot, slotID, presenter.Username,
				"presenter already holds a registration for this slot")
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if existing, err := tx.WaitingList().FindByPresenter(ctx, presenter.Username); err == nil {
			msg := "already on this slot's waiting list"
			if existing.SlotID != slotID {
				msg = "presenter may wait on only one slot at a time"
			}
			derr = domain.E(domain.KindAlreadyOnWaitingList, existing.SlotID, presenter.Username, msg)
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		count, err := tx.WaitingList().Count(ctx, slotID)
		if err != nil {
			return err
		}
		supName, supEmail := input.SupervisorName, input.SupervisorEmail
		if supEmail == "" && presenter.SupervisorEmail != nil {
			supEmail = *presenter.SupervisorEmail
			if presenter.SupervisorName != nil {
				supName = *presenter.SupervisorName
			}
		}
		entry = &models.WaitingListEntry{
			SlotID:          slotID,
			Presenter:       presenter.Username,
			Degree:          presenter.Degree,
			Topic:           input.Topic,
			SupervisorName:  supName,
			SupervisorEmail: supEmail,
			Position:        count + 1,
			AddedAt:         now,
		}
		if err := tx.WaitingList().Add(ctx, entry); err != nil {
			return err
		}
		return tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventWaitlistAdded, slotID, presenter.Username, now, map[string]any{
			"position": entry.Position,
		}))
	})
	if err != nil {
		return nil, err
	}
	if derr != nil {
		return nil, derr
	}

	s.logger.Info("waiting list add",
		zap.String("slot_id", slotID.String()),
		zap.String("presenter", presenter.Username),
		zap.Int("position", entry.Position))
	return entry, nil
}

// Remove withdraws the presenter from the slot's waiting list, renumbers the
// entries behind them, and sends a best-effort cancellation notice to the
// supervisor on record.
func (s *Service) Remove(ctx context.Context, handle string, slotID uuid.UUID) error {
	presenter, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return err
	}
	now := s.clock.Now()

	var removed *models.WaitingListEntry
	var supervisorEmail string
	var derr error
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Slots().GetForUpdate(ctx, slotID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindSlotNotFound, slotID, presenter.Username, "slot not found")
				return nil
			}
			return err
		}
		entry, err := RemoveEntry(ctx, tx, slotID, presenter.Username, now)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindNotOnWaitingList, slotID, presenter.Username, "presenter is not on this slot's waiting list")
				return nil
			}
			return err
		}
		removed = entry

		supervisorEmail = entry.SupervisorEmail
		if supervisorEmail == "" {
			// Fall back to the supervisor on the presenter's most recent
			// prior registration.
			regs, err := tx.Registrations().ListByPresenter(ctx, presenter.Username)
			if err != nil {
				return err
			}
			for i := len(regs) - 1; i >= 0; i-- {
				if regs[i].SupervisorEmail != "" {
					supervisorEmail = regs[i].SupervisorEmail
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if derr != nil {
		return derr
	}

	if supervisorEmail != "" {
		details := domain.CancellationDetails{
			Presenter: presenter.Username,
			SlotID:    slotID.String(),
			Topic:     removed.Topic,
		}
		if err := s.notifier.NotifyCancellation(ctx, supervisorEmail, details); err != nil {
			s.logger.Warn("cancellation notification failed",
				zap.Error(err),
				zap.String("slot_id", slotID.String()),
				zap.String("presenter", presenter.Username))
		}
	}
	return nil
}

// List returns the slot's waiting list in position order.
func (s *Service) List(ctx context.Context, slotID uuid.UUID) ([]models.WaitingListEntry, error) {
	return s.store.Read().WaitingList().ListBySlot(ctx, slotID)
}

// RemoveEntry deletes the entry and keeps the position sequence dense. It is
// the single removal path shared by withdrawal, promotion and the approval
// workflow's cleanup; the caller decides whether a cancellation notice goes
// out. Callers hold the slot lock.
func RemoveEntry(ctx context.Context, tx store.Tx, slotID uuid.UUID, presenter string, now time.Time) (*models.WaitingListEntry, error) {
	entry, err := tx.WaitingList().Get(ctx, slotID, presenter)
	if err != nil {
		return nil, err
	}
	if err := tx.WaitingList().Remove(ctx, slotID, presenter); err != nil {
		return nil, err
	}
	if err := tx.WaitingList().DecrementPositionsAfter(ctx, slotID, entry.Position); err != nil {
		return nil, err
	}
	if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventWaitlistRemoved, slotID, presenter, now, map[string]any{
		"position": entry.Position,
	})); err != nil {
		return nil, err
	}
	return entry, nil
}

// PromoteNext pops the head of the slot's waiting list, renumbering the rest.
// Returns nil when the list is empty. Callers hold the slot lock and are
// responsible for turning the entry into a registration.
func PromoteNext(ctx context.Context, tx store.Tx, slotID uuid.UUID, now time.Time) (*models.WaitingListEntry, error) {
	entries, err := tx.WaitingList().ListBySlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return PromoteEntry(ctx, tx, slotID, entries[0].Presenter, now)
}

// PromoteEntry takes the named presenter off the slot's waiting list as a
// promotion, renumbering the entries behind them. Promotion skips the
// cancellation notice: the entry left the queue because a seat opened, not
// because the presenter withdrew. Callers hold the slot lock.
func PromoteEntry(ctx context.Context, tx store.Tx, slotID uuid.UUID, presenter string, now time.Time) (*models.WaitingListEntry, error) {
	entry, err := tx.WaitingList().Get(ctx, slotID, presenter)
	if err != nil {
		return nil, err
	}
	if err := tx.WaitingList().Remove(ctx, slotID, presenter); err != nil {
		return nil, err
	}
	if err := tx.WaitingList().DecrementPositionsAfter(ctx, slotID, entry.Position); err != nil {
		return nil, err
	}
	if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventWaitlistPromoted, slotID, presenter, now, map[string]any{
		"position": entry.Position,
	})); err != nil {
		return nil, err
	}
	return entry, nil
}
