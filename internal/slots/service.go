// Package slots is the lifecycle façade callers talk to: it composes the
// stores, the waiting list, the approval workflow and the attendance
// controller into register/unregister/catalog operations, and carries the
// capacity and degree-exclusivity invariants.
package slots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/approvals"
	"github.com/benariet/SemScan-Project-sub001/internal/attendance"
	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/internal/presenters"
	"github.com/benariet/SemScan-Project-sub001/internal/store"
	"github.com/benariet/SemScan-Project-sub001/internal/waitlist"
)

// Config holds the orchestrator knobs.
type Config struct {
	// ApprovalTTL is how long supervisor approval tokens stay decidable.
	ApprovalTTL time.Duration
}

// RegisterInput carries the presenter-supplied registration details.
type RegisterInput struct {
	Topic           string
	SupervisorName  string
	SupervisorEmail string
}

// RegisterOutcome distinguishes a fresh registration from an idempotent
// repeat.
type RegisterOutcome string

const (
	OutcomeRegistered    RegisterOutcome = "REGISTERED"
	OutcomeAlreadyInSlot RegisterOutcome = "ALREADY_IN_SLOT"
)

// RegisterResult is returned on successful registration.
type RegisterResult struct {
	Outcome      RegisterOutcome     `json:"outcome"`
	Registration models.Registration `json:"registration"`
	SlotStatus   models.SlotStatus   `json:"slot_status"`
}

// UnregisterResult reports what the withdrawal changed.
type UnregisterResult struct {
	SlotStatus models.SlotStatus `json:"slot_status"`
	// Promoted is the waiting-list presenter who took the freed seat, if any.
	Promoted *string `json:"promoted,omitempty"`
}

// Service is the slot lifecycle orchestrator.
type Service struct {
	store    store.Store
	resolver presenters.Resolver
	notifier domain.Notifier
	clock    domain.Clock
	cfg      Config
	logger   *zap.Logger
}

// NewService creates the orchestrator.
func NewService(st store.Store, resolver presenters.Resolver, notifier domain.Notifier, clock domain.Clock, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	if cfg.ApprovalTTL <= 0 {
		cfg.ApprovalTTL = approvals.DefaultConfig().TokenTTL
	}
	return &Service{store: st, resolver: resolver, notifier: notifier, clock: clock, cfg: cfg, logger: logger}
}

// Register places the presenter into the slot, enforcing the eligibility
// rules in order: identity, idempotent repeat, one-registration-systemwide,
// exclusivity in both directions, then capacity. A capacity rejection still
// commits the slot's recomputed FULL status.
func (s *Service) Register(ctx context.Context, handle string, slotID uuid.UUID, input RegisterInput) (*RegisterResult, error) {
	presenter, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var result *RegisterResult
	var slotCopy models.Slot
	var derr error
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		slot, err := tx.Slots().GetForUpdate(ctx, slotID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindSlotNotFound, slotID, presenter.Username, "slot not found")
				return nil
			}
			return err
		}

		own, err := tx.Registrations().Get(ctx, slotID, presenter.Username)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if own != nil {
			if own.Active(now) {
				result = &RegisterResult{Outcome: OutcomeAlreadyInSlot, Registration: *own, SlotStatus: slot.Status}
				return nil
			}
			// A declined or expired row no longer occupies the seat; drop it
			// so the presenter can register afresh.
			if err := tx.Registrations().Delete(ctx, slotID, presenter.Username); err != nil {
				return err
			}
		}

		mine, err := tx.Registrations().ListByPresenter(ctx, presenter.Username)
		if err != nil {
			return err
		}
		for i := range mine {
			if mine[i].SlotID != slotID && mine[i].Active(now) {
				derr = domain.E(domain.KindRegisteredElsewhere, mine[i].SlotID, presenter.Username,
					"presenter already holds a registration in another slot")
				return nil
			}
		}

		regs, err := tx.Registrations().ListBySlot(ctx, slotID)
		if err != nil {
			return err
		}
		active := models.ActiveRegistrations(regs, now)
		for i := range active {
			if active[i].Degree.Exclusive() {
				derr = domain.E(domain.KindSlotLocked, slotID, presenter.Username,
					"slot is locked by an exclusive registration")
				return nil
			}
		}
		if presenter.Degree.Exclusive() && len(active) > 0 {
			derr = domain.E(domain.KindExclusiveBlocked, slotID, presenter.Username,
				"exclusive registration requires an empty slot")
			return nil
		}
		if !presenter.Degree.Exclusive() && len(active) >= slot.Capacity {
			// Rejected, but the denormalized status still gets corrected.
			if slot.Status != models.SlotFull {
				slot.Status = models.SlotFull
				if err := tx.Slots().Update(ctx, slot); err != nil {
					return err
				}
			}
			if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventSlotFullRejected, slotID, presenter.Username, now, map[string]any{
				"capacity": slot.Capacity,
			})); err != nil {
				return err
			}
			derr = domain.E(domain.KindSlotFull, slotID, presenter.Username, "slot is at capacity")
			return nil
		}

		reg := &models.Registration{
			SlotID:          slotID,
			Presenter:       presenter.Username,
			Degree:          models.NormalizeDegree(presenter.Degree),
			Topic:           input.Topic,
			SupervisorName:  input.SupervisorName,
			SupervisorEmail: input.SupervisorEmail,
			RegisteredAt:    now,
		}
		if reg.SupervisorEmail == "" && presenter.SupervisorEmail != nil {
			reg.SupervisorEmail = *presenter.SupervisorEmail
			if presenter.SupervisorName != nil && reg.SupervisorName == "" {
				reg.SupervisorName = *presenter.SupervisorName
			}
		}
		if reg.SupervisorEmail != "" {
			if err := approvals.IssueToken(reg, now, s.cfg.ApprovalTTL); err != nil {
				return err
			}
		} else {
			reg.ApprovalStatus = models.ApprovalApproved
		}
		if err := tx.Registrations().Create(ctx, reg); err != nil {
			return err
		}

		// A presenter who lands a seat leaves this slot's waiting list.
		if _, err := tx.WaitingList().Get(ctx, slotID, presenter.Username); err == nil {
			if _, err := waitlist.RemoveEntry(ctx, tx, slotID, presenter.Username, now); err != nil {
				return err
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		// An exclusive takeover supersedes any session someone else had open.
		if presenter.Degree.Exclusive() && slot.SessionID != nil &&
			(slot.AttendanceOpenedBy == nil || *slot.AttendanceOpenedBy != presenter.Username) {
			if err := attendance.CloseForSlot(ctx, tx, slot, now, "slot taken over exclusively"); err != nil {
				return err
			}
		}

		regs, err = tx.Registrations().ListBySlot(ctx, slotID)
		if err != nil {
			return err
		}
		slot.Status = models.ComputeSlotStatus(slot.Capacity, regs, now)
		if err := tx.Slots().Update(ctx, slot); err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventSlotRegistered, slotID, presenter.Username, now, map[string]any{
			"degree":          reg.Degree,
			"approval_status": reg.ApprovalStatus,
		})); err != nil {
			return err
		}
		if reg.ApprovalStatus == models.ApprovalPending {
			if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventApprovalIssued, slotID, presenter.Username, now, map[string]any{
				"expires_at": *reg.TokenExpiresAt,
			})); err != nil {
				return err
			}
		}

		result = &RegisterResult{Outcome: OutcomeRegistered, Registration: *reg, SlotStatus: slot.Status}
		slotCopy = *slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	if derr != nil {
		return nil, derr
	}

	if result.Outcome == OutcomeRegistered && result.Registration.ApprovalStatus == models.ApprovalPending {
		// Fire and forget: a failed supervisor request never unwinds the
		// registration.
		if err := s.notifier.NotifySupervisorRequest(ctx, result.Registration, slotCopy, *presenter); err != nil {
			s.logger.Warn("supervisor request notification failed", zap.Error(err),
				zap.String("slot_id", slotID.String()),
				zap.String("presenter", presenter.Username))
		}
	}
	s.logger.Info("register",
		zap.String("outcome", string(result.Outcome)),
		zap.String("slot_id", slotID.String()),
		zap.String("presenter", presenter.Username),
		zap.String("slot_status", string(result.SlotStatus)))
	return result, nil
}

// Unregister removes the presenter's registration, recomputes the slot
// status, closes attendance when the departure warrants it, and promotes the
// head of the waiting list into the freed seat.
func (s *Service) Unregister(ctx context.Context, handle string, slotID uuid.UUID) (*UnregisterResult, error) {
	presenter, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var result *UnregisterResult
	var slotCopy models.Slot
	var removedReg models.Registration
	var promotedReg *models.Registration
	var derr error
	err = s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		slot, err := tx.Slots().GetForUpdate(ctx, slotID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindSlotNotFound, slotID, presenter.Username, "slot not found")
				return nil
			}
			return err
		}
		reg, err := tx.Registrations().Get(ctx, slotID, presenter.Username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindNotRegistered, slotID, presenter.Username, "presenter is not registered for this slot")
				return nil
			}
			return err
		}
		removedReg = *reg

		wasOpener := slot.AttendanceOpenedBy != nil && *slot.AttendanceOpenedBy == presenter.Username
		wasExclusive := reg.Degree.Exclusive()

		if err := tx.Registrations().Delete(ctx, slotID, presenter.Username); err != nil {
			return err
		}
		regs, err := tx.Registrations().ListBySlot(ctx, slotID)
		if err != nil {
			return err
		}
		active := models.ActiveRegistrations(regs, now)

		if wasOpener || wasExclusive || len(active) == 0 {
			if err := attendance.CloseForSlot(ctx, tx, slot, now, "registrant departed"); err != nil {
				return err
			}
		}

		promoted, err := s.promoteIfEligible(ctx, tx, slot, active, now)
		if err != nil {
			return err
		}
		promotedReg = promoted

		regs, err = tx.Registrations().ListBySlot(ctx, slotID)
		if err != nil {
			return err
		}
		slot.Status = models.ComputeSlotStatus(slot.Capacity, regs, now)
		if err := tx.Slots().Update(ctx, slot); err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventSlotUnregistered, slotID, presenter.Username, now, map[string]any{
			"was_exclusive": wasExclusive,
			"was_opener":    wasOpener,
		})); err != nil {
			return err
		}

		result = &UnregisterResult{SlotStatus: slot.Status}
		if promoted != nil {
			result.Promoted = &promoted.Presenter
		}
		slotCopy = *slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	if derr != nil {
		return nil, derr
	}

	if removedReg.SupervisorEmail != "" {
		details := domain.CancellationDetails{
			Presenter: presenter.Username,
			SlotID:    slotID.String(),
			SlotLabel: slotCopy.SemesterLabel,
			Topic:     removedReg.Topic,
		}
		if err := s.notifier.NotifyCancellation(ctx, removedReg.SupervisorEmail, details); err != nil {
			s.logger.Warn("cancellation notification failed", zap.Error(err),
				zap.String("slot_id", slotID.String()),
				zap.String("presenter", presenter.Username))
		}
	}
	if promotedReg != nil {
		s.notifyPromotion(ctx, promotedReg, slotCopy)
	}
	s.logger.Info("unregister",
		zap.String("slot_id", slotID.String()),
		zap.String("presenter", presenter.Username),
		zap.String("slot_status", string(result.SlotStatus)))
	return result, nil
}

// promoteIfEligible moves the first promotable waiting entry into a
// registration when the freed seat actually fits them: a shared-tier head
// needs a spare seat and no exclusive holder, an exclusive-tier head needs
// the slot empty. Entries whose presenter already holds an active
// registration in another slot are passed over and keep their position; a
// presenter never holds two active registrations at once.
func (s *Service) promoteIfEligible(ctx context.Context, tx store.Tx, slot *models.Slot, active []models.Registration, now time.Time) (*models.Registration, error) {
	entries, err := tx.WaitingList().ListBySlot(ctx, slot.ID)
	if err != nil {
		return nil, err
	}
	var head *models.WaitingListEntry
	for i := range entries {
		theirs, err := tx.Registrations().ListByPresenter(ctx, entries[i].Presenter)
		if err != nil {
			return nil, err
		}
		busy := false
		for j := range theirs {
			if theirs[j].SlotID != slot.ID && theirs[j].Active(now) {
				busy = true
				break
			}
		}
		if !busy {
			head = &entries[i]
			break
		}
	}
	if head == nil {
		return nil, nil
	}

	for i := range active {
		if active[i].Degree.Exclusive() {
			return nil, nil
		}
	}
	if head.Degree.Exclusive() {
		if len(active) > 0 {
			return nil, nil
		}
	} else if len(active) >= slot.Capacity {
		return nil, nil
	}

	if _, err := waitlist.PromoteEntry(ctx, tx, slot.ID, head.Presenter, now); err != nil {
		return nil, err
	}

	reg := &models.Registration{
		SlotID:          slot.ID,
		Presenter:       head.Presenter,
		Degree:          models.NormalizeDegree(head.Degree),
		Topic:           head.Topic,
		SupervisorName:  head.SupervisorName,
		SupervisorEmail: head.SupervisorEmail,
		RegisteredAt:    now,
	}
	if reg.SupervisorEmail != "" {
		if err := approvals.IssueToken(reg, now, s.cfg.ApprovalTTL); err != nil {
			return nil, err
		}
	} else {
		reg.ApprovalStatus = models.ApprovalApproved
	}
	if err := tx.Registrations().Create(ctx, reg); err != nil {
		return nil, err
	}
	if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventSlotRegistered, slot.ID, head.Presenter, now, map[string]any{
		"degree":          reg.Degree,
		"approval_status": reg.ApprovalStatus,
		"promoted":        true,
	})); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Service) notifyPromotion(ctx context.Context, reg *models.Registration, slot models.Slot) {
	p, err := s.resolver.Resolve(ctx, reg.Presenter)
	if err != nil {
		p = &models.Presenter{Username: reg.Presenter}
	}
	if err := s.notifier.NotifyPromotionOffer(ctx, *p, slot, *reg); err != nil {
		s.logger.Warn("promotion notification failed", zap.Error(err),
			zap.String("slot_id", slot.ID.String()),
			zap.String("presenter", reg.Presenter))
	}
	if reg.ApprovalStatus == models.ApprovalPending {
		if err := s.notifier.NotifySupervisorRequest(ctx, *reg, slot, *p); err != nil {
			s.logger.Warn("supervisor request notification failed", zap.Error(err),
				zap.String("slot_id", slot.ID.String()),
				zap.String("presenter", reg.Presenter))
		}
	}
}
