// Package approvals runs the supervisor approval workflow: single-use tokens
// issued on pending registrations, decided exactly once, expiring after a
// configurable window. Expiry is observed lazily at decision time; the flip
// to EXPIRED is committed even though the decision itself fails.
package approvals

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/attendance"
	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/internal/presenters"
	"github.com/benariet/SemScan-Project-sub001/internal/store"
	"github.com/benariet/SemScan-Project-sub001/internal/waitlist"
)

// Config holds the approval workflow knobs.
type Config struct {
	// TokenTTL is how long an issued token stays decidable.
	TokenTTL time.Duration
}

// DefaultConfig matches production: tokens live for 14 days.
func DefaultConfig() Config {
	return Config{TokenTTL: 14 * 24 * time.Hour}
}

// Decision reports the outcome of an approve or decline call.
type Decision struct {
	SlotID    uuid.UUID             `json:"slot_id"`
	Presenter string                `json:"presenter_username"`
	Status    models.ApprovalStatus `json:"status"`
}

// Service drives the approval workflow.
type Service struct {
	store    store.Store
	resolver presenters.Resolver
	notifier domain.Notifier
	clock    domain.Clock
	cfg      Config
	logger   *zap.Logger
}

// NewService creates the approval service.
func NewService(st store.Store, resolver presenters.Resolver, notifier domain.Notifier, clock domain.Clock, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = domain.NopNotifier{}
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultConfig().TokenTTL
	}
	return &Service{store: st, resolver: resolver, notifier: notifier, clock: clock, cfg: cfg, logger: logger}
}

// NewToken returns a fresh URL-safe approval token.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:43], nil
}

// IssueToken stamps a fresh token and expiry on the registration and marks it
// pending. The caller persists the registration and records the issue event.
func IssueToken(reg *models.Registration, now time.Time, ttl time.Duration) error {
	token, err := NewToken()
	if err != nil {
		return fmt.Errorf("approvals: generate token: %w", err)
	}
	expiresAt := now.Add(ttl)
	reg.ApprovalStatus = models.ApprovalPending
	reg.ApprovalToken = &token
	reg.TokenExpiresAt = &expiresAt
	reg.DecidedAt = nil
	reg.DeclineReason = nil
	return nil
}

// Approve records a supervisor approval for the token.
func (s *Service) Approve(ctx context.Context, token string) (*Decision, error) {
	return s.decideByToken(ctx, token, true, "")
}

// Decline records a supervisor decline for the token.
func (s *Service) Decline(ctx context.Context, token, reason string) (*Decision, error) {
	return s.decideByToken(ctx, token, false, reason)
}

// Decide applies a decision addressed by registration key plus token, used
// when the client knows which registration it is deciding. A token that does
// not match the registration's current token is rejected.
func (s *Service) Decide(ctx context.Context, slotID uuid.UUID, presenter, token string, approve bool, reason string) (*Decision, error) {
	return s.decide(ctx, func(ctx context.Context, tx store.Tx) (*models.Registration, *domain.Error, error) {
		reg, err := tx.Registrations().Get(ctx, slotID, presenter)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domain.E(domain.KindTokenNotFound, slotID, presenter, "no registration for this approval"), nil
			}
			return nil, nil, err
		}
		if reg.ApprovalToken == nil {
			return nil, domain.E(domain.KindTokenNotFound, slotID, presenter, "no approval token issued"), nil
		}
		if *reg.ApprovalToken != token {
			return nil, domain.E(domain.KindTokenMismatch, slotID, presenter, "token does not match this registration"), nil
		}
		return reg, nil, nil
	}, token, approve, reason)
}

func (s *Service) decideByToken(ctx context.Context, token string, approve bool, reason string) (*Decision, error) {
	return s.decide(ctx, func(ctx context.Context, tx store.Tx) (*models.Registration, *domain.Error, error) {
		reg, err := tx.Registrations().GetByToken(ctx, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, domain.E(domain.KindTokenNotFound, uuid.Nil, "", "unknown approval token"), nil
			}
			return nil, nil, err
		}
		return reg, nil, nil
	}, token, approve, reason)
}

// decide is the single decision path. lookup locates the registration inside
// the transaction; everything after runs under the slot lock.
func (s *Service) decide(ctx context.Context, lookup func(context.Context, store.Tx) (*models.Registration, *domain.Error, error), token string, approve bool, reason string) (*Decision, error) {
	now := s.clock.Now()

	var decision *Decision
	var slotCopy models.Slot
	var derr error
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		reg, lerr, err := lookup(ctx, tx)
		if err != nil {
			return err
		}
		if lerr != nil {
			derr = lerr
			return nil
		}

		slot, err := tx.Slots().GetForUpdate(ctx, reg.SlotID)
		if err != nil {
			return err
		}
		// Re-read under the lock. A reissue may have rotated the token
		// between the lookup and the lock; the presented token must still
		// be the current one.
		reg, err = tx.Registrations().Get(ctx, reg.SlotID, reg.Presenter)
		if err != nil {
			return err
		}
		if reg.ApprovalToken == nil || *reg.ApprovalToken != token {
			derr = domain.E(domain.KindTokenMismatch, slot.ID, reg.Presenter,
				"token does not match the current approval token")
			return nil
		}

		if reg.TokenExpiresAt != nil && !now.Before(*reg.TokenExpiresAt) {
			// Lazy expiry: persist the flip and free the seat, then fail
			// the decision. A second attempt sees EXPIRED, not a re-flip.
			if reg.ApprovalStatus == models.ApprovalPending {
				reg.ApprovalStatus = models.ApprovalExpired
				if err := tx.Registrations().Update(ctx, reg); err != nil {
					return err
				}
				if err := s.seatFreed(ctx, tx, slot, reg.Presenter, now); err != nil {
					return err
				}
				if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventApprovalExpired, slot.ID, reg.Presenter, now, map[string]any{
					"expired_at": *reg.TokenExpiresAt,
				})); err != nil {
					return err
				}
			}
			derr = domain.EAt(domain.KindTokenExpired, slot.ID, reg.Presenter, *reg.TokenExpiresAt,
				fmt.Sprintf("approval token expired at %s", reg.TokenExpiresAt.Format(time.RFC3339)))
			return nil
		}

		if reg.ApprovalStatus != models.ApprovalPending {
			derr = domain.E(domain.KindNotPending, slot.ID, reg.Presenter,
				fmt.Sprintf("registration is %s, not pending", reg.ApprovalStatus))
			return nil
		}

		reg.DecidedAt = &now
		if approve {
			reg.ApprovalStatus = models.ApprovalApproved
			if err := tx.Registrations().Update(ctx, reg); err != nil {
				return err
			}
			if err := s.withdrawElsewhere(ctx, tx, reg.SlotID, reg.Presenter, now); err != nil {
				return err
			}
			if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventApprovalApproved, slot.ID, reg.Presenter, now, nil)); err != nil {
				return err
			}
			decision = &Decision{SlotID: slot.ID, Presenter: reg.Presenter, Status: models.ApprovalApproved}
		} else {
			reg.ApprovalStatus = models.ApprovalDeclined
			if reason != "" {
				reg.DeclineReason = &reason
			}
			if err := tx.Registrations().Update(ctx, reg); err != nil {
				return err
			}
			if err := s.seatFreed(ctx, tx, slot, reg.Presenter, now); err != nil {
				return err
			}
			if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventApprovalDeclined, slot.ID, reg.Presenter, now, map[string]any{
				"reason": reason,
			})); err != nil {
				return err
			}
			decision = &Decision{SlotID: slot.ID, Presenter: reg.Presenter, Status: models.ApprovalDeclined}
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

	s.notifyDecision(ctx, decision, slotCopy, reason)
	s.logger.Info("approval decision",
		zap.String("slot_id", decision.SlotID.String()),
		zap.String("presenter", decision.Presenter),
		zap.String("status", string(decision.Status)))
	return decision, nil
}

// Reissue generates a fresh token for a still-pending registration and
// re-sends the supervisor request.
func (s *Service) Reissue(ctx context.Context, handle string, slotID uuid.UUID) (*models.Registration, error) {
	presenter, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var regCopy models.Registration
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
		reg, err := tx.Registrations().Get(ctx, slotID, presenter.Username)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindNotRegistered, slotID, presenter.Username, "presenter is not registered for this slot")
				return nil
			}
			return err
		}
		if reg.ApprovalStatus != models.ApprovalPending {
			derr = domain.E(domain.KindNotPending, slotID, presenter.Username,
				fmt.Sprintf("registration is %s, not pending", reg.ApprovalStatus))
			return nil
		}
		if err := IssueToken(reg, now, s.cfg.TokenTTL); err != nil {
			return err
		}
		if err := tx.Registrations().Update(ctx, reg); err != nil {
			return err
		}
		if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventApprovalIssued, slotID, presenter.Username, now, map[string]any{
			"expires_at": *reg.TokenExpiresAt,
			"reissued":   true,
		})); err != nil {
			return err
		}
		regCopy, slotCopy = *reg, *slot
		return nil
	})
	if err != nil {
		return nil, err
	}
	if derr != nil {
		return nil, derr
	}

	if err := s.notifier.NotifySupervisorRequest(ctx, regCopy, slotCopy, *presenter); err != nil {
		s.logger.Warn("supervisor request notification failed", zap.Error(err),
			zap.String("slot_id", slotID.String()), zap.String("presenter", presenter.Username))
	}
	return &regCopy, nil
}

// seatFreed recomputes the slot's status after a registration stopped
// counting, and closes any attendance session the departing presenter had
// opened.
func (s *Service) seatFreed(ctx context.Context, tx store.Tx, slot *models.Slot, presenter string, now time.Time) error {
	if slot.AttendanceOpenedBy != nil && *slot.AttendanceOpenedBy == presenter {
		if err := attendance.CloseForSlot(ctx, tx, slot, now, "opener withdrawn"); err != nil {
			return err
		}
	}
	regs, err := tx.Registrations().ListBySlot(ctx, slot.ID)
	if err != nil {
		return err
	}
	if status := models.ComputeSlotStatus(slot.Capacity, regs, now); status != slot.Status {
		slot.Status = status
		return tx.Slots().Update(ctx, slot)
	}
	return nil
}

// withdrawElsewhere enforces the single-approved rule: when a presenter is
// approved for one slot, their pending registrations on other slots are
// declined as superseded and any waiting-list entry is dropped.
func (s *Service) withdrawElsewhere(ctx context.Context, tx store.Tx, approvedSlot uuid.UUID, presenter string, now time.Time) error {
	regs, err := tx.Registrations().ListByPresenter(ctx, presenter)
	if err != nil {
		return err
	}
	for i := range regs {
		other := &regs[i]
		if other.SlotID == approvedSlot || other.ApprovalStatus != models.ApprovalPending {
			continue
		}
		otherSlot, err := tx.Slots().GetForUpdate(ctx, other.SlotID)
		if err != nil {
			return err
		}
		reason := "superseded: presenter approved for another slot"
		other.ApprovalStatus = models.ApprovalDeclined
		other.DeclineReason = &reason
		other.DecidedAt = &now
		if err := tx.Registrations().Update(ctx, other); err != nil {
			return err
		}
		if err := s.seatFreed(ctx, tx, otherSlot, presenter, now); err != nil {
			return err
		}
		if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventApprovalDeclined, other.SlotID, presenter, now, map[string]any{
			"reason":     reason,
			"superseded": true,
		})); err != nil {
			return err
		}
	}

	entry, err := tx.WaitingList().FindByPresenter(ctx, presenter)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if entry.SlotID != approvedSlot {
		if _, err := tx.Slots().GetForUpdate(ctx, entry.SlotID); err != nil {
			return err
		}
	}
	_, err = waitlist.RemoveEntry(ctx, tx, entry.SlotID, presenter, now)
	return err
}

func (s *Service) notifyDecision(ctx context.Context, d *Decision, slot models.Slot, reason string) {
	p, err := s.resolver.Resolve(ctx, d.Presenter)
	if err != nil {
		p = &models.Presenter{Username: d.Presenter}
	}
	if err := s.notifier.NotifyApproval(ctx, *p, slot, d.Status == models.ApprovalApproved, reason); err != nil {
		s.logger.Warn("approval notification failed", zap.Error(err),
			zap.String("slot_id", d.SlotID.String()), zap.String("presenter", d.Presenter))
	}
}
