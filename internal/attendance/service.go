// Package attendance owns the check-in session lifecycle: the time-windowed
// open/close of the QR session tied to a slot. Sessions are created lazily on
// the first open and closed lazily when their window is observed to have
// elapsed; no background sweep runs here.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/internal/presenters"
	"github.com/benariet/SemScan-Project-sub001/internal/store"
)

// Config holds the window arithmetic knobs.
type Config struct {
	// OpenWindowBefore is how long before the slot start a presenter may
	// open attendance.
	OpenWindowBefore time.Duration
	// SessionDuration is how long an opened session stays scannable.
	SessionDuration time.Duration
	// PublicBaseURL prefixes the QR link handed to scanning clients.
	PublicBaseURL string
}

// DefaultConfig matches the production windows: open up to 10 minutes before
// the slot starts, sessions stay open for 15 minutes.
func DefaultConfig() Config {
	return Config{
		OpenWindowBefore: 10 * time.Minute,
		SessionDuration:  15 * time.Minute,
	}
}

// Outcome distinguishes a fresh open from an idempotent re-open.
type Outcome string

const (
	OutcomeOpened      Outcome = "OPENED"
	OutcomeAlreadyOpen Outcome = "ALREADY_OPEN"
)

// OpenResult describes the session handed back to the presenter.
type OpenResult struct {
	Outcome   Outcome   `json:"outcome"`
	SessionID uuid.UUID `json:"session_id"`
	QRContent string    `json:"qr_content"`
	QRURL     string    `json:"qr_url,omitempty"`
	OpenedAt  time.Time `json:"opened_at"`
	ClosesAt  time.Time `json:"closes_at"`
}

// StatusResult reports the current session window for polling clients.
type StatusResult struct {
	Open      bool       `json:"open"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	OpenedBy  *string    `json:"opened_by,omitempty"`
	ClosesAt  *time.Time `json:"closes_at,omitempty"`
}

// Service is the attendance session controller.
type Service struct {
	store    store.Store
	resolver presenters.Resolver
	clock    domain.Clock
	cfg      Config
	logger   *zap.Logger
}

// NewService creates the controller.
func NewService(st store.Store, resolver presenters.Resolver, clock domain.Clock, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OpenWindowBefore <= 0 {
		cfg.OpenWindowBefore = DefaultConfig().OpenWindowBefore
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{store: st, resolver: resolver, clock: clock, cfg: cfg, logger: logger}
}

// Open opens (or idempotently returns) the check-in session for a slot.
func (s *Service) Open(ctx context.Context, handle string, slotID uuid.UUID) (*OpenResult, error) {
	presenter, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	var result *OpenResult
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

		if _, err := tx.Registrations().Get(ctx, slotID, presenter.Username); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindNotRegistered, slotID, presenter.Username, "presenter is not registered for this slot")
				return nil
			}
			return err
		}

		if slot.StartsAt.IsZero() {
			derr = domain.E(domain.KindNoSchedule, slotID, presenter.Username, "slot has no start time configured")
			return nil
		}

		openWindow := slot.StartsAt.Add(-s.cfg.OpenWindowBefore)
		if now.Before(openWindow) {
			derr = domain.EAt(domain.KindTooEarly, slotID, presenter.Username, openWindow,
				fmt.Sprintf("attendance opens at %s", openWindow.Format(time.RFC3339)))
			return nil
		}
		if slot.EndsAt != nil && now.After(*slot.EndsAt) {
			derr = domain.EAt(domain.KindTooLate, slotID, presenter.Username, *slot.EndsAt,
				fmt.Sprintf("slot ended at %s", slot.EndsAt.Format(time.RFC3339)))
			return nil
		}

		sess, err := tx.Sessions().FindOpenBySlot(ctx, slotID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if sess != nil {
			windowLive := slot.AttendanceClosesAt != nil && now.Before(*slot.AttendanceClosesAt)
			if windowLive {
				if sess.OpenedBy == presenter.Username {
					openedAt := sess.CreatedAt
					if slot.AttendanceOpenedAt != nil {
						openedAt = *slot.AttendanceOpenedAt
					}
					result = &OpenResult{
						Outcome:   OutcomeAlreadyOpen,
						SessionID: sess.ID,
						QRContent: QRContent(sess.ID),
						QRURL:     QRURL(s.cfg.PublicBaseURL, sess.ID),
						OpenedAt:  openedAt,
						ClosesAt:  *slot.AttendanceClosesAt,
					}
					return nil
				}
				derr = domain.E(domain.KindInProgress, slotID, presenter.Username,
					"another presenter has an active session for this slot")
				return nil
			}
			// Stale session: its window elapsed without anyone observing it.
			if err := CloseForSlot(ctx, tx, slot, now, "window elapsed"); err != nil {
				return err
			}
		} else if slot.SessionID != nil {
			// Slot points at a session that is already closed.
			slot.ClearAttendance()
			if err := tx.Slots().Update(ctx, slot); err != nil {
				return err
			}
		}

		newSess := &models.CheckinSession{
			ID:       uuid.New(),
			SlotID:   slotID,
			OpenedBy: presenter.Username,
			StartsAt: slot.StartsAt,
			EndsAt:   slot.EndsAt,
			Status:   models.SessionOpen,
		}
		if err := tx.Sessions().Create(ctx, newSess); err != nil {
			return err
		}

		closesAt := now.Add(s.cfg.SessionDuration)
		slot.SessionID = &newSess.ID
		slot.AttendanceOpenedAt = &now
		slot.AttendanceClosesAt = &closesAt
		opener := presenter.Username
		slot.AttendanceOpenedBy = &opener
		if err := tx.Slots().Update(ctx, slot); err != nil {
			return err
		}

		if err := tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventAttendanceOpened, slotID, presenter.Username, now, map[string]any{
			"session_id": newSess.ID,
			"closes_at":  closesAt,
		})); err != nil {
			return err
		}

		result = &OpenResult{
			Outcome:   OutcomeOpened,
			SessionID: newSess.ID,
			QRContent: QRContent(newSess.ID),
			QRURL:     QRURL(s.cfg.PublicBaseURL, newSess.ID),
			OpenedAt:  now,
			ClosesAt:  closesAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if derr != nil {
		return nil, derr
	}

	s.logger.Info("attendance session",
		zap.String("outcome", string(result.Outcome)),
		zap.String("slot_id", slotID.String()),
		zap.String("presenter", presenter.Username),
		zap.String("session_id", result.SessionID.String()))
	return result, nil
}

// Status reports whether a slot has a live session, lazily closing one whose
// window has elapsed.
func (s *Service) Status(ctx context.Context, slotID uuid.UUID) (*StatusResult, error) {
	now := s.clock.Now()
	var result *StatusResult
	var derr error
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		slot, err := tx.Slots().GetForUpdate(ctx, slotID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				derr = domain.E(domain.KindSlotNotFound, slotID, "", "slot not found")
				return nil
			}
			return err
		}
		if slot.SessionID != nil && slot.AttendanceClosesAt != nil && !now.Before(*slot.AttendanceClosesAt) {
			if err := CloseForSlot(ctx, tx, slot, now, "window elapsed"); err != nil {
				return err
			}
		}
		if slot.SessionID == nil {
			result = &StatusResult{Open: false}
			return nil
		}
		result = &StatusResult{
			Open:      true,
			SessionID: slot.SessionID,
			OpenedBy:  slot.AttendanceOpenedBy,
			ClosesAt:  slot.AttendanceClosesAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if derr != nil {
		return nil, derr
	}
	return result, nil
}

// CloseForSlot closes any open session for the slot and clears the slot's
// attendance fields. It is idempotent: a slot with no live session is left
// untouched. Callers hold the slot lock.
func CloseForSlot(ctx context.Context, tx store.Tx, slot *models.Slot, now time.Time, reason string) error {
	sess, err := tx.Sessions().FindOpenBySlot(ctx, slot.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	closed := false
	if sess != nil {
		endsAt := now
		if slot.AttendanceClosesAt != nil && slot.AttendanceClosesAt.Before(now) {
			endsAt = *slot.AttendanceClosesAt
		}
		sess.Status = models.SessionClosed
		sess.EndsAt = &endsAt
		if err := tx.Sessions().Update(ctx, sess); err != nil {
			return err
		}
		closed = true
	}
	if slot.SessionID != nil || slot.AttendanceOpenedAt != nil {
		slot.ClearAttendance()
		if err := tx.Slots().Update(ctx, slot); err != nil {
			return err
		}
	}
	if closed {
		return tx.Outbox().Insert(ctx, domain.NewEvent(domain.EventAttendanceClosed, slot.ID, "", now, map[string]any{
			"session_id": sess.ID,
			"reason":     reason,
		}))
	}
	return nil
}
