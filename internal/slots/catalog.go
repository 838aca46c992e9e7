package slots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/internal/store"
)

// SlotInput carries the coordinator-supplied fields for a new slot.
type SlotInput struct {
	SemesterLabel string
	StartsAt      time.Time
	EndsAt        *time.Time
	Building      string
	Room          string
	Capacity      int
}

// CreateSlot adds a slot to the catalog.
func (s *Service) CreateSlot(ctx context.Context, input SlotInput) (*models.Slot, error) {
	slot := &models.Slot{
		SemesterLabel: input.SemesterLabel,
		StartsAt:      input.StartsAt,
		EndsAt:        input.EndsAt,
		Building:      input.Building,
		Room:          input.Room,
		Capacity:      input.Capacity,
		Status:        models.SlotFree,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Slots().Create(ctx, slot)
	})
	if err != nil {
		return nil, err
	}
	return slot, nil
}

// Now exposes the service clock to the request layer for default ranges.
func (s *Service) Now() time.Time { return s.clock.Now() }

// SlotSummary is a catalog row: the slot plus its live occupancy.
type SlotSummary struct {
	models.Slot
	Registered int `json:"registered"`
	Waiting    int `json:"waiting"`
}

// HomeView is everything a presenter's landing page needs.
type HomeView struct {
	Presenter     models.Presenter         `json:"presenter"`
	Registrations []models.Registration    `json:"registrations"`
	Slots         map[string]models.Slot   `json:"slots,omitempty"`
	Waiting       *models.WaitingListEntry `json:"waiting,omitempty"`
}

// Catalog lists slots starting at or after from, with occupancy counts.
func (s *Service) Catalog(ctx context.Context, from time.Time) ([]SlotSummary, error) {
	now := s.clock.Now()
	read := s.store.Read()
	list, err := read.Slots().ListFrom(ctx, from)
	if err != nil {
		return nil, err
	}
	out := make([]SlotSummary, 0, len(list))
	for i := range list {
		regs, err := read.Registrations().ListBySlot(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		waiting, err := read.WaitingList().Count(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, SlotSummary{
			Slot:       list[i],
			Registered: len(models.ActiveRegistrations(regs, now)),
			Waiting:    waiting,
		})
	}
	return out, nil
}

// GetSlot returns one slot by id.
func (s *Service) GetSlot(ctx context.Context, slotID uuid.UUID) (*SlotSummary, error) {
	now := s.clock.Now()
	read := s.store.Read()
	slot, err := read.Slots().Get(ctx, slotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.E(domain.KindSlotNotFound, slotID, "", "slot not found")
		}
		return nil, err
	}
	regs, err := read.Registrations().ListBySlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	waiting, err := read.WaitingList().Count(ctx, slotID)
	if err != nil {
		return nil, err
	}
	return &SlotSummary{
		Slot:       *slot,
		Registered: len(models.ActiveRegistrations(regs, now)),
		Waiting:    waiting,
	}, nil
}

// Home assembles the presenter's registrations, the slots they reference and
// any waiting-list entry.
func (s *Service) Home(ctx context.Context, handle string) (*HomeView, error) {
	presenter, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	read := s.store.Read()
	regs, err := read.Registrations().ListByPresenter(ctx, presenter.Username)
	if err != nil {
		return nil, err
	}
	view := &HomeView{Presenter: *presenter, Registrations: regs}
	if len(regs) > 0 {
		view.Slots = make(map[string]models.Slot, len(regs))
		for i := range regs {
			slot, err := read.Slots().Get(ctx, regs[i].SlotID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return nil, err
			}
			view.Slots[slot.ID.String()] = *slot
		}
	}
	entry, err := read.WaitingList().FindByPresenter(ctx, presenter.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	view.Waiting = entry
	return view, nil
}
