package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

// Memory is an in-process Store used by the service tests. A single mutex
// serializes every transaction, which gives the same per-slot atomicity
// guarantee the Postgres store gets from row locks.
type Memory struct {
	mu       sync.Mutex
	slots    map[uuid.UUID]models.Slot
	regs     map[regKey]models.Registration
	waitlist map[regKey]models.WaitingListEntry
	sessions map[uuid.UUID]models.CheckinSession
	events   []domain.Event
}

type regKey struct {
	slotID    uuid.UUID
	presenter string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		slots:    make(map[uuid.UUID]models.Slot),
		regs:     make(map[regKey]models.Registration),
		waitlist: make(map[regKey]models.WaitingListEntry),
		sessions: make(map[uuid.UUID]models.CheckinSession),
	}
}

// WithTx runs fn under the store mutex. The in-memory store does not roll
// back partial writes on error; the services validate before they mutate, so
// tests never hit a partially applied transaction.
func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, &memTx{m: m})
}

// Read returns repositories guarded by the same mutex per call.
func (m *Memory) Read() Tx { return &memTx{m: m, locking: true} }

// Events returns the events recorded through the outbox, oldest first.
func (m *Memory) Events() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

type memTx struct {
	m *Memory
	// locking repos take the mutex per call; transactional repos rely on
	// WithTx already holding it.
	locking bool
}

func (t *memTx) lock() func() {
	if !t.locking {
		return func() {}
	}
	t.m.mu.Lock()
	return t.m.mu.Unlock
}

func (t *memTx) Slots() SlotRepo { return &memSlotRepo{t} }

func (t *memTx) Registrations() RegistrationRepo { return &memRegistrationRepo{t} }

func (t *memTx) WaitingList() WaitingListRepo { return &memWaitingListRepo{t} }

func (t *memTx) Sessions() SessionRepo { return &memSessionRepo{t} }

func (t *memTx) Outbox() OutboxRepo { return &memOutboxRepo{t} }

// --- slots ---

type memSlotRepo struct{ tx *memTx }

func (r *memSlotRepo) Get(_ context.Context, id uuid.UUID) (*models.Slot, error) {
	defer r.tx.lock()()
	s, ok := r.tx.m.slots[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := s
	return &cp, nil
}

func (r *memSlotRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	return r.Get(ctx, id)
}

func (r *memSlotRepo) ListFrom(_ context.Context, from time.Time) ([]models.Slot, error) {
	defer r.tx.lock()()
	var list []models.Slot
	for _, s := range r.tx.m.slots {
		if !s.StartsAt.Before(from) {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.Before(list[j].StartsAt) })
	return list, nil
}

func (r *memSlotRepo) Create(_ context.Context, slot *models.Slot) error {
	defer r.tx.lock()()
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	if slot.Status == "" {
		slot.Status = models.SlotFree
	}
	slot.CreatedAt = time.Now().UTC()
	slot.UpdatedAt = slot.CreatedAt
	r.tx.m.slots[slot.ID] = *slot
	return nil
}

func (r *memSlotRepo) Update(_ context.Context, slot *models.Slot) error {
	defer r.tx.lock()()
	if _, ok := r.tx.m.slots[slot.ID]; !ok {
		return ErrNotFound
	}
	slot.UpdatedAt = time.Now().UTC()
	r.tx.m.slots[slot.ID] = *slot
	return nil
}

// --- registrations ---

type memRegistrationRepo struct{ tx *memTx }

func (r *memRegistrationRepo) Get(_ context.Context, slotID uuid.UUID, presenter string) (*models.Registration, error) {
	defer r.tx.lock()()
	reg, ok := r.tx.m.regs[regKey{slotID, presenter}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := reg
	return &cp, nil
}

func (r *memRegistrationRepo) GetByToken(_ context.Context, token string) (*models.Registration, error) {
	defer r.tx.lock()()
	for _, reg := range r.tx.m.regs {
		if reg.ApprovalToken != nil && *reg.ApprovalToken == token {
			cp := reg
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRegistrationRepo) ListBySlot(_ context.Context, slotID uuid.UUID) ([]models.Registration, error) {
	defer r.tx.lock()()
	var list []models.Registration
	for _, reg := range r.tx.m.regs {
		if reg.SlotID == slotID {
			list = append(list, reg)
		}
	}
	sortRegs(list)
	return list, nil
}

func (r *memRegistrationRepo) ListByPresenter(_ context.Context, presenter string) ([]models.Registration, error) {
	defer r.tx.lock()()
	var list []models.Registration
	for _, reg := range r.tx.m.regs {
		if reg.Presenter == presenter {
			list = append(list, reg)
		}
	}
	sortRegs(list)
	return list, nil
}

func sortRegs(list []models.Registration) {
	sort.Slice(list, func(i, j int) bool { return list[i].RegisteredAt.Before(list[j].RegisteredAt) })
}

func (r *memRegistrationRepo) Create(_ context.Context, reg *models.Registration) error {
	defer r.tx.lock()()
	key := regKey{reg.SlotID, reg.Presenter}
	if _, ok := r.tx.m.regs[key]; ok {
		return errDuplicate
	}
	r.tx.m.regs[key] = *reg
	return nil
}

func (r *memRegistrationRepo) Update(_ context.Context, reg *models.Registration) error {
	defer r.tx.lock()()
	key := regKey{reg.SlotID, reg.Presenter}
	if _, ok := r.tx.m.regs[key]; !ok {
		return ErrNotFound
	}
	r.tx.m.regs[key] = *reg
	return nil
}

func (r *memRegistrationRepo) Delete(_ context.Context, slotID uuid.UUID, presenter string) error {
	defer r.tx.lock()()
	key := regKey{slotID, presenter}
	if _, ok := r.tx.m.regs[key]; !ok {
		return ErrNotFound
	}
	delete(r.tx.m.regs, key)
	return nil
}

// --- waiting list ---

type memWaitingListRepo struct{ tx *memTx }

func (r *memWaitingListRepo) Get(_ context.Context, slotID uuid.UUID, presenter string) (*models.WaitingListEntry, error) {
	defer r.tx.lock()()
	e, ok := r.tx.m.waitlist[regKey{slotID, presenter}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := e
	return &cp, nil
}

func (r *memWaitingListRepo) FindByPresenter(_ context.Context, presenter string) (*models.WaitingListEntry, error) {
	defer r.tx.lock()()
	var found *models.WaitingListEntry
	for _, e := range r.tx.m.waitlist {
		if e.Presenter == presenter && (found == nil || e.AddedAt.Before(found.AddedAt)) {
			cp := e
			found = &cp
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *memWaitingListRepo) ListBySlot(_ context.Context, slotID uuid.UUID) ([]models.WaitingListEntry, error) {
	defer r.tx.lock()()
	var list []models.WaitingListEntry
	for _, e := range r.tx.m.waitlist {
		if e.SlotID == slotID {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Position < list[j].Position })
	return list, nil
}

func (r *memWaitingListRepo) Count(_ context.Context, slotID uuid.UUID) (int, error) {
	defer r.tx.lock()()
	n := 0
	for _, e := range r.tx.m.waitlist {
		if e.SlotID == slotID {
			n++
		}
	}
	return n, nil
}

func (r *memWaitingListRepo) Add(_ context.Context, entry *models.WaitingListEntry) error {
	defer r.tx.lock()()
	key := regKey{entry.SlotID, entry.Presenter}
	if _, ok := r.tx.m.waitlist[key]; ok {
		return errDuplicate
	}
	r.tx.m.waitlist[key] = *entry
	return nil
}

func (r *memWaitingListRepo) Remove(_ context.Context, slotID uuid.UUID, presenter string) error {
	defer r.tx.lock()()
	key := regKey{slotID, presenter}
	if _, ok := r.tx.m.waitlist[key]; !ok {
		return ErrNotFound
	}
	delete(r.tx.m.waitlist, key)
	return nil
}

func (r *memWaitingListRepo) DecrementPositionsAfter(_ context.Context, slotID uuid.UUID, position int) error {
	defer r.tx.lock()()
	for key, e := range r.tx.m.waitlist {
		if e.SlotID == slotID && e.Position > position {
			e.Position--
			r.tx.m.waitlist[key] = e
		}
	}
	return nil
}

// --- check-in sessions ---

type memSessionRepo struct{ tx *memTx }

func (r *memSessionRepo) Get(_ context.Context, id uuid.UUID) (*models.CheckinSession, error) {
	defer r.tx.lock()()
	s, ok := r.tx.m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := s
	return &cp, nil
}

func (r *memSessionRepo) FindOpenBySlot(_ context.Context, slotID uuid.UUID) (*models.CheckinSession, error) {
	defer r.tx.lock()()
	var found *models.CheckinSession
	for _, s := range r.tx.m.sessions {
		if s.SlotID == slotID && s.Status == models.SessionOpen {
			if found == nil || s.CreatedAt.After(found.CreatedAt) {
				cp := s
				found = &cp
			}
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *memSessionRepo) Create(_ context.Context, sess *models.CheckinSession) error {
	defer r.tx.lock()()
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	r.tx.m.sessions[sess.ID] = *sess
	return nil
}

func (r *memSessionRepo) Update(_ context.Context, sess *models.CheckinSession) error {
	defer r.tx.lock()()
	if _, ok := r.tx.m.sessions[sess.ID]; !ok {
		return ErrNotFound
	}
	r.tx.m.sessions[sess.ID] = *sess
	return nil
}

// --- outbox ---

type memOutboxRepo struct{ tx *memTx }

func (r *memOutboxRepo) Insert(_ context.Context, event domain.Event) error {
	defer r.tx.lock()()
	r.tx.m.events = append(r.tx.m.events, event)
	return nil
}
