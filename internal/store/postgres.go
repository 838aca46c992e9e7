package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the repositories
// can serve transactional and plain reads with the same code.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Store on a pgx connection pool. Per-slot serialization
// comes from SELECT ... FOR UPDATE on the slot row inside WithTx.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// WithTx runs fn inside a read-committed transaction.
func (s *Postgres) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Read returns repositories bound to the pool for non-transactional reads.
func (s *Postgres) Read() Tx { return &pgTx{q: s.pool} }

type pgTx struct {
	q querier
}

func (t *pgTx) Slots() SlotRepo { return &pgSlotRepo{q: t.q} }

func (t *pgTx) Registrations() RegistrationRepo { return &pgRegistrationRepo{q: t.q} }

func (t *pgTx) WaitingList() WaitingListRepo { return &pgWaitingListRepo{q: t.q} }

func (t *pgTx) Sessions() SessionRepo { return &pgSessionRepo{q: t.q} }

func (t *pgTx) Outbox() OutboxRepo { return &pgOutboxRepo{q: t.q} }

// --- slots ---

type pgSlotRepo struct {
	q querier
}

const slotColumns = `id, semester_label, starts_at, ends_at, building, room, capacity, status,
	session_id, attendance_opened_at, attendance_closes_at, attendance_opened_by, created_at, updated_at`

func scanSlot(row pgx.Row) (*models.Slot, error) {
	var s models.Slot
	err := row.Scan(&s.ID, &s.SemesterLabel, &s.StartsAt, &s.EndsAt, &s.Building, &s.Room,
		&s.Capacity, &s.Status, &s.SessionID, &s.AttendanceOpenedAt, &s.AttendanceClosesAt,
		&s.AttendanceOpenedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *pgSlotRepo) Get(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`
	return scanSlot(r.q.QueryRow(ctx, q, id))
}

func (r *pgSlotRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1 FOR UPDATE`
	return scanSlot(r.q.QueryRow(ctx, q, id))
}

func (r *pgSlotRepo) ListFrom(ctx context.Context, from time.Time) ([]models.Slot, error) {
	q := `SELECT ` + slotColumns + ` FROM slots WHERE starts_at >= $1 ORDER BY starts_at`
	rows, err := r.q.Query(ctx, q, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

func (r *pgSlotRepo) Create(ctx context.Context, slot *models.Slot) error {
	const q = `INSERT INTO slots (id, semester_label, starts_at, ends_at, building, room, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	if slot.Status == "" {
		slot.Status = models.SlotFree
	}
	return r.q.QueryRow(ctx, q, slot.ID, slot.SemesterLabel, slot.StartsAt, slot.EndsAt,
		slot.Building, slot.Room, slot.Capacity, slot.Status).Scan(&slot.CreatedAt, &slot.UpdatedAt)
}

func (r *pgSlotRepo) Update(ctx context.Context, slot *models.Slot) error {
	const q = `UPDATE slots SET semester_label = $2, starts_at = $3, ends_at = $4, building = $5,
		room = $6, capacity = $7, status = $8, session_id = $9, attendance_opened_at = $10,
		attendance_closes_at = $11, attendance_opened_by = $12, updated_at = NOW()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q, slot.ID, slot.SemesterLabel, slot.StartsAt, slot.EndsAt,
		slot.Building, slot.Room, slot.Capacity, slot.Status, slot.SessionID,
		slot.AttendanceOpenedAt, slot.AttendanceClosesAt, slot.AttendanceOpenedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- registrations ---

type pgRegistrationRepo struct {
	q querier
}

const regColumns = `slot_id, presenter_username, degree, topic, supervisor_name, supervisor_email,
	registered_at, approval_status, approval_token, token_expires_at, decided_at, decline_reason`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.SlotID, &reg.Presenter, &reg.Degree, &reg.Topic, &reg.SupervisorName,
		&reg.SupervisorEmail, &reg.RegisteredAt, &reg.ApprovalStatus, &reg.ApprovalToken,
		&reg.TokenExpiresAt, &reg.DecidedAt, &reg.DeclineReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *pgRegistrationRepo) Get(ctx context.Context, slotID uuid.UUID, presenter string) (*models.Registration, error) {
	q := `SELECT ` + regColumns + ` FROM registrations WHERE slot_id = $1 AND presenter_username = $2`
	return scanRegistration(r.q.QueryRow(ctx, q, slotID, presenter))
}

func (r *pgRegistrationRepo) GetByToken(ctx context.Context, token string) (*models.Registration, error) {
	q := `SELECT ` + regColumns + ` FROM registrations WHERE approval_token = $1`
	return scanRegistration(r.q.QueryRow(ctx, q, token))
}

func (r *pgRegistrationRepo) listWhere(ctx context.Context, where string, arg any) ([]models.Registration, error) {
	q := `SELECT ` + regColumns + ` FROM registrations WHERE ` + where + ` ORDER BY registered_at`
	rows, err := r.q.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *reg)
	}
	return list, rows.Err()
}

func (r *pgRegistrationRepo) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]models.Registration, error) {
	return r.listWhere(ctx, "slot_id = $1", slotID)
}

func (r *pgRegistrationRepo) ListByPresenter(ctx context.Context, presenter string) ([]models.Registration, error) {
	return r.listWhere(ctx, "presenter_username = $1", presenter)
}

func (r *pgRegistrationRepo) Create(ctx context.Context, reg *models.Registration) error {
	const q = `INSERT INTO registrations (slot_id, presenter_username, degree, topic,
		supervisor_name, supervisor_email, registered_at, approval_status, approval_token, token_expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, q, reg.SlotID, reg.Presenter, reg.Degree, reg.Topic,
		reg.SupervisorName, reg.SupervisorEmail, reg.RegisteredAt, reg.ApprovalStatus,
		reg.ApprovalToken, reg.TokenExpiresAt)
	return err
}

func (r *pgRegistrationRepo) Update(ctx context.Context, reg *models.Registration) error {
	const q = `UPDATE registrations SET degree = $3, topic = $4, supervisor_name = $5,
		supervisor_email = $6, approval_status = $7, approval_token = $8, token_expires_at = $9,
		decided_at = $10, decline_reason = $11
		WHERE slot_id = $1 AND presenter_username = $2`
	tag, err := r.q.Exec(ctx, q, reg.SlotID, reg.Presenter, reg.Degree, reg.Topic,
		reg.SupervisorName, reg.SupervisorEmail, reg.ApprovalStatus, reg.ApprovalToken,
		reg.TokenExpiresAt, reg.DecidedAt, reg.DeclineReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRegistrationRepo) Delete(ctx context.Context, slotID uuid.UUID, presenter string) error {
	const q = `DELETE FROM registrations WHERE slot_id = $1 AND presenter_username = $2`
	tag, err := r.q.Exec(ctx, q, slotID, presenter)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- waiting list ---

type pgWaitingListRepo struct {
	q querier
}

const wlColumns = `slot_id, presenter_username, degree, topic, supervisor_name, supervisor_email,
	position, added_at`

func scanWaitingEntry(row pgx.Row) (*models.WaitingListEntry, error) {
	var e models.WaitingListEntry
	err := row.Scan(&e.SlotID, &e.Presenter, &e.Degree, &e.Topic, &e.SupervisorName,
		&e.SupervisorEmail, &e.Position, &e.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *pgWaitingListRepo) Get(ctx context.Context, slotID uuid.UUID, presenter string) (*models.WaitingListEntry, error) {
	q := `SELECT ` + wlColumns + ` FROM waiting_list WHERE slot_id = $1 AND presenter_username = $2`
	return scanWaitingEntry(r.q.QueryRow(ctx, q, slotID, presenter))
}

func (r *pgWaitingListRepo) FindByPresenter(ctx context.Context, presenter string) (*models.WaitingListEntry, error) {
	q := `SELECT ` + wlColumns + ` FROM waiting_list WHERE presenter_username = $1 ORDER BY added_at LIMIT 1`
	return scanWaitingEntry(r.q.QueryRow(ctx, q, presenter))
}

func (r *pgWaitingListRepo) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]models.WaitingListEntry, error) {
	q := `SELECT ` + wlColumns + ` FROM waiting_list WHERE slot_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, q, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.WaitingListEntry
	for rows.Next() {
		e, err := scanWaitingEntry(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

func (r *pgWaitingListRepo) Count(ctx context.Context, slotID uuid.UUID) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM waiting_list WHERE slot_id = $1`, slotID).Scan(&n)
	return n, err
}

func (r *pgWaitingListRepo) Add(ctx context.Context, entry *models.WaitingListEntry) error {
	const q = `INSERT INTO waiting_list (slot_id, presenter_username, degree, topic,
		supervisor_name, supervisor_email, position, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, q, entry.SlotID, entry.Presenter, entry.Degree, entry.Topic,
		entry.SupervisorName, entry.SupervisorEmail, entry.Position, entry.AddedAt)
	return err
}

func (r *pgWaitingListRepo) Remove(ctx context.Context, slotID uuid.UUID, presenter string) error {
	const q = `DELETE FROM waiting_list WHERE slot_id = $1 AND presenter_username = $2`
	tag, err := r.q.Exec(ctx, q, slotID, presenter)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgWaitingListRepo) DecrementPositionsAfter(ctx context.Context, slotID uuid.UUID, position int) error {
	const q = `UPDATE waiting_list SET position = position - 1 WHERE slot_id = $1 AND position > $2`
	_, err := r.q.Exec(ctx, q, slotID, position)
	return err
}

// --- check-in sessions ---

type pgSessionRepo struct {
	q querier
}

const sessionColumns = `id, slot_id, opened_by, starts_at, ends_at, status, created_at`

func scanSession(row pgx.Row) (*models.CheckinSession, error) {
	var s models.CheckinSession
	err := row.Scan(&s.ID, &s.SlotID, &s.OpenedBy, &s.StartsAt, &s.EndsAt, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *pgSessionRepo) Get(ctx context.Context, id uuid.UUID) (*models.CheckinSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM checkin_sessions WHERE id = $1`
	return scanSession(r.q.QueryRow(ctx, q, id))
}

func (r *pgSessionRepo) FindOpenBySlot(ctx context.Context, slotID uuid.UUID) (*models.CheckinSession, error) {
	q := `SELECT ` + sessionColumns + ` FROM checkin_sessions
		WHERE slot_id = $1 AND status = 'OPEN' ORDER BY created_at DESC LIMIT 1`
	return scanSession(r.q.QueryRow(ctx, q, slotID))
}

func (r *pgSessionRepo) Create(ctx context.Context, sess *models.CheckinSession) error {
	const q = `INSERT INTO checkin_sessions (id, slot_id, opened_by, starts_at, ends_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	return r.q.QueryRow(ctx, q, sess.ID, sess.SlotID, sess.OpenedBy, sess.StartsAt,
		sess.EndsAt, sess.Status).Scan(&sess.CreatedAt)
}

func (r *pgSessionRepo) Update(ctx context.Context, sess *models.CheckinSession) error {
	const q = `UPDATE checkin_sessions SET ends_at = $2, status = $3 WHERE id = $1`
	tag, err := r.q.Exec(ctx, q, sess.ID, sess.EndsAt, sess.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- outbox ---

type pgOutboxRepo struct {
	q querier
}

func (r *pgOutboxRepo) Insert(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	const q = `INSERT INTO outbox_events (id, event_type, slot_id, presenter_username, payload, occurred_at, published)
		VALUES ($1, $2, $3, $4, $5, $6, false)`
	_, err = r.q.Exec(ctx, q, event.ID, event.Type, nilUUID(event.SlotID), nilStr(event.Presenter), payload, event.OccurredAt)
	return err
}

func nilUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nilStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
