package emaillogs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records one delivery attempt.
func (r *Repository) Insert(ctx context.Context, log *models.EmailLog) error {
	const q = `INSERT INTO email_logs (id, slot_id, presenter_username, email_type, recipient_email, subject, status, sent_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	var errMsg *string
	if log.ErrorMessage != "" {
		errMsg = &log.ErrorMessage
	}
	return r.pool.QueryRow(ctx, q, log.ID, log.SlotID, log.Presenter, log.EmailType,
		log.RecipientEmail, log.Subject, log.Status, log.SentAt, errMsg).Scan(&log.CreatedAt)
}

// ListBySlot returns email logs for a slot, newest first.
func (r *Repository) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT id, slot_id, presenter_username, email_type, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs
		WHERE slot_id = $1
		ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.EmailLog
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.SlotID, &el.Presenter, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, err
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, &el)
	}
	return list, rows.Err()
}
