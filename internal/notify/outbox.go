package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/pkg/queue"
)

// outboxEvent mirrors one outbox_events row on the wire.
type outboxEvent struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	SlotID     *uuid.UUID      `json:"slot_id,omitempty"`
	Presenter  *string         `json:"presenter,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// OutboxDrainer moves committed domain events from the outbox table onto the
// event queue for external collectors. Draining is at-least-once: rows are
// marked published in the same transaction that read them, after the enqueue
// succeeded.
type OutboxDrainer struct {
	pool     *pgxpool.Pool
	queue    *queue.Queue
	interval time.Duration
	logger   *zap.Logger
}

// NewOutboxDrainer creates a drainer polling at the given interval.
func NewOutboxDrainer(pool *pgxpool.Pool, q *queue.Queue, interval time.Duration, logger *zap.Logger) *OutboxDrainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDrainer{pool: pool, queue: q, interval: interval, logger: logger}
}

// Run polls until ctx is done.
func (d *OutboxDrainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox drainer stopping")
			return
		case <-ticker.C:
			if n, err := d.drainOnce(ctx); err != nil {
				d.logger.Warn("outbox drain failed", zap.Error(err))
			} else if n > 0 {
				d.logger.Debug("outbox drained", zap.Int("events", n))
			}
		}
	}
}

func (d *OutboxDrainer) drainOnce(ctx context.Context) (int, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `SELECT id, event_type, slot_id, presenter_username, payload, occurred_at
		FROM outbox_events
		WHERE published = false
		ORDER BY occurred_at
		LIMIT 100
		FOR UPDATE SKIP LOCKED`
	rows, err := tx.Query(ctx, q)
	if err != nil {
		return 0, err
	}
	var events []outboxEvent
	for rows.Next() {
		var ev outboxEvent
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.SlotID, &ev.Presenter, &ev.Payload, &ev.OccurredAt); err != nil {
			rows.Close()
			return 0, err
		}
		events = append(events, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(events))
	for i := range events {
		if err := d.queue.EnqueueEvent(ctx, events[i]); err != nil {
			return 0, err
		}
		ids = append(ids, events[i].ID)
	}
	if _, err := tx.Exec(ctx, `UPDATE outbox_events SET published = true, published_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(events), nil
}
