package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/emaillogs"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/pkg/queue"
)

// EmailProcessor runs the worker side of the notifier: dequeue, send, record.
type EmailProcessor struct {
	sender Sender
	logs   *emaillogs.Repository
	queue  *queue.Queue
	logger *zap.Logger
}

// NewEmailProcessor creates an email worker.
func NewEmailProcessor(sender Sender, logs *emaillogs.Repository, q *queue.Queue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{sender: sender, logs: logs, queue: q, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	err := p.sender.Send(ctx, payload.RecipientEmail, payload.Subject, payload.BodyHTML)
	p.record(ctx, payload, err)
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", payload.EmailType, payload.RecipientEmail, err)
	}

	p.logger.Info("email sent",
		zap.String("email_type", payload.EmailType),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

func (p *EmailProcessor) record(ctx context.Context, payload queue.EmailPayload, sendErr error) {
	if p.logs == nil {
		return
	}
	log := &models.EmailLog{
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailSent,
	}
	if payload.SlotID != uuid.Nil {
		id := payload.SlotID
		log.SlotID = &id
	}
	if payload.Presenter != "" {
		presenter := payload.Presenter
		log.Presenter = &presenter
	}
	now := time.Now().UTC()
	if sendErr != nil {
		log.Status = models.EmailFailed
		log.ErrorMessage = sendErr.Error()
	} else {
		log.SentAt = &now
	}
	if err := p.logs.Insert(ctx, log); err != nil {
		p.logger.Warn("email log insert failed", zap.Error(err))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
