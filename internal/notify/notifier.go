// Package notify turns domain notifications into email jobs on the Redis
// queue and runs the worker side that delivers them. Enqueueing is the only
// thing the lifecycle services wait on; SMTP happens in the worker.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/pkg/queue"
)

// Email type tags recorded on jobs and email logs.
const (
	TypeSupervisorRequest = "supervisor_request"
	TypeApprovalDecision  = "approval_decision"
	TypePromotionOffer    = "promotion_offer"
	TypeCancellation      = "cancellation"
)

// QueueNotifier implements domain.Notifier by enqueueing email jobs.
type QueueNotifier struct {
	queue   *queue.Queue
	baseURL string
	logger  *zap.Logger
}

// NewQueueNotifier creates a notifier that hands emails to the worker queue.
// baseURL prefixes the approve/decline links embedded in supervisor emails.
func NewQueueNotifier(q *queue.Queue, baseURL string, logger *zap.Logger) *QueueNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueNotifier{queue: q, baseURL: baseURL, logger: logger}
}

func (n *QueueNotifier) NotifySupervisorRequest(ctx context.Context, reg models.Registration, slot models.Slot, presenter models.Presenter) error {
	if reg.SupervisorEmail == "" || reg.ApprovalToken == nil {
		return nil
	}
	return n.queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      TypeSupervisorRequest,
		SlotID:         slot.ID,
		Presenter:      presenter.Username,
		RecipientEmail: reg.SupervisorEmail,
		Subject:        fmt.Sprintf("Approval needed: %s, seminar slot %s", presenter.FullName(), slotLabel(slot)),
		BodyHTML:       supervisorRequestBody(n.baseURL, reg, slot, presenter),
	})
}

func (n *QueueNotifier) NotifyApproval(ctx context.Context, presenter models.Presenter, slot models.Slot, approved bool, reason string) error {
	if presenter.Email == "" {
		n.logger.Debug("approval notice skipped, presenter has no email", zap.String("presenter", presenter.Username))
		return nil
	}
	subject := fmt.Sprintf("Your seminar registration for %s was approved", slotLabel(slot))
	if !approved {
		subject = fmt.Sprintf("Your seminar registration for %s was declined", slotLabel(slot))
	}
	return n.queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      TypeApprovalDecision,
		SlotID:         slot.ID,
		Presenter:      presenter.Username,
		RecipientEmail: presenter.Email,
		Subject:        subject,
		BodyHTML:       approvalDecisionBody(presenter, slot, approved, reason),
	})
}

func (n *QueueNotifier) NotifyPromotionOffer(ctx context.Context, presenter models.Presenter, slot models.Slot, reg models.Registration) error {
	if presenter.Email == "" {
		return nil
	}
	return n.queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      TypePromotionOffer,
		SlotID:         slot.ID,
		Presenter:      presenter.Username,
		RecipientEmail: presenter.Email,
		Subject:        fmt.Sprintf("A seat opened up: %s", slotLabel(slot)),
		BodyHTML:       promotionOfferBody(presenter, slot, reg),
	})
}

func (n *QueueNotifier) NotifyCancellation(ctx context.Context, supervisorEmail string, details domain.CancellationDetails) error {
	if supervisorEmail == "" {
		return nil
	}
	slotID, _ := uuid.Parse(details.SlotID)
	return n.queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      TypeCancellation,
		SlotID:         slotID,
		Presenter:      details.Presenter,
		RecipientEmail: supervisorEmail,
		Subject:        fmt.Sprintf("Seminar withdrawal: %s", details.Presenter),
		BodyHTML:       cancellationBody(details),
	})
}
