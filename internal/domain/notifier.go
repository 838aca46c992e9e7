package domain

import (
	"context"

	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

// Notifier dispatches outbound email/push messages. All methods are
// fire-and-forget: implementations enqueue and return quickly, and callers
// log returned errors without failing the state transition that triggered
// the notification.
type Notifier interface {
	// NotifySupervisorRequest asks the supervisor to approve or decline a
	// pending registration using the issued token.
	NotifySupervisorRequest(ctx context.Context, reg models.Registration, slot models.Slot, presenter models.Presenter) error

	// NotifyApproval tells the presenter their registration was approved or
	// declined.
	NotifyApproval(ctx context.Context, presenter models.Presenter, slot models.Slot, approved bool, reason string) error

	// NotifyPromotionOffer tells a presenter they were promoted from the
	// waiting list into a pending registration.
	NotifyPromotionOffer(ctx context.Context, presenter models.Presenter, slot models.Slot, reg models.Registration) error

	// NotifyCancellation tells a supervisor their student withdrew from a
	// waiting list or registration.
	NotifyCancellation(ctx context.Context, supervisorEmail string, details CancellationDetails) error
}

// CancellationDetails describes a withdrawal for the supervisor notice.
type CancellationDetails struct {
	Presenter string
	SlotID    string
	SlotLabel string
	Topic     string
}

// NopNotifier drops every notification. Used when the queue is not configured
// and as a test default.
type NopNotifier struct{}

func (NopNotifier) NotifySupervisorRequest(context.Context, models.Registration, models.Slot, models.Presenter) error {
	return nil
}
func (NopNotifier) NotifyApproval(context.Context, models.Presenter, models.Slot, bool, string) error {
	return nil
}
func (NopNotifier) NotifyPromotionOffer(context.Context, models.Presenter, models.Slot, models.Registration) error {
	return nil
}
func (NopNotifier) NotifyCancellation(context.Context, string, CancellationDetails) error {
	return nil
}
