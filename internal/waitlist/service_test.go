package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
	"github.com/benariet/SemScan-Project-sub001/internal/presenters"
	"github.com/benariet/SemScan-Project-sub001/internal/store"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

type cancellationRecorder struct {
	domain.NopNotifier
	emails []string
}

func (n *cancellationRecorder) NotifyCancellation(_ context.Context, email string, _ domain.CancellationDetails) error {
	n.emails = append(n.emails, email)
	return nil
}

func testResolver() presenters.MapResolver {
	return presenters.MapResolver{
		"dana": {Username: "dana", Email: "dana@example.ac.il", Degree: models.DegreeMSc},
		"noa":  {Username: "noa", Email: "noa@example.ac.il", Degree: models.DegreeMSc},
		"omer": {Username: "omer", Email: "omer@example.ac.il", Degree: models.DegreeMSc},
	}
}

func newTestService(t *testing.T) (*Service, *store.Memory, *cancellationRecorder, uuid.UUID) {
	t.Helper()
	st := store.NewMemory()
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &cancellationRecorder{}
	svc := NewService(st, testResolver(), notifier, clock, nil)

	slot := &models.Slot{StartsAt: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC), Capacity: 1}
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Slots().Create(ctx, slot)
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	return svc, st, notifier, slot.ID
}

func TestAddAssignsDensePositions(t *testing.T) {
	svc, _, _, slotID := newTestService(t)
	ctx := context.Background()

	for i, handle := range []string{"dana", "noa", "omer"} {
		entry, err := svc.Add(ctx, handle, slotID, AddInput{})
		if err != nil {
			t.Fatalf("add %s: %v", handle, err)
		}
		if entry.Position != i+1 {
			t.Errorf("%s position = %d, want %d", handle, entry.Position, i+1)
		}
	}
}

func TestRemoveRenumbersBehind(t *testing.T) {
	svc, _, _, slotID := newTestService(t)
	ctx := context.Background()

	for _, handle := range []string{"dana", "noa", "omer"} {
		if _, err := svc.Add(ctx, handle, slotID, AddInput{}); err != nil {
			t.Fatalf("add %s: %v", handle, err)
		}
	}
	if err := svc.Remove(ctx, "noa", slotID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	entries, err := svc.List(ctx, slotID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Presenter != "dana" || entries[0].Position != 1 {
		t.Errorf("head = %s@%d, want dana@1", entries[0].Presenter, entries[0].Position)
	}
	if entries[1].Presenter != "omer" || entries[1].Position != 2 {
		t.Errorf("tail = %s@%d, want omer@2", entries[1].Presenter, entries[1].Position)
	}
}

func TestRemoveNotOnList(t *testing.T) {
	svc, _, _, slotID := newTestService(t)

	err := svc.Remove(context.Background(), "dana", slotID)
	if !domain.IsKind(err, domain.KindNotOnWaitingList) {
		t.Fatalf("err = %v, want NOT_ON_WAITING_LIST", err)
	}
}

func TestAddRejectsRegisteredPresenter(t *testing.T) {
	svc, st, _, slotID := newTestService(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Registrations().Create(ctx, &models.Registration{
			SlotID:         slotID,
			Presenter:      "dana",
			Degree:         models.DegreeMSc,
			ApprovalStatus: models.ApprovalApproved,
		})
	})
	if err != nil {
		t.Fatalf("seed registration: %v", err)
	}

	_, err = svc.Add(ctx, "dana", slotID, AddInput{})
	if !domain.IsKind(err, domain.KindAlreadyInSlot) {
		t.Fatalf("err = %v, want ALREADY_IN_SLOT", err)
	}
}

func TestAddEnforcesOneListRule(t *testing.T) {
	svc, st, _, slotID := newTestService(t)
	ctx := context.Background()

	other := &models.Slot{StartsAt: time.Date(2026, 3, 22, 10, 0, 0, 0, time.UTC), Capacity: 1}
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.Slots().Create(ctx, other)
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}

	if _, err := svc.Add(ctx, "dana", slotID, AddInput{}); err != nil {
		t.Fatalf("add: %v", err)
	}
	_, err = svc.Add(ctx, "dana", other.ID, AddInput{})
	if !domain.IsKind(err, domain.KindAlreadyOnWaitingList) {
		t.Fatalf("second list: err = %v, want ALREADY_ON_WAITING_LIST", err)
	}
	_, err = svc.Add(ctx, "dana", slotID, AddInput{})
	if !domain.IsKind(err, domain.KindAlreadyOnWaitingList) {
		t.Fatalf("same list: err = %v, want ALREADY_ON_WAITING_LIST", err)
	}
}

func TestRemoveNotifiesSupervisorOnRecord(t *testing.T) {
	svc, _, notifier, slotID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Add(ctx, "dana", slotID, AddInput{SupervisorEmail: "sup@example.ac.il"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Remove(ctx, "dana", slotID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(notifier.emails) != 1 || notifier.emails[0] != "sup@example.ac.il" {
		t.Errorf("cancellation emails = %v, want [sup@example.ac.il]", notifier.emails)
	}
}

func TestPromoteNextPopsHead(t *testing.T) {
	svc, st, _, slotID := newTestService(t)
	ctx := context.Background()

	for _, handle := range []string{"dana", "noa"} {
		if _, err := svc.Add(ctx, handle, slotID, AddInput{}); err != nil {
			t.Fatalf("add %s: %v", handle, err)
		}
	}

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		head, err := PromoteNext(ctx, tx, slotID, now)
		if err != nil {
			return err
		}
		if head == nil || head.Presenter != "dana" {
			t.Errorf("head = %+v, want dana", head)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}

	entries, err := svc.List(ctx, slotID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Presenter != "noa" || entries[0].Position != 1 {
		t.Errorf("entries = %+v, want noa at 1", entries)
	}

	err = st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := PromoteNext(ctx, tx, slotID, now); err != nil {
			return err
		}
		head, err := PromoteNext(ctx, tx, slotID, now)
		if err != nil {
			return err
		}
		if head != nil {
			t.Errorf("head = %+v, want nil on empty list", head)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
}
