package attendance

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

var slotStart = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func testResolver() presenters.MapResolver {
	return presenters.MapResolver{
		"dana": {Username: "dana", Email: "dana@example.ac.il", Degree: models.DegreeMSc},
		"noa":  {Username: "noa", Email: "noa@example.ac.il", Degree: models.DegreeMSc},
	}
}

func newTestService(t *testing.T) (*Service, *store.Memory, *testClock, uuid.UUID) {
	t.Helper()
	st := store.NewMemory()
	clock := &testClock{t: slotStart.Add(-time.Hour)}
	svc := NewService(st, testResolver(), clock, Config{PublicBaseURL: "https://semscan.example.ac.il"}, nil)

	slot := &models.Slot{StartsAt: slotStart, Capacity: 2}
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.Slots().Create(ctx, slot); err != nil {
			return err
		}
		for _, p := range []string{"dana", "noa"} {
			reg := &models.Registration{
				SlotID:         slot.ID,
				Presenter:      p,
				Degree:         models.DegreeMSc,
				ApprovalStatus: models.ApprovalApproved,
				RegisteredAt:   clock.Now(),
			}
			if err := tx.Registrations().Create(ctx, reg); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	return svc, st, clock, slot.ID
}

func TestOpenTooEarly(t *testing.T) {
	svc, _, clock, slotID := newTestService(t)
	clock.t = slotStart.Add(-11 * time.Minute)

	_, err := svc.Open(context.Background(), "dana", slotID)
	if !domain.IsKind(err, domain.KindTooEarly) {
		t.Fatalf("err = %v, want TOO_EARLY", err)
	}
	boundary, ok := domain.Boundary(err)
	if !ok || !boundary.Equal(slotStart.Add(-10*time.Minute)) {
		t.Errorf("boundary = %v, want window open instant", boundary)
	}
}

func TestOpenAtWindowBoundary(t *testing.T) {
	svc, _, clock, slotID := newTestService(t)
	clock.t = slotStart.Add(-10 * time.Minute)

	res, err := svc.Open(context.Background(), "dana", slotID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if res.Outcome != OutcomeOpened {
		t.Errorf("outcome = %s, want OPENED", res.Outcome)
	}
	if !res.ClosesAt.Equal(clock.t.Add(15 * time.Minute)) {
		t.Errorf("closes at %v, want open + 15m", res.ClosesAt)
	}
	id, ok := ParseQRContent(res.QRContent)
	if !ok || id != res.SessionID {
		t.Errorf("qr content %q does not round-trip the session id", res.QRContent)
	}
	if res.QRURL != "https://semscan.example.ac.il/attend/"+res.SessionID.String() {
		t.Errorf("qr url = %q", res.QRURL)
	}
}

func TestOpenIsIdempotentForOpener(t *testing.T) {
	svc, _, clock, slotID := newTestService(t)
	ctx := context.Background()
	clock.t = slotStart

	first, err := svc.Open(ctx, "dana", slotID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	clock.t = clock.t.Add(5 * time.Minute)
	second, err := svc.Open(ctx, "dana", slotID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if second.Outcome != OutcomeAlreadyOpen {
		t.Errorf("outcome = %s, want ALREADY_OPEN", second.Outcome)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session id changed on reopen: %s vs %s", second.SessionID, first.SessionID)
	}
	if !second.ClosesAt.Equal(first.ClosesAt) {
		t.Errorf("reopen moved the window: %v vs %v", second.ClosesAt, first.ClosesAt)
	}
}

func TestOpenBlockedWhileAnotherSessionLive(t *testing.T) {
	svc, _, clock, slotID := newTestService(t)
	ctx := context.Background()
	clock.t = slotStart

	if _, err := svc.Open(ctx, "dana", slotID); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := svc.Open(ctx, "noa", slotID)
	if !domain.IsKind(err, domain.KindInProgress) {
		t.Fatalf("err = %v, want IN_PROGRESS", err)
	}
}

func TestOpenReplacesElapsedSession(t *testing.T) {
	svc, st, clock, slotID := newTestService(t)
	ctx := context.Background()
	clock.t = slotStart

	first, err := svc.Open(ctx, "dana", slotID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	clock.t = first.ClosesAt.Add(time.Minute)

	second, err := svc.Open(ctx, "noa", slotID)
	if err != nil {
		t.Fatalf("open after window: %v", err)
	}
	if second.Outcome != OutcomeOpened || second.SessionID == first.SessionID {
		t.Errorf("stale session was not replaced: %+v", second)
	}

	old, err := st.Read().Sessions().Get(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("get old session: %v", err)
	}
	if old.Status != models.SessionClosed {
		t.Errorf("old session status = %s, want CLOSED", old.Status)
	}
}

func TestOpenRequiresRegistration(t *testing.T) {
	svc, st, clock, _ := newTestService(t)
	clock.t = slotStart

	other := &models.Slot{StartsAt: slotStart, Capacity: 1}
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Slots().Create(ctx, other)
	})
	if err != nil {
		t.Fatalf("create slot: %v", err)
	}
	_, err = svc.Open(context.Background(), "dana", other.ID)
	if !domain.IsKind(err, domain.KindNotRegistered) {
		t.Fatalf("err = %v, want NOT_REGISTERED", err)
	}
}

func TestOpenTooLate(t *testing.T) {
	svc, st, clock, slotID := newTestService(t)
	ctx := context.Background()

	ends := slotStart.Add(2 * time.Hour)
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		slot, err := tx.Slots().Get(ctx, slotID)
		if err != nil {
			return err
		}
		slot.EndsAt = &ends
		return tx.Slots().Update(ctx, slot)
	})
	if err != nil {
		t.Fatalf("set end: %v", err)
	}
	clock.t = ends.Add(time.Minute)

	_, err = svc.Open(ctx, "dana", slotID)
	if !domain.IsKind(err, domain.KindTooLate) {
		t.Fatalf("err = %v, want TOO_LATE", err)
	}
}

func TestStatusLazilyClosesElapsedSession(t *testing.T) {
	svc, st, clock, slotID := newTestService(t)
	ctx := context.Background()
	clock.t = slotStart

	res, err := svc.Open(ctx, "dana", slotID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	status, err := svc.Status(ctx, slotID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Open || status.SessionID == nil || *status.SessionID != res.SessionID {
		t.Errorf("status = %+v, want live session", status)
	}

	clock.t = res.ClosesAt.Add(time.Second)
	status, err = svc.Status(ctx, slotID)
	if err != nil {
		t.Fatalf("status after window: %v", err)
	}
	if status.Open {
		t.Error("session still reported open after its window elapsed")
	}

	sess, err := st.Read().Sessions().Get(ctx, res.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess.Status != models.SessionClosed {
		t.Errorf("session status = %s, want CLOSED", sess.Status)
	}
	slot, err := st.Read().Slots().Get(ctx, slotID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.SessionID != nil || slot.AttendanceClosesAt != nil {
		t.Error("slot attendance fields not cleared")
	}
}

func TestOpenNoSchedule(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()

	bare := &models.Slot{Capacity: 1}
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Slots().Create(ctx, bare); err != nil {
			return err
		}
		return tx.Registrations().Create(ctx, &models.Registration{
			SlotID:         bare.ID,
			Presenter:      "dana",
			Degree:         models.DegreeMSc,
			ApprovalStatus: models.ApprovalApproved,
		})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err = svc.Open(ctx, "dana", bare.ID)
	if !domain.IsKind(err, domain.KindNoSchedule) {
		t.Fatalf("err = %v, want NO_SCHEDULE", err)
	}
}
