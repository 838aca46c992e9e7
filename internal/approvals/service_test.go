package approvals

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

type decisionRecorder struct {
	domain.NopNotifier
	approved []bool
	requests []string
}

func (n *decisionRecorder) NotifyApproval(_ context.Context, _ models.Presenter, _ models.Slot, approved bool, _ string) error {
	n.approved = append(n.approved, approved)
	return nil
}

func (n *decisionRecorder) NotifySupervisorRequest(_ context.Context, reg models.Registration, _ models.Slot, _ models.Presenter) error {
	n.requests = append(n.requests, reg.Presenter)
	return nil
}

func testResolver() presenters.MapResolver {
	return presenters.MapResolver{
		"dana": {Username: "dana", Email: "dana@example.ac.il", Degree: models.DegreeMSc},
	}
}

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *store.Memory, *testClock, *decisionRecorder) {
	t.Helper()
	st := store.NewMemory()
	clock := &testClock{t: testStart}
	notifier := &decisionRecorder{}
	svc := NewService(st, testResolver(), notifier, clock, Config{TokenTTL: 24 * time.Hour}, nil)
	return svc, st, clock, notifier
}

// seedPending creates a slot and a pending registration with an issued token,
// returning the slot id and the token.
func seedPending(t *testing.T, st *store.Memory, now time.Time, presenter string) (uuid.UUID, string) {
	t.Helper()
	slot := &models.Slot{StartsAt: now.AddDate(0, 0, 14), Capacity: 1}
	var token string
	err := st.WithTx(context.Background(), func(ctx context.Context, tx store.Tx) error {
		if err := tx.Slots().Create(ctx, slot); err != nil {
			return err
		}
		reg := &models.Registration{
			SlotID:          slot.ID,
			Presenter:       presenter,
			Degree:          models.DegreeMSc,
			SupervisorEmail: "sup@example.ac.il",
			RegisteredAt:    now,
		}
		if err := IssueToken(reg, now, 24*time.Hour); err != nil {
			return err
		}
		token = *reg.ApprovalToken
		if err := tx.Registrations().Create(ctx, reg); err != nil {
			return err
		}
		slot.Status = models.ComputeSlotStatus(slot.Capacity, []models.Registration{*reg}, now)
		return tx.Slots().Update(ctx, slot)
	})
	if err != nil {
		t.Fatalf("seed pending registration: %v", err)
	}
	return slot.ID, token
}

func TestApproveByToken(t *testing.T) {
	svc, st, _, notifier := newTestService(t)
	ctx := context.Background()
	slotID, token := seedPending(t, st, testStart, "dana")

	decision, err := svc.Approve(ctx, token)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decision.Status != models.ApprovalApproved || decision.SlotID != slotID || decision.Presenter != "dana" {
		t.Errorf("decision = %+v", decision)
	}

	reg, err := st.Read().Registrations().Get(ctx, slotID, "dana")
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if reg.ApprovalStatus != models.ApprovalApproved {
		t.Errorf("status = %s, want APPROVED", reg.ApprovalStatus)
	}
	if reg.DecidedAt == nil {
		t.Error("DecidedAt not stamped")
	}
	if len(notifier.approved) != 1 || !notifier.approved[0] {
		t.Errorf("approval notices = %v, want [true]", notifier.approved)
	}
}

func TestDeclineRecordsReasonAndFreesSeat(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()
	slotID, token := seedPending(t, st, testStart, "dana")

	decision, err := svc.Decline(ctx, token, "topic out of scope")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if decision.Status != models.ApprovalDeclined {
		t.Errorf("status = %s, want DECLINED", decision.Status)
	}

	reg, err := st.Read().Registrations().Get(ctx, slotID, "dana")
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if reg.DeclineReason == nil || *reg.DeclineReason != "topic out of scope" {
		t.Errorf("reason = %v", reg.DeclineReason)
	}

	slot, err := st.Read().Slots().Get(ctx, slotID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Status != models.SlotFree {
		t.Errorf("slot status = %s, want FREE after decline", slot.Status)
	}
}

func TestDecisionIsFinal(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()
	_, token := seedPending(t, st, testStart, "dana")

	if _, err := svc.Decline(ctx, token, "no"); err != nil {
		t.Fatalf("decline: %v", err)
	}
	_, err := svc.Approve(ctx, token)
	if !domain.IsKind(err, domain.KindNotPending) {
		t.Fatalf("approve after decline: err = %v, want NOT_PENDING", err)
	}
	_, err = svc.Decline(ctx, token, "again")
	if !domain.IsKind(err, domain.KindNotPending) {
		t.Fatalf("second decline: err = %v, want NOT_PENDING", err)
	}
}

func TestExpiredTokenFlipsExactlyOnce(t *testing.T) {
	svc, st, clock, _ := newTestService(t)
	ctx := context.Background()
	slotID, token := seedPending(t, st, testStart, "dana")

	clock.t = testStart.Add(25 * time.Hour)

	_, err := svc.Approve(ctx, token)
	if !domain.IsKind(err, domain.KindTokenExpired) {
		t.Fatalf("err = %v, want TOKEN_EXPIRED", err)
	}
	boundary, ok := domain.Boundary(err)
	if !ok || !boundary.Equal(testStart.Add(24*time.Hour)) {
		t.Errorf("boundary = %v, want token expiry", boundary)
	}

	reg, err := st.Read().Registrations().Get(ctx, slotID, "dana")
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if reg.ApprovalStatus != models.ApprovalExpired {
		t.Errorf("status = %s, want EXPIRED", reg.ApprovalStatus)
	}
	slot, err := st.Read().Slots().Get(ctx, slotID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Status != models.SlotFree {
		t.Errorf("slot status = %s, want FREE after expiry", slot.Status)
	}

	expiredEvents := 0
	for _, ev := range st.Events() {
		if ev.Type == domain.EventApprovalExpired {
			expiredEvents++
		}
	}

	// A second attempt still fails on expiry but must not re-flip.
	_, err = svc.Approve(ctx, token)
	if !domain.IsKind(err, domain.KindTokenExpired) {
		t.Fatalf("second attempt: err = %v, want TOKEN_EXPIRED", err)
	}
	after := 0
	for _, ev := range st.Events() {
		if ev.Type == domain.EventApprovalExpired {
			after++
		}
	}
	if expiredEvents != 1 || after != 1 {
		t.Errorf("expired events = %d then %d, want exactly one", expiredEvents, after)
	}
}

func TestUnknownToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Approve(context.Background(), "nope")
	if !domain.IsKind(err, domain.KindTokenNotFound) {
		t.Fatalf("err = %v, want TOKEN_NOT_FOUND", err)
	}
}

func TestDecideRejectsMismatchedToken(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	slotID, _ := seedPending(t, st, testStart, "dana")

	_, err := svc.Decide(context.Background(), slotID, "dana", "wrong-token", true, "")
	if !domain.IsKind(err, domain.KindTokenMismatch) {
		t.Fatalf("err = %v, want TOKEN_MISMATCH", err)
	}
}

// staleLookupStore serves a rotated-out token from GetByToken, the way a
// reissue committing between the index lookup and the slot lock appears to a
// read-committed transaction.
type staleLookupStore struct {
	store.Store
	stale     string
	slotID    uuid.UUID
	presenter string
}

func (s *staleLookupStore) WithTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, &staleLookupTx{Tx: tx, s: s})
	})
}

type staleLookupTx struct {
	store.Tx
	s *staleLookupStore
}

func (t *staleLookupTx) Registrations() store.RegistrationRepo {
	return &staleLookupRegs{RegistrationRepo: t.Tx.Registrations(), s: t.s}
}

type staleLookupRegs struct {
	store.RegistrationRepo
	s *staleLookupStore
}

func (r *staleLookupRegs) GetByToken(ctx context.Context, token string) (*models.Registration, error) {
	if token == r.s.stale {
		return r.RegistrationRepo.Get(ctx, r.s.slotID, r.s.presenter)
	}
	return r.RegistrationRepo.GetByToken(ctx, token)
}

func TestDecisionRejectsRotatedToken(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()
	slotID, oldToken := seedPending(t, st, testStart, "dana")

	if _, err := svc.Reissue(ctx, "dana", slotID); err != nil {
		t.Fatalf("reissue: %v", err)
	}

	stale := &staleLookupStore{Store: st, stale: oldToken, slotID: slotID, presenter: "dana"}
	staleSvc := NewService(stale, testResolver(), &decisionRecorder{}, &testClock{t: testStart}, Config{TokenTTL: 24 * time.Hour}, nil)

	_, err := staleSvc.Approve(ctx, oldToken)
	if !domain.IsKind(err, domain.KindTokenMismatch) {
		t.Fatalf("err = %v, want TOKEN_MISMATCH", err)
	}
	reg, err := st.Read().Registrations().Get(ctx, slotID, "dana")
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if reg.ApprovalStatus != models.ApprovalPending {
		t.Errorf("status = %s, a revoked token must not decide", reg.ApprovalStatus)
	}
}

func TestApproveSupersedesOtherPending(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()
	firstSlot, firstToken := seedPending(t, st, testStart, "dana")
	otherSlot, _ := seedPending(t, st, testStart.Add(time.Minute), "dana")

	// A lingering waiting-list entry on a third slot goes too.
	waitSlot := &models.Slot{StartsAt: testStart.AddDate(0, 0, 21), Capacity: 1}
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Slots().Create(ctx, waitSlot); err != nil {
			return err
		}
		return tx.WaitingList().Add(ctx, &models.WaitingListEntry{
			SlotID:    waitSlot.ID,
			Presenter: "dana",
			Degree:    models.DegreeMSc,
			Position:  1,
			AddedAt:   testStart,
		})
	})
	if err != nil {
		t.Fatalf("seed waiting entry: %v", err)
	}

	if _, err := svc.Approve(ctx, firstToken); err != nil {
		t.Fatalf("approve: %v", err)
	}

	approved, err := st.Read().Registrations().Get(ctx, firstSlot, "dana")
	if err != nil {
		t.Fatalf("get approved: %v", err)
	}
	if approved.ApprovalStatus != models.ApprovalApproved {
		t.Errorf("approved slot status = %s", approved.ApprovalStatus)
	}

	superseded, err := st.Read().Registrations().Get(ctx, otherSlot, "dana")
	if err != nil {
		t.Fatalf("get superseded: %v", err)
	}
	if superseded.ApprovalStatus != models.ApprovalDeclined {
		t.Errorf("other slot status = %s, want DECLINED", superseded.ApprovalStatus)
	}
	if superseded.DeclineReason == nil {
		t.Error("superseded decline has no reason")
	}

	if _, err := st.Read().WaitingList().Get(ctx, waitSlot.ID, "dana"); err == nil {
		t.Error("waiting entry survived approval")
	}
}

func TestReissueGeneratesFreshToken(t *testing.T) {
	svc, st, _, notifier := newTestService(t)
	ctx := context.Background()
	slotID, oldToken := seedPending(t, st, testStart, "dana")

	reg, err := svc.Reissue(ctx, "dana", slotID)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if reg.ApprovalToken == nil || *reg.ApprovalToken == oldToken {
		t.Error("reissue did not rotate the token")
	}
	if len(notifier.requests) != 1 {
		t.Errorf("supervisor requests = %v, want one resend", notifier.requests)
	}

	// The old token is dead.
	_, err = svc.Approve(ctx, oldToken)
	if !domain.IsKind(err, domain.KindTokenNotFound) {
		t.Fatalf("old token: err = %v, want TOKEN_NOT_FOUND", err)
	}
}

func TestReissueRequiresPending(t *testing.T) {
	svc, st, _, _ := newTestService(t)
	ctx := context.Background()
	slotID, token := seedPending(t, st, testStart, "dana")

	if _, err := svc.Approve(ctx, token); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err := svc.Reissue(ctx, "dana", slotID)
	if !domain.IsKind(err, domain.KindNotPending) {
		t.Fatalf("err = %v, want NOT_PENDING", err)
	}
}

func TestNewTokenShape(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	b, err := NewToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if len(a) != 43 {
		t.Errorf("token length = %d, want 43", len(a))
	}
	if a == b {
		t.Error("two tokens collided")
	}
}
