package subscription

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/domain/subscription"
	"paysandbox-service/internal/domain/webhook"
	xerrors "paysandbox-service/internal/pkg/errors"
	"paysandbox-service/internal/repository/memory"

	"go.uber.org/zap"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) Emit(ctx context.Context, workspaceID, event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1]
}

var fixedNow = time.Date(2026, time.January, 31, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*SubscriptionService, *memory.Store, *recordingEmitter) {
	t.Helper()
	store := memory.NewStore()
	for _, p := range memory.DemoPlans() {
		store.SeedPlan(p)
	}
	events := &recordingEmitter{}
	svc := NewSubscriptionService(store.Subscriptions(), store.Plans(), events, "https://pay.example.com", zap.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, store, events
}

func TestCreateWithTrial(t *testing.T) {
	svc, _, events := newService(t)

	res, err := svc.CreateSubscription(context.Background(), "ws_1", &subscription.CreateSubscriptionRequest{
		CustomerEmail: "Ada@Example.com",
		PlanID:        "plan_basic_monthly",
	})
	if err != nil {
		t.Fatal(err)
	}
	sub := res.Subscription
	if sub.Status != subscription.StatusTrialing {
		t.Fatalf("status = %s, want trialing", sub.Status)
	}
	if want := fixedNow.AddDate(0, 0, 7); !sub.CurrentPeriodEnd.Equal(want) {
		t.Fatalf("period end = %v, want %v", sub.CurrentPeriodEnd, want)
	}
	if !sub.BillingAnchor.Equal(sub.CurrentPeriodEnd) {
		t.Fatalf("billing anchor = %v, want trial end", sub.BillingAnchor)
	}
	if sub.CustomerEmail != "ada@example.com" || sub.Version != 1 {
		t.Fatalf("subscription = %+v", sub)
	}
	if res.FirstCharge != nil {
		t.Fatal("trial created a first charge")
	}
	if events.last() != webhook.EventSubscriptionCreated {
		t.Fatalf("last event = %q", events.last())
	}
}

func TestCreateChargeNow(t *testing.T) {
	svc, store, _ := newService(t)

	res, err := svc.CreateSubscription(context.Background(), "ws_1", &subscription.CreateSubscriptionRequest{
		CustomerEmail: "ada@example.com",
		PlanID:        "plan_basic_monthly",
		ChargeNow:     true,
	})
	if err != nil {
		t.Fatal(err)
	}
	sub := res.Subscription
	if sub.Status != subscription.StatusActive {
		t.Fatalf("status = %s, want active", sub.Status)
	}
	// Jan 31 + 1 month clamps to Feb 28
	if want := time.Date(2026, time.February, 28, 10, 0, 0, 0, time.UTC); !sub.CurrentPeriodEnd.Equal(want) {
		t.Fatalf("period end = %v, want %v", sub.CurrentPeriodEnd, want)
	}
	if !sub.BillingAnchor.Equal(fixedNow) {
		t.Fatalf("billing anchor = %v, want %v", sub.BillingAnchor, fixedNow)
	}

	charge, err := store.Sessions().FindByID(context.Background(), res.FirstCharge.ID)
	if err != nil {
		t.Fatalf("first charge not stored: %v", err)
	}
	if charge.Status != session.StatusPending || charge.Amount != 500000 || charge.Currency != "NGN" {
		t.Fatalf("charge = %+v", charge)
	}
	if charge.Purpose.Kind != session.PurposeSubscriptionCharge || charge.Purpose.SubscriptionID != sub.ID {
		t.Fatalf("purpose = %+v", charge.Purpose)
	}
	if res.CheckoutURL != "https://pay.example.com/checkout/"+charge.ID {
		t.Fatalf("checkout url = %q", res.CheckoutURL)
	}
}

func TestCreateWithoutTrialChargesNow(t *testing.T) {
	svc, _, _ := newService(t)
	res, err := svc.CreateSubscription(context.Background(), "ws_1", &subscription.CreateSubscriptionRequest{
		CustomerEmail: "ada@example.com",
		PlanID:        "plan_pro_monthly",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Subscription.Status != subscription.StatusActive || res.FirstCharge == nil {
		t.Fatalf("result = %+v", res)
	}
}

func TestCreateRejectsMissingOrInactivePlan(t *testing.T) {
	svc, _, _ := newService(t)
	for _, planID := range []string{"plan_legacy", "plan_nope"} {
		_, err := svc.CreateSubscription(context.Background(), "ws_1", &subscription.CreateSubscriptionRequest{
			CustomerEmail: "ada@example.com",
			PlanID:        planID,
		})
		if !errors.Is(err, xerrors.ErrNotFound) {
			t.Errorf("%s: err = %v, want not found", planID, err)
		}
	}
}

func createActive(t *testing.T, svc *SubscriptionService) *subscription.Subscription {
	t.Helper()
	res, err := svc.CreateSubscription(context.Background(), "ws_1", &subscription.CreateSubscriptionRequest{
		CustomerEmail: "ada@example.com",
		PlanID:        "plan_pro_monthly",
	})
	if err != nil {
		t.Fatal(err)
	}
	return res.Subscription
}

func TestCancelAtPeriodEndKeepsStatus(t *testing.T) {
	svc, _, events := newService(t)
	sub := createActive(t, svc)

	got, err := svc.CancelSubscription(context.Background(), "ws_1", sub.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != subscription.StatusActive || !got.CancelAtPeriodEnd || got.CanceledAt != nil {
		t.Fatalf("subscription = %+v", got)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}
	if events.last() != webhook.EventSubscriptionUpdated {
		t.Fatalf("last event = %q", events.last())
	}
}

func TestCancelImmediately(t *testing.T) {
	svc, _, events := newService(t)
	sub := createActive(t, svc)

	got, err := svc.CancelSubscription(context.Background(), "ws_1", sub.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != subscription.StatusCanceled || got.CanceledAt == nil {
		t.Fatalf("subscription = %+v", got)
	}
	if events.last() != webhook.EventSubscriptionCancelled {
		t.Fatalf("last event = %q", events.last())
	}

	_, err = svc.CancelSubscription(context.Background(), "ws_1", sub.ID, false)
	var xe *xerrors.Error
	if !errors.As(err, &xe) || xe.Kind != xerrors.KindInvalidState {
		t.Fatalf("second cancel: err = %v", err)
	}
	if _, err := svc.ResumeSubscription(context.Background(), "ws_1", sub.ID); !errors.Is(err, xerrors.ErrInvalidState) {
		t.Fatalf("resume canceled: err = %v", err)
	}
}

func TestPauseResume(t *testing.T) {
	svc, _, _ := newService(t)
	sub := createActive(t, svc)

	paused, err := svc.PauseSubscription(context.Background(), "ws_1", sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paused.Status != subscription.StatusPaused || !paused.CurrentPeriodEnd.Equal(sub.CurrentPeriodEnd) {
		t.Fatalf("paused = %+v", paused)
	}
	if _, err := svc.PauseSubscription(context.Background(), "ws_1", sub.ID); !errors.Is(err, xerrors.ErrInvalidState) {
		t.Fatalf("double pause: err = %v", err)
	}
	if _, err := svc.CancelSubscription(context.Background(), "ws_1", sub.ID, true); !errors.Is(err, xerrors.ErrInvalidState) {
		t.Fatalf("deferred cancel while paused: err = %v", err)
	}

	resumed, err := svc.ResumeSubscription(context.Background(), "ws_1", sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.Status != subscription.StatusActive {
		t.Fatalf("resumed = %+v", resumed)
	}
}

func TestPauseTrialingIsInvalid(t *testing.T) {
	svc, _, _ := newService(t)
	res, _ := svc.CreateSubscription(context.Background(), "ws_1", &subscription.CreateSubscriptionRequest{
		CustomerEmail: "ada@example.com",
		PlanID:        "plan_basic_monthly",
	})
	if _, err := svc.PauseSubscription(context.Background(), "ws_1", res.Subscription.ID); !errors.Is(err, xerrors.ErrInvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}

func TestGetIsWorkspaceScoped(t *testing.T) {
	svc, _, _ := newService(t)
	sub := createActive(t, svc)
	if _, err := svc.GetSubscription(context.Background(), "ws_2", sub.ID); !errors.Is(err, xerrors.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

// conflictingRepo loses the first n compare-and-swap writes.
type conflictingRepo struct {
	subscription.Repository
	mu        sync.Mutex
	conflicts int
}

func (r *conflictingRepo) Update(ctx context.Context, sub *subscription.Subscription, expected int64) error {
	r.mu.Lock()
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return xerrors.ErrConflict
	}
	r.mu.Unlock()
	return r.Repository.Update(ctx, sub, expected)
}

func TestMutateRetriesOnConflict(t *testing.T) {
	svc, store, _ := newService(t)
	sub := createActive(t, svc)

	svc.repo = &conflictingRepo{Repository: store.Subscriptions(), conflicts: 2}
	got, err := svc.PauseSubscription(context.Background(), "ws_1", sub.ID)
	if err != nil {
		t.Fatalf("pause after two conflicts: %v", err)
	}
	if got.Status != subscription.StatusPaused {
		t.Fatalf("status = %s", got.Status)
	}

	svc.repo = &conflictingRepo{Repository: store.Subscriptions(), conflicts: maxCASAttempts}
	_, err = svc.ResumeSubscription(context.Background(), "ws_1", sub.ID)
	var xe *xerrors.Error
	if !errors.As(err, &xe) || xe.Reason != "conflict" {
		t.Fatalf("err = %v, want conflict after exhausting retries", err)
	}
}
