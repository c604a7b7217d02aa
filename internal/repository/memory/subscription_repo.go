package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/domain/subscription"
	xerrors "paysandbox-service/internal/pkg/errors"
)

type SubscriptionRepository struct {
	s *Store
}

func cloneSubscription(in *subscription.Subscription) *subscription.Subscription {
	out := *in
	out.Metadata = copyMap(in.Metadata)
	out.CanceledAt = copyTime(in.CanceledAt)
	return &out
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription, charge *session.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.subscriptions[sub.ID]; exists {
		return fmt.Errorf("subscription %s already exists: %w", sub.ID, xerrors.ErrConflict)
	}
	if charge != nil {
		if err := r.s.insertSession(charge); err != nil {
			return err
		}
	}
	sub.Version = 1
	r.s.subscriptions[sub.ID] = cloneSubscription(sub)
	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub, ok := r.s.subscriptions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return cloneSubscription(sub), nil
}

func (r *SubscriptionRepository) List(ctx context.Context, workspaceID string, filters *subscription.SubscriptionListFilters) ([]subscription.Subscription, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []subscription.Subscription{}
	for _, sub := range r.s.subscriptions {
		if sub.WorkspaceID != workspaceID {
			continue
		}
		if filters.Status != nil && sub.Status != *filters.Status {
			continue
		}
		if filters.Email != "" && !strings.EqualFold(sub.CustomerEmail, filters.Email) {
			continue
		}
		matched = append(matched, *cloneSubscription(sub))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end := paginate(len(matched), filters.Page, filters.PageSize)
	return matched[start:end], int64(len(matched)), nil
}

func (r *SubscriptionRepository) ListPeriodEndingBetween(ctx context.Context, statuses []subscription.Status, after, until time.Time) ([]subscription.Subscription, error) {
	return r.scan(statuses, func(end time.Time) bool {
		return end.After(after) && !end.After(until)
	}), nil
}

func (r *SubscriptionRepository) ListDue(ctx context.Context, statuses []subscription.Status, now time.Time) ([]subscription.Subscription, error) {
	return r.scan(statuses, func(end time.Time) bool {
		return !end.After(now)
	}), nil
}

func (r *SubscriptionRepository) scan(statuses []subscription.Status, match func(time.Time) bool) []subscription.Subscription {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []subscription.Subscription{}
	for _, sub := range r.s.subscriptions {
		if !hasStatus(statuses, sub.Status) || !match(sub.CurrentPeriodEnd) {
			continue
		}
		out = append(out, *cloneSubscription(sub))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CurrentPeriodEnd.Before(out[j].CurrentPeriodEnd)
	})
	return out
}

func hasStatus(statuses []subscription.Status, st subscription.Status) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.casSubscription(sub, expectedVersion)
}

func (r *SubscriptionRepository) Renew(ctx context.Context, sub *subscription.Subscription, expectedVersion int64, charge *session.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.subscriptions[sub.ID]
	if !ok {
		return xerrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return xerrors.ErrConflict
	}
	if err := r.s.insertSession(charge); err != nil {
		return err
	}
	return r.s.casSubscription(sub, expectedVersion)
}

// casSubscription expects the write lock to be held.
func (s *Store) casSubscription(sub *subscription.Subscription, expectedVersion int64) error {
	stored, ok := s.subscriptions[sub.ID]
	if !ok {
		return xerrors.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return xerrors.ErrConflict
	}
	sub.Version = expectedVersion + 1
	s.subscriptions[sub.ID] = cloneSubscription(sub)
	return nil
}

type PlanRepository struct {
	s *Store
}

func (r *PlanRepository) FindPlan(ctx context.Context, id string) (*subscription.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.plans[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	out := *p
	return &out, nil
}

type ReminderLedger struct {
	s *Store
}

func (l *ReminderLedger) Claim(ctx context.Context, subscriptionID string, periodEnd time.Time) (bool, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	key := reminderKey{subscriptionID: subscriptionID, periodEnd: periodEnd.UnixNano()}
	if _, done := l.s.reminders[key]; done {
		return false, nil
	}
	l.s.reminders[key] = time.Now().UTC()
	return true, nil
}
