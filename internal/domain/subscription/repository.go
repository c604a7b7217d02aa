// internal/domain/subscription/repository.go
package subscription

import (
	"context"
	"time"

	"paysandbox-service/internal/domain/session"
)

type Repository interface {
	// Create stores sub and, when charge is non-nil, its first-charge session
	// in the same unit of work.
	Create(ctx context.Context, sub *Subscription, charge *session.Session) error
	FindByID(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context, workspaceID string, filters *SubscriptionListFilters) ([]Subscription, int64, error)

	// ListPeriodEndingBetween returns subscriptions in statuses whose period
	// end satisfies after < end <= until.
	ListPeriodEndingBetween(ctx context.Context, statuses []Status, after, until time.Time) ([]Subscription, error)
	// ListDue returns subscriptions in statuses whose period end is <= now.
	ListDue(ctx context.Context, statuses []Status, now time.Time) ([]Subscription, error)

	// Update writes sub only if the stored version equals expectedVersion and
	// bumps sub.Version. A stale version yields xerrors.ErrConflict.
	Update(ctx context.Context, sub *Subscription, expectedVersion int64) error
	// Renew is Update plus inserting the renewal charge atomically, so a
	// period can never be advanced twice or charged without advancing.
	Renew(ctx context.Context, sub *Subscription, expectedVersion int64, charge *session.Session) error
}

// PlanReader is the read-only view of the catalog.
type PlanReader interface {
	FindPlan(ctx context.Context, id string) (*Plan, error)
}

// ReminderLedger records which (subscription, period end) pairs have already
// been reminded.
type ReminderLedger interface {
	// Claim returns true exactly once per pair.
	Claim(ctx context.Context, subscriptionID string, periodEnd time.Time) (bool, error)
}
