// internal/domain/subscription/entity.go
package subscription

import (
	"time"
)

type Status string

const (
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusCanceled Status = "canceled"
)

// BillableStatuses are the statuses the renewal scheduler scans.
var BillableStatuses = []Status{StatusActive, StatusTrialing}

// Plan is a read-only pricing term owned by the catalog.
type Plan struct {
	ID        string   `json:"id" db:"id"`
	ProductID string   `json:"product_id" db:"product_id"`
	Name      string   `json:"name" db:"name"`
	Amount    int64    `json:"amount" db:"amount"`
	Currency  string   `json:"currency" db:"currency"`
	Interval  Interval `json:"interval" db:"interval"`
	TrialDays int      `json:"trial_days" db:"trial_days"`
	Active    bool     `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Subscription struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Related entities
	CustomerEmail string `json:"customer_email" db:"customer_email"`
	ProductID     string `json:"product_id" db:"product_id"`
	PlanID        string `json:"plan_id" db:"plan_id"`

	// Subscription period
	Status             Status    `json:"status" db:"status"`
	StartDate          time.Time `json:"start_date" db:"start_date"`
	CurrentPeriodStart time.Time `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end" db:"current_period_end"`
	// BillingAnchor is the start of the first paid period. Month-based plans
	// renew on its day of month, clamped in shorter months.
	BillingAnchor time.Time `json:"billing_anchor" db:"billing_anchor"`

	// Cancellation
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CanceledAt        *time.Time `json:"canceled_at,omitempty" db:"canceled_at"`

	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`

	// Version is bumped on every write and guards compare-and-swap updates.
	Version int64 `json:"version" db:"version"`

	// Timestamps
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsBillable reports whether the scheduler should consider the subscription.
func (s *Subscription) IsBillable() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}
