// internal/domain/customer/entity.go
package customer

import (
	"context"
	"time"
)

// Customer is the per-workspace aggregate of a payer, keyed by email.
type Customer struct {
	WorkspaceID      string `json:"workspace_id" db:"workspace_id"`
	Email            string `json:"email" db:"email"`
	Name             string `json:"name,omitempty" db:"name"`
	TransactionCount int64  `json:"transaction_count" db:"transaction_count"`

	// Totals holds running amounts in minor units per currency.
	Totals map[string]int64 `json:"totals" db:"totals"`

	FirstPaymentAt *time.Time `json:"first_payment_at,omitempty" db:"first_payment_at"`
	LastPaymentAt  *time.Time `json:"last_payment_at,omitempty" db:"last_payment_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Adjustment is one change to an aggregate. Negative values decrement.
type Adjustment struct {
	WorkspaceID string
	Email       string
	Name        string
	Currency    string
	Count       int64
	Amount      int64
	At          time.Time
}

type Repository interface {
	Find(ctx context.Context, workspaceID, email string) (*Customer, error)
	// Apply upserts the aggregate and applies adj atomically.
	Apply(ctx context.Context, adj Adjustment) error
	// Exists reports whether the customer has ever paid in the workspace.
	Exists(ctx context.Context, workspaceID, email string) (bool, error)
}
