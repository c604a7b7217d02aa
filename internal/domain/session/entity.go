// internal/domain/session/entity.go
package session

import (
	"time"

	"paysandbox-service/internal/pkg/idgen"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

const (
	AdhocTTL     = time.Hour
	ShareableTTL = 24 * time.Hour
)

type PurposeKind string

const (
	PurposeAdhoc              PurposeKind = "adhoc"
	PurposeSubscriptionCharge PurposeKind = "subscription_charge"
	PurposeTemplatePreview    PurposeKind = "template_preview"
)

// Purpose records why a session exists. SubscriptionID and PlanID are only set
// for subscription charges.
type Purpose struct {
	Kind           PurposeKind `json:"kind"`
	SubscriptionID string      `json:"subscription_id,omitempty"`
	PlanID         string      `json:"plan_id,omitempty"`
}

func AdhocPurpose() Purpose {
	return Purpose{Kind: PurposeAdhoc}
}

func TemplatePreviewPurpose() Purpose {
	return Purpose{Kind: PurposeTemplatePreview}
}

func SubscriptionChargePurpose(subscriptionID, planID string) Purpose {
	return Purpose{Kind: PurposeSubscriptionCharge, SubscriptionID: subscriptionID, PlanID: planID}
}

// Session is one checkout attempt.
type Session struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	// Payment details
	Amount      int64  `json:"amount" db:"amount"`
	Currency    string `json:"currency" db:"currency"`
	Description string `json:"description" db:"description"`

	// Customer
	CustomerEmail string `json:"customer_email,omitempty" db:"customer_email"`
	CustomerName  string `json:"customer_name,omitempty" db:"customer_name"`

	// Lifecycle
	Status        Status  `json:"status" db:"status"`
	Purpose       Purpose `json:"purpose" db:"purpose"`
	PaymentMethod string  `json:"payment_method,omitempty" db:"payment_method"`
	FailureReason string  `json:"failure_reason,omitempty" db:"failure_reason"`

	// Redirects
	SuccessURL string `json:"success_url,omitempty" db:"success_url"`
	CancelURL  string `json:"cancel_url,omitempty" db:"cancel_url"`

	// Refund
	RefundAmount int64      `json:"refund_amount,omitempty" db:"refund_amount"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty" db:"refunded_at"`

	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at" db:"expires_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether a pending session has passed its expiry horizon.
func (s *Session) IsExpired(now time.Time) bool {
	return s.Status == StatusPending && !now.Before(s.ExpiresAt)
}

// EffectiveStatus is the status callers must observe: a pending session past
// its expiry is expired regardless of what is stored.
func (s *Session) EffectiveStatus(now time.Time) Status {
	if s.IsExpired(now) {
		return StatusExpired
	}
	return s.Status
}

type SessionStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Refunded  int64 `json:"refunded"`
	Expired   int64 `json:"expired"`
}

// New builds a pending session with a fresh id expiring ttl after now.
func New(workspaceID string, amount int64, currency, description string, purpose Purpose, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:          idgen.New(idgen.PrefixSession),
		WorkspaceID: workspaceID,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Status:      StatusPending,
		Purpose:     purpose,
		Metadata:    map[string]interface{}{},
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		UpdatedAt:   now,
	}
}
