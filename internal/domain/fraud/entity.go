// internal/domain/fraud/entity.go
package fraud

import (
	"time"

	"github.com/lib/pq"
)

type Action string

const (
	ActionAllow  Action = "allow"
	ActionReview Action = "review"
	ActionBlock  Action = "block"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// FactorAnalysisUnavailable marks an assessment produced by the fail-open path.
const FactorAnalysisUnavailable = "analysis_unavailable"

// Input is what the gate sees of a payment attempt.
type Input struct {
	TransactionID string    `json:"transaction_id"`
	WorkspaceID   string    `json:"workspace_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Description   string    `json:"description"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	ClientIP      string    `json:"client_ip,omitempty"`
	IsNewCustomer bool      `json:"is_new_customer"`
	CreatedAt     time.Time `json:"created_at"`
}

// Score is what an analyzer returns before thresholds are applied.
type Score struct {
	Score   int      `json:"score"`
	Level   Level    `json:"level"`
	Factors []string `json:"factors"`
}

type Assessment struct {
	Score
	Action Action `json:"action"`
}

type Thresholds struct {
	Review int `json:"review"`
	Block  int `json:"block"`
}

var DefaultThresholds = Thresholds{Review: 60, Block: 80}

// Decide maps a score to an action. Both bounds are inclusive.
func (t Thresholds) Decide(score int) Action {
	switch {
	case score >= t.Block:
		return ActionBlock
	case score >= t.Review:
		return ActionReview
	default:
		return ActionAllow
	}
}

// Valid reports whether the thresholds are usable as configured.
func (t Thresholds) Valid() bool {
	return t.Review > 0 && t.Block <= 100 && t.Review <= t.Block
}

// LevelFor buckets a 0-100 score.
func LevelFor(score int) Level {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
)

type Resolution string

const (
	ResolutionApproved Resolution = "approved"
	ResolutionRejected Resolution = "rejected"
)

// Review is a manual follow-up opened when the gate says review.
type Review struct {
	ID            string         `json:"id" db:"id"`
	WorkspaceID   string         `json:"workspace_id" db:"workspace_id"`
	SessionID     string         `json:"session_id" db:"session_id"`
	Score         int            `json:"score" db:"score"`
	Level         Level          `json:"level" db:"level"`
	Factors       pq.StringArray `json:"factors" db:"factors"`
	Status        ReviewStatus   `json:"status" db:"status"`
	Resolution    *Resolution    `json:"resolution,omitempty" db:"resolution"`
	Notes         string         `json:"notes,omitempty" db:"notes"`
	PaymentMethod string         `json:"payment_method,omitempty" db:"payment_method"` // settled with on approval

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}
