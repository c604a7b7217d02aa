// internal/domain/subscription/dto.go
package subscription

import "paysandbox-service/internal/domain/session"

type CreateSubscriptionRequest struct {
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	PlanID        string `json:"plan_id" binding:"required"`
	ChargeNow     bool   `json:"charge_now"`

	Metadata map[string]interface{} `json:"metadata"`
}

// CreateSubscriptionResult carries the first-charge session when one was made.
type CreateSubscriptionResult struct {
	Subscription *Subscription    `json:"subscription"`
	FirstCharge  *session.Session `json:"first_charge,omitempty"`
	CheckoutURL  string           `json:"checkout_url,omitempty"`
}

type CancelSubscriptionRequest struct {
	AtPeriodEnd bool `json:"at_period_end"`
}

type SubscriptionListFilters struct {
	Status   *Status `form:"status"`
	Email    string  `form:"email"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

type SubscriptionListResponse struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
	TotalPages    int            `json:"total_pages"`
}
