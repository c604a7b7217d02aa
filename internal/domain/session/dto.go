// internal/domain/session/dto.go
package session

type CreateSessionRequest struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`

	CustomerEmail string `json:"customer_email" binding:"omitempty,email"`
	CustomerName  string `json:"customer_name" binding:"omitempty,max=255"`

	SuccessURL string `json:"success_url" binding:"omitempty,url"`
	CancelURL  string `json:"cancel_url" binding:"omitempty,url"`

	// Shareable links live for 24h instead of 1h.
	Shareable       bool `json:"shareable"`
	TemplatePreview bool `json:"template_preview"`

	Metadata map[string]interface{} `json:"metadata"`
}

type ProcessSessionRequest struct {
	PaymentMethod string `json:"payment_method" binding:"omitempty,max=50"`
}

// ProcessInput is what the state machine needs from a processing request.
type ProcessInput struct {
	PaymentMethod string
	ClientIP      string
}

type RefundSessionRequest struct {
	Amount *int64 `json:"amount"`
}

type SessionListFilters struct {
	Status   *Status `form:"status"`
	Email    string  `form:"email"`
	Page     int     `form:"page"`
	PageSize int     `form:"page_size"`
}

type SessionListResponse struct {
	Sessions   []Session `json:"sessions"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// CheckoutView is the public, read-only projection served at /checkout/{id}.
type CheckoutView struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	ExpiresAt   string `json:"expires_at"`
	SuccessURL  string `json:"success_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
	CheckoutURL string `json:"checkout_url"`
}
