// internal/domain/webhook/dto.go
package webhook

type CreateEndpointRequest struct {
	URL         string   `json:"url" binding:"required,url"`
	Events      []string `json:"events" binding:"required,min=1"`
	Description string   `json:"description"`

	MaxRetries        *int     `json:"max_retries" binding:"omitempty,min=0,max=10"`
	RetryDelayMs      *int64   `json:"retry_delay_ms" binding:"omitempty,min=0"`
	BackoffMultiplier *float64 `json:"backoff_multiplier" binding:"omitempty,gte=1"`
	TimeoutMs         *int64   `json:"timeout_ms" binding:"omitempty,min=100,max=30000"`
}

type TestEndpointResponse struct {
	Delivered  bool   `json:"delivered"`
	StatusCode int    `json:"status_code,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
