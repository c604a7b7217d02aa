// internal/domain/webhook/entity.go
package webhook

import (
	"time"

	"github.com/lib/pq"
)

// Event names delivered to endpoints.
const (
	EventPaymentCompleted      = "payment.completed"
	EventPaymentFailed         = "payment.failed"
	EventPaymentCancelled      = "payment.cancelled"
	EventPaymentRefunded       = "payment.refunded"
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionUpdated   = "subscription.updated"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventInvoiceCreated        = "invoice.created"
	EventInvoicePaid           = "invoice.paid"
	EventWebhookTest           = "webhook.test"
)

var SupportedEvents = []string{
	EventPaymentCompleted,
	EventPaymentFailed,
	EventPaymentCancelled,
	EventPaymentRefunded,
	EventSubscriptionCreated,
	EventSubscriptionUpdated,
	EventSubscriptionCancelled,
	EventInvoiceCreated,
	EventInvoicePaid,
	EventWebhookTest,
}

func IsSupported(event string) bool {
	for _, e := range SupportedEvents {
		if e == event {
			return true
		}
	}
	return false
}

// FilterEvents keeps the supported events in requested, in order and without
// duplicates. Anything unrecognized is dropped silently.
func FilterEvents(requested []string) []string {
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, e := range requested {
		if !IsSupported(e) {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// Retry defaults applied when an endpoint is registered without them.
const (
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 5 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultTimeout           = 10 * time.Second
)

type DeliveryStats struct {
	Attempts      int64      `json:"attempts" db:"attempts"`
	Successes     int64      `json:"successes" db:"successes"`
	Failures      int64      `json:"failures" db:"failures"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty" db:"last_attempt_at"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty" db:"last_success_at"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty" db:"last_failure_at"`
}

type Endpoint struct {
	ID          string         `json:"id" db:"id"`
	WorkspaceID string         `json:"workspace_id" db:"workspace_id"`
	URL         string         `json:"url" db:"url"`
	Events      pq.StringArray `json:"events" db:"events"`
	Secret      string         `json:"secret,omitempty" db:"secret"`
	Description string         `json:"description,omitempty" db:"description"`
	IsActive    bool           `json:"is_active" db:"is_active"`

	// Retry policy
	MaxRetries        int           `json:"max_retries" db:"max_retries"`
	RetryDelay        time.Duration `json:"retry_delay" db:"retry_delay_ms"`
	BackoffMultiplier float64       `json:"backoff_multiplier" db:"backoff_multiplier"`
	Timeout           time.Duration `json:"timeout" db:"timeout_ms"`

	Stats DeliveryStats `json:"stats"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Subscribes reports whether the endpoint wants event.
func (e *Endpoint) Subscribes(event string) bool {
	if !e.IsActive {
		return false
	}
	for _, ev := range e.Events {
		if ev == event {
			return true
		}
	}
	return false
}

// Envelope is the exact JSON body POSTed to an endpoint.
type Envelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	WebhookID string      `json:"webhook_id"`
}

// DeliveryOutcome is the result of one delivery attempt.
type DeliveryOutcome struct {
	EndpointID string        `json:"endpoint_id"`
	Event      string        `json:"event"`
	Success    bool          `json:"success"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	At         time.Time     `json:"at"`
}
