// internal/domain/webhook/repository.go
package webhook

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, e *Endpoint) error
	FindByID(ctx context.Context, id string) (*Endpoint, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]Endpoint, error)
	// ListSubscribed returns active endpoints of workspaceID subscribed to event.
	ListSubscribed(ctx context.Context, workspaceID, event string) ([]Endpoint, error)
	Deactivate(ctx context.Context, id string) error
	// RecordAttempt increments the delivery counters atomically.
	RecordAttempt(ctx context.Context, id string, success bool, at time.Time) error
}
