// internal/domain/fraud/repository.go
package fraud

import (
	"context"
	"time"
)

type ReviewRepository interface {
	// Create opens a review. A session holds at most one pending review; a
	// second one yields xerrors.ErrConflict.
	Create(ctx context.Context, r *Review) error
	FindByID(ctx context.Context, id string) (*Review, error)
	// FindPendingBySession returns the session's open review or
	// xerrors.ErrNotFound.
	FindPendingBySession(ctx context.Context, sessionID string) (*Review, error)
	List(ctx context.Context, workspaceID string, status *ReviewStatus) ([]Review, error)
	// Resolve closes a pending review. A review that is no longer pending
	// yields xerrors.ErrConflict.
	Resolve(ctx context.Context, id string, resolution Resolution, notes string, at time.Time) error
}

// SettingsReader returns a workspace's thresholds. ok is false when the
// workspace has not overridden the defaults.
type SettingsReader interface {
	Thresholds(ctx context.Context, workspaceID string) (t Thresholds, ok bool, err error)
}
