// internal/domain/session/repository.go
package session

import "context"

type Repository interface {
	Create(ctx context.Context, s *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, workspaceID string, filters *SessionListFilters) ([]Session, int64, error)

	// Transition persists the lifecycle fields of s (status, completion,
	// failure, refund, payment method) only when the stored status is still
	// from. It returns xerrors.ErrConflict when another writer got there first.
	Transition(ctx context.Context, s *Session, from Status) error
}
