package memory

import (
	"context"
	"sort"
	"time"

	"paysandbox-service/internal/domain/fraud"
	xerrors "paysandbox-service/internal/pkg/errors"
)

type ReviewRepository struct {
	s *Store
}

func cloneReview(in *fraud.Review) *fraud.Review {
	out := *in
	out.Factors = append([]string(nil), in.Factors...)
	out.ResolvedAt = copyTime(in.ResolvedAt)
	if in.Resolution != nil {
		res := *in.Resolution
		out.Resolution = &res
	}
	return &out
}

func (r *ReviewRepository) Create(ctx context.Context, rev *fraud.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.reviews[rev.ID]; exists {
		return xerrors.ErrConflict
	}
	if rev.Status == fraud.ReviewPending && r.pendingFor(rev.SessionID) != nil {
		return xerrors.ErrConflict
	}
	r.s.reviews[rev.ID] = cloneReview(rev)
	return nil
}

// pendingFor expects the store lock to be held.
func (r *ReviewRepository) pendingFor(sessionID string) *fraud.Review {
	for _, rev := range r.s.reviews {
		if rev.SessionID == sessionID && rev.Status == fraud.ReviewPending {
			return rev
		}
	}
	return nil
}

func (r *ReviewRepository) FindPendingBySession(ctx context.Context, sessionID string) (*fraud.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rev := r.pendingFor(sessionID)
	if rev == nil {
		return nil, xerrors.ErrNotFound
	}
	return cloneReview(rev), nil
}

func (r *ReviewRepository) FindByID(ctx context.Context, id string) (*fraud.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rev, ok := r.s.reviews[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return cloneReview(rev), nil
}

func (r *ReviewRepository) List(ctx context.Context, workspaceID string, status *fraud.ReviewStatus) ([]fraud.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []fraud.Review{}
	for _, rev := range r.s.reviews {
		if rev.WorkspaceID != workspaceID {
			continue
		}
		if status != nil && rev.Status != *status {
			continue
		}
		out = append(out, *cloneReview(rev))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ReviewRepository) Resolve(ctx context.Context, id string, resolution fraud.Resolution, notes string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rev, ok := r.s.reviews[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	if rev.Status != fraud.ReviewPending {
		return xerrors.ErrConflict
	}
	rev.Status = fraud.ReviewResolved
	rev.Resolution = &resolution
	rev.Notes = notes
	rev.ResolvedAt = &at
	return nil
}

type SettingsRepository struct {
	s *Store
}

func (r *SettingsRepository) Thresholds(ctx context.Context, workspaceID string) (fraud.Thresholds, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.thresholds[workspaceID]
	return t, ok, nil
}
