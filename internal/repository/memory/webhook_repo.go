package memory

import (
	"context"
	"sort"
	"time"

	"paysandbox-service/internal/domain/webhook"
	xerrors "paysandbox-service/internal/pkg/errors"
)

type EndpointRepository struct {
	s *Store
}

func cloneEndpoint(in *webhook.Endpoint) *webhook.Endpoint {
	out := *in
	out.Events = append([]string(nil), in.Events...)
	out.Stats.LastAttemptAt = copyTime(in.Stats.LastAttemptAt)
	out.Stats.LastSuccessAt = copyTime(in.Stats.LastSuccessAt)
	out.Stats.LastFailureAt = copyTime(in.Stats.LastFailureAt)
	return &out
}

func (r *EndpointRepository) Create(ctx context.Context, e *webhook.Endpoint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.endpoints[e.ID]; exists {
		return xerrors.ErrConflict
	}
	r.s.endpoints[e.ID] = cloneEndpoint(e)
	return nil
}

func (r *EndpointRepository) FindByID(ctx context.Context, id string) (*webhook.Endpoint, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.endpoints[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return cloneEndpoint(e), nil
}

func (r *EndpointRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]webhook.Endpoint, error) {
	return r.list(func(e *webhook.Endpoint) bool { return e.WorkspaceID == workspaceID }), nil
}

func (r *EndpointRepository) ListSubscribed(ctx context.Context, workspaceID, event string) ([]webhook.Endpoint, error) {
	return r.list(func(e *webhook.Endpoint) bool {
		return e.WorkspaceID == workspaceID && e.Subscribes(event)
	}), nil
}

func (r *EndpointRepository) list(match func(*webhook.Endpoint) bool) []webhook.Endpoint {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []webhook.Endpoint{}
	for _, e := range r.s.endpoints {
		if match(e) {
			out = append(out, *cloneEndpoint(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *EndpointRepository) Deactivate(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.endpoints[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	e.IsActive = false
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *EndpointRepository) RecordAttempt(ctx context.Context, id string, success bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.endpoints[id]
	if !ok {
		return xerrors.ErrNotFound
	}
	e.Stats.Attempts++
	e.Stats.LastAttemptAt = &at
	if success {
		e.Stats.Successes++
		e.Stats.LastSuccessAt = &at
	} else {
		e.Stats.Failures++
		e.Stats.LastFailureAt = &at
	}
	return nil
}
