package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"paysandbox-service/internal/domain/session"
	xerrors "paysandbox-service/internal/pkg/errors"
)

type SessionRepository struct {
	s *Store
}

func cloneSession(in *session.Session) *session.Session {
	out := *in
	out.Metadata = copyMap(in.Metadata)
	out.CompletedAt = copyTime(in.CompletedAt)
	out.RefundedAt = copyTime(in.RefundedAt)
	return &out
}

func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertSession(sess)
}

// insertSession expects the write lock to be held.
func (s *Store) insertSession(sess *session.Session) error {
	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session %s already exists: %w", sess.ID, xerrors.ErrConflict)
	}
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*session.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return cloneSession(sess), nil
}

func (r *SessionRepository) List(ctx context.Context, workspaceID string, filters *session.SessionListFilters) ([]session.Session, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []session.Session{}
	for _, sess := range r.s.sessions {
		if sess.WorkspaceID != workspaceID {
			continue
		}
		if filters.Status != nil && sess.Status != *filters.Status {
			continue
		}
		if filters.Email != "" && !strings.EqualFold(sess.CustomerEmail, filters.Email) {
			continue
		}
		matched = append(matched, *cloneSession(sess))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start, end := paginate(len(matched), filters.Page, filters.PageSize)
	return matched[start:end], int64(len(matched)), nil
}

func (r *SessionRepository) Transition(ctx context.Context, sess *session.Session, from session.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.sessions[sess.ID]
	if !ok {
		return xerrors.ErrNotFound
	}
	if stored.Status != from {
		return xerrors.ErrConflict
	}

	stored.Status = sess.Status
	stored.PaymentMethod = sess.PaymentMethod
	stored.FailureReason = sess.FailureReason
	stored.CompletedAt = copyTime(sess.CompletedAt)
	stored.RefundAmount = sess.RefundAmount
	stored.RefundedAt = copyTime(sess.RefundedAt)
	stored.Metadata = copyMap(sess.Metadata)
	stored.UpdatedAt = sess.UpdatedAt
	return nil
}
