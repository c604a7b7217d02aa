// internal/repository/postgres/session_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"paysandbox-service/internal/domain/session"
	xerrors "paysandbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const sessionColumns = `
	id, workspace_id, amount, currency, description,
	customer_email, customer_name, status,
	purpose_kind, purpose_subscription_id, purpose_plan_id,
	payment_method, failure_reason, success_url, cancel_url,
	refund_amount, refunded_at, metadata,
	created_at, expires_at, completed_at, updated_at`

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row pgx.Row) (*session.Session, error) {
	var s session.Session
	var subID, planID *string
	var metadataJSON []byte

	err := row.Scan(
		&s.ID, &s.WorkspaceID, &s.Amount, &s.Currency, &s.Description,
		&s.CustomerEmail, &s.CustomerName, &s.Status,
		&s.Purpose.Kind, &subID, &planID,
		&s.PaymentMethod, &s.FailureReason, &s.SuccessURL, &s.CancelURL,
		&s.RefundAmount, &s.RefundedAt, &metadataJSON,
		&s.CreatedAt, &s.ExpiresAt, &s.CompletedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if subID != nil {
		s.Purpose.SubscriptionID = *subID
	}
	if planID != nil {
		s.Purpose.PlanID = *planID
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &s.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode session metadata: %w", err)
		}
	}
	return &s, nil
}

func marshalMetadata(m map[string]interface{}) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return b, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	return r.CreateWithTx(ctx, r.db.pool, s)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateWithTx inserts a session using tx, which may be the pool itself.
func (r *SessionRepository) CreateWithTx(ctx context.Context, tx execer, s *session.Session) error {
	metadataJSON, err := marshalMetadata(s.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkout_sessions (
			id, workspace_id, amount, currency, description,
			customer_email, customer_name, status,
			purpose_kind, purpose_subscription_id, purpose_plan_id,
			payment_method, failure_reason, success_url, cancel_url,
			metadata, created_at, expires_at, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`

	err = tx.QueryRow(ctx, query,
		s.ID, s.WorkspaceID, s.Amount, s.Currency, s.Description,
		s.CustomerEmail, s.CustomerName, s.Status,
		s.Purpose.Kind, nullIfEmpty(s.Purpose.SubscriptionID), nullIfEmpty(s.Purpose.PlanID),
		s.PaymentMethod, s.FailureReason, s.SuccessURL, s.CancelURL,
		metadataJSON, s.CreatedAt, s.ExpiresAt, s.CompletedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM checkout_sessions WHERE id = $1`

	s, err := scanSession(r.db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) List(ctx context.Context, workspaceID string, filters *session.SessionListFilters) ([]session.Session, int64, error) {
	conditions := []string{"workspace_id = $1"}
	args := []interface{}{workspaceID}
	argPos := 2

	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	if filters.Email != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(customer_email) = LOWER($%d)", argPos))
		args = append(args, filters.Email)
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM checkout_sessions WHERE %s", whereClause)
	if err := r.db.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s FROM checkout_sessions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, sessionColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []session.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, total, rows.Err()
}

func (r *SessionRepository) Transition(ctx context.Context, s *session.Session, from session.Status) error {
	metadataJSON, err := marshalMetadata(s.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE checkout_sessions
		SET status = $1, payment_method = $2, failure_reason = $3, completed_at = $4,
		    refund_amount = $5, refunded_at = $6, metadata = $7, updated_at = $8
		WHERE id = $9 AND status = $10
	`

	result, err := r.db.pool.Exec(ctx, query,
		s.Status, s.PaymentMethod, s.FailureReason, s.CompletedAt,
		s.RefundAmount, s.RefundedAt, metadataJSON, s.UpdatedAt,
		s.ID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to transition session: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, s.ID); err != nil {
			return err
		}
		return xerrors.ErrConflict
	}
	return nil
}
