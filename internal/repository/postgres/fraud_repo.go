// internal/repository/postgres/fraud_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paysandbox-service/internal/domain/fraud"
	xerrors "paysandbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

const reviewColumns = `
	id, workspace_id, session_id, score, level, factors, status,
	resolution, notes, payment_method, created_at, resolved_at`

type FraudReviewRepository struct {
	db *DB
}

func NewFraudReviewRepository(db *DB) *FraudReviewRepository {
	return &FraudReviewRepository{db: db}
}

func scanReview(row pgx.Row) (*fraud.Review, error) {
	var rev fraud.Review
	var factors []string

	err := row.Scan(
		&rev.ID, &rev.WorkspaceID, &rev.SessionID, &rev.Score, &rev.Level, &factors, &rev.Status,
		&rev.Resolution, &rev.Notes, &rev.PaymentMethod, &rev.CreatedAt, &rev.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	rev.Factors = pq.StringArray(factors)
	return &rev, nil
}

func (r *FraudReviewRepository) Create(ctx context.Context, rev *fraud.Review) error {
	query := `
		INSERT INTO fraud_reviews (id, workspace_id, session_id, score, level, factors, status, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id) WHERE status = 'pending' DO NOTHING
	`

	result, err := r.db.pool.Exec(ctx, query,
		rev.ID, rev.WorkspaceID, rev.SessionID, rev.Score, rev.Level, []string(rev.Factors), rev.Status,
		rev.PaymentMethod, rev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fraud review: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrConflict
	}
	return nil
}

func (r *FraudReviewRepository) FindPendingBySession(ctx context.Context, sessionID string) (*fraud.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM fraud_reviews WHERE session_id = $1 AND status = 'pending'`

	rev, err := scanReview(r.db.pool.QueryRow(ctx, query, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending fraud review: %w", err)
	}
	return rev, nil
}

func (r *FraudReviewRepository) FindByID(ctx context.Context, id string) (*fraud.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM fraud_reviews WHERE id = $1`

	rev, err := scanReview(r.db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find fraud review: %w", err)
	}
	return rev, nil
}

func (r *FraudReviewRepository) List(ctx context.Context, workspaceID string, status *fraud.ReviewStatus) ([]fraud.Review, error) {
	query := `SELECT ` + reviewColumns + `
		FROM fraud_reviews
		WHERE workspace_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.db.pool.Query(ctx, query, workspaceID, statusArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud reviews: %w", err)
	}
	defer rows.Close()

	reviews := []fraud.Review{}
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fraud review: %w", err)
		}
		reviews = append(reviews, *rev)
	}
	return reviews, rows.Err()
}

func (r *FraudReviewRepository) Resolve(ctx context.Context, id string, resolution fraud.Resolution, notes string, at time.Time) error {
	query := `
		UPDATE fraud_reviews
		SET status = 'resolved', resolution = $1, notes = $2, resolved_at = $3
		WHERE id = $4 AND status = 'pending'
	`

	result, err := r.db.pool.Exec(ctx, query, resolution, notes, at, id)
	if err != nil {
		return fmt.Errorf("failed to resolve fraud review: %w", err)
	}
	if result.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return xerrors.ErrConflict
	}
	return nil
}

type FraudSettingsRepository struct {
	db *DB
}

func NewFraudSettingsRepository(db *DB) *FraudSettingsRepository {
	return &FraudSettingsRepository{db: db}
}

func (r *FraudSettingsRepository) Thresholds(ctx context.Context, workspaceID string) (fraud.Thresholds, bool, error) {
	query := `SELECT review_threshold, block_threshold FROM workspace_fraud_settings WHERE workspace_id = $1`

	var t fraud.Thresholds
	err := r.db.pool.QueryRow(ctx, query, workspaceID).Scan(&t.Review, &t.Block)
	if errors.Is(err, pgx.ErrNoRows) {
		return fraud.Thresholds{}, false, nil
	}
	if err != nil {
		return fraud.Thresholds{}, false, fmt.Errorf("failed to load fraud settings: %w", err)
	}
	return t, true, nil
}
