// internal/repository/postgres/webhook_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paysandbox-service/internal/domain/webhook"
	xerrors "paysandbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

const endpointColumns = `
	id, workspace_id, url, events, secret, description, is_active,
	max_retries, retry_delay_ms, backoff_multiplier, timeout_ms,
	attempts, successes, failures, last_attempt_at, last_success_at, last_failure_at,
	created_at, updated_at`

type WebhookEndpointRepository struct {
	db *DB
}

func NewWebhookEndpointRepository(db *DB) *WebhookEndpointRepository {
	return &WebhookEndpointRepository{db: db}
}

func scanEndpoint(row pgx.Row) (*webhook.Endpoint, error) {
	var e webhook.Endpoint
	var events []string
	var retryDelayMs, timeoutMs int64

	err := row.Scan(
		&e.ID, &e.WorkspaceID, &e.URL, &events, &e.Secret, &e.Description, &e.IsActive,
		&e.MaxRetries, &retryDelayMs, &e.BackoffMultiplier, &timeoutMs,
		&e.Stats.Attempts, &e.Stats.Successes, &e.Stats.Failures,
		&e.Stats.LastAttemptAt, &e.Stats.LastSuccessAt, &e.Stats.LastFailureAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Events = pq.StringArray(events)
	e.RetryDelay = time.Duration(retryDelayMs) * time.Millisecond
	e.Timeout = time.Duration(timeoutMs) * time.Millisecond
	return &e, nil
}

func (r *WebhookEndpointRepository) Create(ctx context.Context, e *webhook.Endpoint) error {
	query := `
		INSERT INTO webhook_endpoints (
			id, workspace_id, url, events, secret, description, is_active,
			max_retries, retry_delay_ms, backoff_multiplier, timeout_ms,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.pool.Exec(ctx, query,
		e.ID, e.WorkspaceID, e.URL, []string(e.Events), e.Secret, e.Description, e.IsActive,
		e.MaxRetries, e.RetryDelay.Milliseconds(), e.BackoffMultiplier, e.Timeout.Milliseconds(),
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create webhook endpoint: %w", err)
	}
	return nil
}

func (r *WebhookEndpointRepository) FindByID(ctx context.Context, id string) (*webhook.Endpoint, error) {
	query := `SELECT ` + endpointColumns + ` FROM webhook_endpoints WHERE id = $1`

	e, err := scanEndpoint(r.db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find webhook endpoint: %w", err)
	}
	return e, nil
}

func (r *WebhookEndpointRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]webhook.Endpoint, error) {
	query := `SELECT ` + endpointColumns + `
		FROM webhook_endpoints WHERE workspace_id = $1 ORDER BY created_at`
	return r.query(ctx, query, workspaceID)
}

func (r *WebhookEndpointRepository) ListSubscribed(ctx context.Context, workspaceID, event string) ([]webhook.Endpoint, error) {
	query := `SELECT ` + endpointColumns + `
		FROM webhook_endpoints
		WHERE workspace_id = $1 AND is_active AND $2 = ANY(events)
		ORDER BY created_at`
	return r.query(ctx, query, workspaceID, event)
}

func (r *WebhookEndpointRepository) query(ctx context.Context, query string, args ...interface{}) ([]webhook.Endpoint, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook endpoints: %w", err)
	}
	defer rows.Close()

	endpoints := []webhook.Endpoint{}
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook endpoint: %w", err)
		}
		endpoints = append(endpoints, *e)
	}
	return endpoints, rows.Err()
}

func (r *WebhookEndpointRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE webhook_endpoints SET is_active = FALSE, updated_at = $1 WHERE id = $2`

	result, err := r.db.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate webhook endpoint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *WebhookEndpointRepository) RecordAttempt(ctx context.Context, id string, success bool, at time.Time) error {
	query := `
		UPDATE webhook_endpoints
		SET attempts = attempts + 1,
		    successes = successes + CASE WHEN $1 THEN 1 ELSE 0 END,
		    failures = failures + CASE WHEN $1 THEN 0 ELSE 1 END,
		    last_attempt_at = $2,
		    last_success_at = CASE WHEN $1 THEN $2 ELSE last_success_at END,
		    last_failure_at = CASE WHEN $1 THEN last_failure_at ELSE $2 END
		WHERE id = $3
	`

	result, err := r.db.pool.Exec(ctx, query, success, at, id)
	if err != nil {
		return fmt.Errorf("failed to record webhook attempt: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}
