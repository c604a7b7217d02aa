// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/domain/subscription"
	xerrors "paysandbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const subscriptionColumns = `
	id, workspace_id, customer_email, product_id, plan_id, status,
	start_date, current_period_start, current_period_end, billing_anchor,
	cancel_at_period_end, canceled_at, metadata, version,
	created_at, updated_at`

type SubscriptionRepository struct {
	db       *DB
	sessions *SessionRepository
}

func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, sessions: NewSessionRepository(db)}
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	var metadataJSON []byte
	var anchor *time.Time

	err := row.Scan(
		&sub.ID, &sub.WorkspaceID, &sub.CustomerEmail, &sub.ProductID, &sub.PlanID, &sub.Status,
		&sub.StartDate, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &anchor,
		&sub.CancelAtPeriodEnd, &sub.CanceledAt, &metadataJSON, &sub.Version,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if anchor != nil {
		sub.BillingAnchor = *anchor
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &sub.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode subscription metadata: %w", err)
		}
	}
	return &sub, nil
}

// Create inserts the subscription and its optional first charge in one transaction.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription, charge *session.Session) error {
	metadataJSON, err := marshalMetadata(sub.Metadata)
	if err != nil {
		return err
	}

	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO subscriptions (
				id, workspace_id, customer_email, product_id, plan_id, status,
				start_date, current_period_start, current_period_end, billing_anchor,
				cancel_at_period_end, metadata, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1, $13, $14)
			RETURNING version
		`
		var anchor *time.Time
		if !sub.BillingAnchor.IsZero() {
			anchor = &sub.BillingAnchor
		}
		err := tx.QueryRow(ctx, query,
			sub.ID, sub.WorkspaceID, sub.CustomerEmail, sub.ProductID, sub.PlanID, sub.Status,
			sub.StartDate, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, anchor,
			sub.CancelAtPeriodEnd, metadataJSON, sub.CreatedAt, sub.UpdatedAt,
		).Scan(&sub.Version)
		if err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		if charge != nil {
			return r.sessions.CreateWithTx(ctx, tx, charge)
		}
		return nil
	})
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`

	sub, err := scanSubscription(r.db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return sub, nil
}

func (r *SubscriptionRepository) List(ctx context.Context, workspaceID string, filters *subscription.SubscriptionListFilters) ([]subscription.Subscription, int64, error) {
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
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM subscriptions WHERE %s", whereClause)
	if err := r.db.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	offset := (filters.Page - 1) * filters.PageSize

	query := fmt.Sprintf(`
		SELECT %s FROM subscriptions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, subscriptionColumns, whereClause, argPos, argPos+1)
	args = append(args, filters.PageSize, offset)

	subs, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return subs, total, nil
}

func (r *SubscriptionRepository) ListPeriodEndingBetween(ctx context.Context, statuses []subscription.Status, after, until time.Time) ([]subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = ANY($1) AND current_period_end > $2 AND current_period_end <= $3
		ORDER BY current_period_end`
	return r.query(ctx, query, statusStrings(statuses), after, until)
}

func (r *SubscriptionRepository) ListDue(ctx context.Context, statuses []subscription.Status, now time.Time) ([]subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE status = ANY($1) AND current_period_end <= $2
		ORDER BY current_period_end`
	return r.query(ctx, query, statusStrings(statuses), now)
}

func statusStrings(statuses []subscription.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *SubscriptionRepository) query(ctx context.Context, query string, args ...interface{}) ([]subscription.Subscription, error) {
	rows, err := r.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []subscription.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

type txExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription, expectedVersion int64) error {
	if err := r.casWithTx(ctx, r.db.pool, sub, expectedVersion); err != nil {
		return err
	}
	sub.Version = expectedVersion + 1
	return nil
}

// Renew advances the period and inserts the renewal charge in one transaction.
func (r *SubscriptionRepository) Renew(ctx context.Context, sub *subscription.Subscription, expectedVersion int64, charge *session.Session) error {
	err := r.db.withTx(ctx, func(tx pgx.Tx) error {
		if err := r.casWithTx(ctx, tx, sub, expectedVersion); err != nil {
			return err
		}
		return r.sessions.CreateWithTx(ctx, tx, charge)
	})
	if err != nil {
		return err
	}
	sub.Version = expectedVersion + 1
	return nil
}

func (r *SubscriptionRepository) casWithTx(ctx context.Context, tx txExecer, sub *subscription.Subscription, expectedVersion int64) error {
	metadataJSON, err := marshalMetadata(sub.Metadata)
	if err != nil {
		return err
	}

	query := `
		UPDATE subscriptions
		SET status = $1, current_period_start = $2, current_period_end = $3,
		    cancel_at_period_end = $4, canceled_at = $5, metadata = $6,
		    version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9
	`

	result, err := tx.Exec(ctx, query,
		sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd, sub.CanceledAt, metadataJSON, sub.UpdatedAt,
		sub.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, sub.ID); err != nil {
			return err
		}
		return xerrors.ErrConflict
	}
	return nil
}

type PlanRepository struct {
	db *DB
}

func NewPlanRepository(db *DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) FindPlan(ctx context.Context, id string) (*subscription.Plan, error) {
	query := `
		SELECT id, product_id, name, amount, currency, interval, trial_days, active, created_at
		FROM plans WHERE id = $1
	`

	var p subscription.Plan
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ProductID, &p.Name, &p.Amount, &p.Currency, &p.Interval, &p.TrialDays, &p.Active, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find plan: %w", err)
	}
	return &p, nil
}

type ReminderLedger struct {
	db *DB
}

func NewReminderLedger(db *DB) *ReminderLedger {
	return &ReminderLedger{db: db}
}

func (l *ReminderLedger) Claim(ctx context.Context, subscriptionID string, periodEnd time.Time) (bool, error) {
	query := `
		INSERT INTO subscription_reminders (subscription_id, period_end)
		VALUES ($1, $2)
		ON CONFLICT (subscription_id, period_end) DO NOTHING
	`
	result, err := l.db.pool.Exec(ctx, query, subscriptionID, periodEnd)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
