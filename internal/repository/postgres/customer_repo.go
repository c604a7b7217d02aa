// internal/repository/postgres/customer_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"paysandbox-service/internal/domain/customer"
	xerrors "paysandbox-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type CustomerRepository struct {
	db *DB
}

func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *CustomerRepository) Find(ctx context.Context, workspaceID, email string) (*customer.Customer, error) {
	email = normalizeEmail(email)

	query := `
		SELECT workspace_id, email, name, transaction_count, first_payment_at, last_payment_at, updated_at
		FROM customers WHERE workspace_id = $1 AND email = $2
	`

	var c customer.Customer
	err := r.db.pool.QueryRow(ctx, query, workspaceID, email).Scan(
		&c.WorkspaceID, &c.Email, &c.Name, &c.TransactionCount, &c.FirstPaymentAt, &c.LastPaymentAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}

	rows, err := r.db.pool.Query(ctx,
		`SELECT currency, total FROM customer_totals WHERE workspace_id = $1 AND email = $2`,
		workspaceID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer totals: %w", err)
	}
	defer rows.Close()

	c.Totals = make(map[string]int64)
	for rows.Next() {
		var currency string
		var total int64
		if err := rows.Scan(&currency, &total); err != nil {
			return nil, fmt.Errorf("failed to scan customer total: %w", err)
		}
		c.Totals[currency] = total
	}
	return &c, rows.Err()
}

func (r *CustomerRepository) Exists(ctx context.Context, workspaceID, email string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE workspace_id = $1 AND email = $2)`,
		workspaceID, normalizeEmail(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check customer: %w", err)
	}
	return exists, nil
}

func (r *CustomerRepository) Apply(ctx context.Context, adj customer.Adjustment) error {
	email := normalizeEmail(adj.Email)

	return r.db.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO customers (workspace_id, email, name, transaction_count, first_payment_at, last_payment_at, updated_at)
			VALUES ($1, $2, $3, $4,
			        CASE WHEN $4 > 0 THEN $5::timestamptz END,
			        CASE WHEN $4 > 0 THEN $5::timestamptz END,
			        $5)
			ON CONFLICT (workspace_id, email) DO UPDATE SET
				name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE customers.name END,
				transaction_count = customers.transaction_count + EXCLUDED.transaction_count,
				first_payment_at = COALESCE(customers.first_payment_at, EXCLUDED.first_payment_at),
				last_payment_at = COALESCE(EXCLUDED.last_payment_at, customers.last_payment_at),
				updated_at = EXCLUDED.updated_at
		`, adj.WorkspaceID, email, adj.Name, adj.Count, adj.At)
		if err != nil {
			return fmt.Errorf("failed to upsert customer: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO customer_totals (workspace_id, email, currency, total)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (workspace_id, email, currency) DO UPDATE SET
				total = customer_totals.total + EXCLUDED.total
		`, adj.WorkspaceID, email, adj.Currency, adj.Amount)
		if err != nil {
			return fmt.Errorf("failed to update customer total: %w", err)
		}
		return nil
	})
}
