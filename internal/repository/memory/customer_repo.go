package memory

import (
	"context"
	"strings"

	"paysandbox-service/internal/domain/customer"
	xerrors "paysandbox-service/internal/pkg/errors"
)

type CustomerRepository struct {
	s *Store
}

func keyFor(workspaceID, email string) customerKey {
	return customerKey{workspaceID: workspaceID, email: strings.ToLower(strings.TrimSpace(email))}
}

func cloneCustomer(in *customer.Customer) *customer.Customer {
	out := *in
	out.Totals = make(map[string]int64, len(in.Totals))
	for k, v := range in.Totals {
		out.Totals[k] = v
	}
	out.FirstPaymentAt = copyTime(in.FirstPaymentAt)
	out.LastPaymentAt = copyTime(in.LastPaymentAt)
	return &out
}

func (r *CustomerRepository) Find(ctx context.Context, workspaceID, email string) (*customer.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.customers[keyFor(workspaceID, email)]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return cloneCustomer(c), nil
}

func (r *CustomerRepository) Exists(ctx context.Context, workspaceID, email string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.customers[keyFor(workspaceID, email)]
	return ok, nil
}

func (r *CustomerRepository) Apply(ctx context.Context, adj customer.Adjustment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := keyFor(adj.WorkspaceID, adj.Email)
	c, ok := r.s.customers[key]
	if !ok {
		c = &customer.Customer{
			WorkspaceID: adj.WorkspaceID,
			Email:       key.email,
			Totals:      make(map[string]int64),
		}
		r.s.customers[key] = c
	}

	if adj.Name != "" {
		c.Name = adj.Name
	}
	c.TransactionCount += adj.Count
	c.Totals[adj.Currency] += adj.Amount
	if adj.Count > 0 {
		at := adj.At
		if c.FirstPaymentAt == nil {
			c.FirstPaymentAt = &at
		}
		c.LastPaymentAt = &at
	}
	c.UpdatedAt = adj.At
	return nil
}
