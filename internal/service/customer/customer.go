// internal/service/customer/customer.go
package customer

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"paysandbox-service/internal/domain/customer"
	xerrors "paysandbox-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type CustomerService struct {
	customerRepo customer.Repository
	logger       *zap.Logger
}

func NewCustomerService(customerRepo customer.Repository, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// GetCustomerByEmail returns the workspace aggregate for a payer email.
func (s *CustomerService) GetCustomerByEmail(ctx context.Context, workspaceID, email string) (*customer.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, xerrors.Validation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, xerrors.Validation("email is not a valid address")
	}

	c, err := s.customerRepo.Find(ctx, workspaceID, email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound("customer", email)
		}
		s.logger.Error("customer lookup failed",
			zap.String("workspace_id", workspaceID),
			zap.Error(err))
		return nil, err
	}
	if c.Totals == nil {
		c.Totals = map[string]int64{}
	}
	return c, nil
}
