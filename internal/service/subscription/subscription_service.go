// internal/service/subscription/subscription_service.go
package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/domain/subscription"
	"paysandbox-service/internal/domain/webhook"
	xerrors "paysandbox-service/internal/pkg/errors"
	"paysandbox-service/internal/pkg/idgen"

	"go.uber.org/zap"
)

// EventEmitter publishes gateway events without blocking.
type EventEmitter interface {
	Emit(ctx context.Context, workspaceID, event string, data interface{})
}

// maxCASAttempts bounds the reload-and-retry loop on version conflicts.
const maxCASAttempts = 3

type SubscriptionService struct {
	repo    subscription.Repository
	plans   subscription.PlanReader
	events  EventEmitter
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewSubscriptionService(
	repo subscription.Repository,
	plans subscription.PlanReader,
	events EventEmitter,
	baseURL string,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		repo:    repo,
		plans:   plans,
		events:  events,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateSubscription starts a subscription on an active plan. Without a trial
// the first period begins now and a pending first-charge session is opened.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, workspaceID string, req *subscription.CreateSubscriptionRequest) (*subscription.CreateSubscriptionResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	if email == "" {
		return nil, xerrors.Validation("customer_email is required")
	}

	plan, err := s.plans.FindPlan(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound("plan", req.PlanID)
		}
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if !plan.Active {
		return nil, xerrors.NotFound("plan", req.PlanID)
	}

	now := s.now()
	sub := &subscription.Subscription{
		ID:                 idgen.New(idgen.PrefixSubscription),
		WorkspaceID:        workspaceID,
		CustomerEmail:      email,
		ProductID:          plan.ProductID,
		PlanID:             plan.ID,
		StartDate:          now,
		CurrentPeriodStart: now,
		Metadata:           req.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var charge *session.Session
	if req.ChargeNow || plan.TrialDays <= 0 {
		end, err := subscription.AddInterval(now, plan.Interval)
		if err != nil {
			return nil, xerrors.Validation("plan %s: %v", plan.ID, err)
		}
		sub.Status = subscription.StatusActive
		sub.CurrentPeriodEnd = end
		sub.BillingAnchor = now

		charge = session.New(workspaceID, plan.Amount, plan.Currency,
			"Subscription: "+plan.Name,
			session.SubscriptionChargePurpose(sub.ID, plan.ID),
			now, session.ShareableTTL)
		charge.CustomerEmail = email
	} else {
		sub.Status = subscription.StatusTrialing
		sub.CurrentPeriodEnd = now.AddDate(0, 0, plan.TrialDays)
		sub.BillingAnchor = sub.CurrentPeriodEnd
	}

	if err := s.repo.Create(ctx, sub, charge); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.logger.Info("subscription created",
		zap.String("subscription_id", sub.ID),
		zap.String("workspace_id", workspaceID),
		zap.String("plan_id", plan.ID),
		zap.String("status", string(sub.Status)),
		zap.Time("current_period_end", sub.CurrentPeriodEnd))

	result := &subscription.CreateSubscriptionResult{Subscription: sub}
	s.emit(ctx, sub, webhook.EventSubscriptionCreated)
	if charge != nil {
		result.FirstCharge = charge
		result.CheckoutURL = s.baseURL + "/checkout/" + charge.ID
		invoice := *charge
		s.emitData(ctx, workspaceID, webhook.EventInvoiceCreated, &invoice)
	}
	return result, nil
}

func (s *SubscriptionService) GetSubscription(ctx context.Context, workspaceID, id string) (*subscription.Subscription, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound("subscription", id)
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub.WorkspaceID != workspaceID {
		return nil, xerrors.NotFound("subscription", id)
	}
	return sub, nil
}

func (s *SubscriptionService) ListSubscriptions(ctx context.Context, workspaceID string, filters *subscription.SubscriptionListFilters) (*subscription.SubscriptionListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	subs, total, err := s.repo.List(ctx, workspaceID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize != 0 {
		totalPages++
	}
	return &subscription.SubscriptionListResponse{
		Subscriptions: subs,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
		TotalPages:    totalPages,
	}, nil
}

// CancelSubscription either flags the subscription for cancellation when the
// current period ends or cancels it now.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, workspaceID, id string, atPeriodEnd bool) (*subscription.Subscription, error) {
	event := webhook.EventSubscriptionCancelled
	sub, err := s.mutate(ctx, workspaceID, id, func(sub *subscription.Subscription, now time.Time) error {
		if sub.Status == subscription.StatusCanceled {
			return xerrors.InvalidState("subscription is already canceled", "already_canceled")
		}
		if atPeriodEnd {
			if sub.Status == subscription.StatusPaused {
				return xerrors.InvalidState("paused subscriptions can only be canceled immediately", "paused")
			}
			sub.CancelAtPeriodEnd = true
			event = webhook.EventSubscriptionUpdated
			return nil
		}
		sub.Status = subscription.StatusCanceled
		sub.CancelAtPeriodEnd = false
		sub.CanceledAt = &now
		event = webhook.EventSubscriptionCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription cancel requested",
		zap.String("subscription_id", id),
		zap.Bool("at_period_end", atPeriodEnd))
	s.emit(ctx, sub, event)
	return sub, nil
}

// PauseSubscription moves an active subscription to paused. The period is
// left as is.
func (s *SubscriptionService) PauseSubscription(ctx context.Context, workspaceID, id string) (*subscription.Subscription, error) {
	return s.transition(ctx, workspaceID, id, subscription.StatusActive, subscription.StatusPaused)
}

func (s *SubscriptionService) ResumeSubscription(ctx context.Context, workspaceID, id string) (*subscription.Subscription, error) {
	return s.transition(ctx, workspaceID, id, subscription.StatusPaused, subscription.StatusActive)
}

func (s *SubscriptionService) transition(ctx context.Context, workspaceID, id string, from, to subscription.Status) (*subscription.Subscription, error) {
	sub, err := s.mutate(ctx, workspaceID, id, func(sub *subscription.Subscription, now time.Time) error {
		if sub.Status != from {
			return xerrors.InvalidState(
				fmt.Sprintf("subscription must be %s to become %s", from, to),
				"status_"+string(sub.Status))
		}
		sub.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subscription status changed",
		zap.String("subscription_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	s.emit(ctx, sub, webhook.EventSubscriptionUpdated)
	return sub, nil
}

// mutate applies fn to a fresh copy and writes it with compare-and-swap,
// reloading on version conflicts.
func (s *SubscriptionService) mutate(ctx context.Context, workspaceID, id string, fn func(*subscription.Subscription, time.Time) error) (*subscription.Subscription, error) {
	for attempt := 1; attempt <= maxCASAttempts; attempt++ {
		sub, err := s.GetSubscription(ctx, workspaceID, id)
		if err != nil {
			return nil, err
		}

		now := s.now()
		if err := fn(sub, now); err != nil {
			return nil, err
		}
		sub.UpdatedAt = now

		expected := sub.Version
		err = s.repo.Update(ctx, sub, expected)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, xerrors.ErrConflict) {
			return nil, fmt.Errorf("failed to update subscription: %w", err)
		}
		s.logger.Debug("subscription version conflict, retrying",
			zap.String("subscription_id", id),
			zap.Int64("version", expected),
			zap.Int("attempt", attempt))
	}
	return nil, xerrors.InvalidState("subscription is being modified concurrently", "conflict")
}

func (s *SubscriptionService) emit(ctx context.Context, sub *subscription.Subscription, event string) {
	snapshot := *sub
	s.emitData(ctx, sub.WorkspaceID, event, &snapshot)
}

func (s *SubscriptionService) emitData(ctx context.Context, workspaceID, event string, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, workspaceID, event, data)
}
