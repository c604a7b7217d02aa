// internal/service/scheduler/jobs.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paysandbox-service/internal/domain/customer"
	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/domain/subscription"
	"paysandbox-service/internal/domain/webhook"
	xerrors "paysandbox-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// ReminderSender delivers the upcoming_renewal notification.
type ReminderSender interface {
	SendRenewalReminder(ctx context.Context, sub *subscription.Subscription, plan *subscription.Plan) error
}

// EventEmitter publishes gateway events without blocking.
type EventEmitter interface {
	Emit(ctx context.Context, workspaceID, event string, data interface{})
}

const (
	DescriptionFirstCharge = "First charge after trial"
	DescriptionRenewal     = "Renewal charge"

	renewalPaymentMethod = "card_on_file"
)

// TickReport summarizes one scheduler pass.
type TickReport struct {
	StartedAt     time.Time `json:"started_at"`
	DurationMs    int64     `json:"duration_ms"`
	Skipped       bool      `json:"skipped,omitempty"`
	Reminders     int       `json:"reminders"`
	Renewals      int       `json:"renewals"`
	Cancellations int       `json:"cancellations"`
	Errors        int       `json:"errors"`
}

// remindDue sends one reminder per (subscription, period end) whose period
// ends inside the lookahead window.
func (s *Scheduler) remindDue(ctx context.Context, now time.Time, report *TickReport) {
	subs, err := s.subs.ListPeriodEndingBetween(ctx, subscription.BillableStatuses, now, now.Add(s.lookahead))
	if err != nil {
		s.logger.Error("reminder scan failed", zap.Error(err))
		s.metrics.SchedulerError("reminder")
		report.Errors++
		return
	}

	for i := range subs {
		sub := &subs[i]
		sent, err := s.remind(ctx, sub)
		if err != nil {
			err = xerrors.Scheduler(sub.ID, err)
			s.logger.Error("failed to send renewal reminder", zap.Error(err))
			s.metrics.SchedulerError("reminder")
			report.Errors++
			continue
		}
		if sent {
			report.Reminders++
		}
	}
}

// remind claims the ledger entry before sending, so a failed send is not
// retried on the next tick.
func (s *Scheduler) remind(ctx context.Context, sub *subscription.Subscription) (bool, error) {
	claimed, err := s.ledger.Claim(ctx, sub.ID, sub.CurrentPeriodEnd)
	if err != nil {
		return false, fmt.Errorf("claim reminder: %w", err)
	}
	if !claimed {
		return false, nil
	}

	plan, err := s.plans.FindPlan(ctx, sub.PlanID)
	if err != nil {
		return false, fmt.Errorf("load plan %s: %w", sub.PlanID, err)
	}
	if s.reminders != nil {
		if err := s.reminders.SendRenewalReminder(ctx, sub, plan); err != nil {
			return false, fmt.Errorf("send reminder: %w", err)
		}
	}
	s.metrics.SchedulerReminder()
	s.logger.Info("renewal reminder sent",
		zap.String("subscription_id", sub.ID),
		zap.Time("period_end", sub.CurrentPeriodEnd))
	return true, nil
}

// renewDue advances every billable subscription whose period has ended.
func (s *Scheduler) renewDue(ctx context.Context, now time.Time, report *TickReport) {
	subs, err := s.subs.ListDue(ctx, subscription.BillableStatuses, now)
	if err != nil {
		s.logger.Error("renewal scan failed", zap.Error(err))
		s.metrics.SchedulerError("renewal")
		report.Errors++
		return
	}

	for i := range subs {
		sub := &subs[i]
		var err error
		if sub.CancelAtPeriodEnd {
			err = s.cancelAtPeriodEnd(ctx, sub, now)
			if err == nil {
				report.Cancellations++
			}
		} else {
			err = s.renew(ctx, sub, now)
			if err == nil {
				report.Renewals++
			}
		}

		if errors.Is(err, xerrors.ErrConflict) {
			// a request changed it since the scan; next tick sees the new state
			s.logger.Info("subscription changed during renewal, skipped",
				zap.String("subscription_id", sub.ID))
			continue
		}
		if err != nil {
			err = xerrors.Scheduler(sub.ID, err)
			s.logger.Error("failed to process due subscription", zap.Error(err))
			s.metrics.SchedulerError("renewal")
			report.Errors++
		}
	}
}

func (s *Scheduler) cancelAtPeriodEnd(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	expected := sub.Version
	sub.Status = subscription.StatusCanceled
	sub.CanceledAt = &now
	sub.UpdatedAt = now
	if err := s.subs.Update(ctx, sub, expected); err != nil {
		return err
	}

	s.metrics.SchedulerRenewal("canceled")
	s.logger.Info("deferred cancellation applied", zap.String("subscription_id", sub.ID))
	s.emit(ctx, sub.WorkspaceID, webhook.EventSubscriptionCancelled, *sub)
	return nil
}

func (s *Scheduler) renew(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	plan, err := s.plans.FindPlan(ctx, sub.PlanID)
	if err != nil {
		return fmt.Errorf("load plan %s: %w", sub.PlanID, err)
	}

	nextStart := sub.CurrentPeriodEnd
	nextEnd, err := subscription.NextPeriodEnd(nextStart, sub.BillingAnchor, plan.Interval)
	if err != nil {
		return err
	}

	description := DescriptionRenewal
	if sub.Status == subscription.StatusTrialing {
		description = DescriptionFirstCharge
	}

	charge := session.New(sub.WorkspaceID, plan.Amount, plan.Currency, description,
		session.SubscriptionChargePurpose(sub.ID, plan.ID), now, 0)
	charge.CustomerEmail = sub.CustomerEmail
	charge.Status = session.StatusCompleted
	charge.CompletedAt = &now
	charge.PaymentMethod = renewalPaymentMethod

	expected := sub.Version
	sub.Status = subscription.StatusActive
	sub.CurrentPeriodStart = nextStart
	sub.CurrentPeriodEnd = nextEnd
	sub.UpdatedAt = now
	if err := s.subs.Renew(ctx, sub, expected, charge); err != nil {
		return err
	}

	kind := "renewal"
	if description == DescriptionFirstCharge {
		kind = "trial_conversion"
	}
	s.metrics.SchedulerRenewal(kind)
	s.logger.Info("subscription renewed",
		zap.String("subscription_id", sub.ID),
		zap.String("session_id", charge.ID),
		zap.Int64("amount", charge.Amount),
		zap.Time("current_period_end", sub.CurrentPeriodEnd))

	if s.customers != nil && sub.CustomerEmail != "" {
		err := s.customers.Apply(ctx, customer.Adjustment{
			WorkspaceID: sub.WorkspaceID,
			Email:       sub.CustomerEmail,
			Currency:    charge.Currency,
			Count:       1,
			Amount:      charge.Amount,
			At:          now,
		})
		if err != nil {
			s.logger.Error("failed to update customer aggregate",
				zap.String("subscription_id", sub.ID),
				zap.Error(err))
		}
	}

	s.emit(ctx, sub.WorkspaceID, webhook.EventInvoicePaid, *charge)
	s.emit(ctx, sub.WorkspaceID, webhook.EventPaymentCompleted, *charge)
	s.emit(ctx, sub.WorkspaceID, webhook.EventSubscriptionUpdated, *sub)
	return nil
}

func (s *Scheduler) emit(ctx context.Context, workspaceID, event string, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.Emit(ctx, workspaceID, event, data)
}
