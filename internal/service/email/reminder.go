// internal/service/email/reminder.go
package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"paysandbox-service/internal/domain/subscription"

	"go.uber.org/zap"
)

const ReminderUpcomingRenewal = "upcoming_renewal"

// RenewalReminder emails customers before a period ends. With no Sender it
// only logs, which is what an unconfigured sandbox wants.
type RenewalReminder struct {
	sender Sender
	logger *zap.Logger
}

func NewRenewalReminder(sender Sender, logger *zap.Logger) *RenewalReminder {
	return &RenewalReminder{sender: sender, logger: logger}
}

func (r *RenewalReminder) SendRenewalReminder(ctx context.Context, sub *subscription.Subscription, plan *subscription.Plan) error {
	subject, body := renderReminder(sub, plan)

	if r.sender == nil {
		r.logger.Info("renewal reminder (smtp not configured)",
			zap.String("notification", ReminderUpcomingRenewal),
			zap.String("subscription_id", sub.ID),
			zap.String("to", sub.CustomerEmail),
			zap.String("subject", subject))
		return nil
	}

	if err := r.sender.Send(sub.CustomerEmail, subject, body); err != nil {
		return fmt.Errorf("failed to email %s: %w", sub.CustomerEmail, err)
	}
	return nil
}

func renderReminder(sub *subscription.Subscription, plan *subscription.Plan) (string, string) {
	action := "renews"
	if sub.Status == subscription.StatusTrialing {
		action = "trial ends and billing starts"
	}
	if sub.CancelAtPeriodEnd {
		action = "ends"
	}

	subject := fmt.Sprintf("Your %s subscription %s on %s", plan.Name, action, sub.CurrentPeriodEnd.Format("Jan 2, 2006"))

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hello,</p>")
	fmt.Fprintf(&b, "<p>Your <strong>%s</strong> subscription %s on <strong>%s</strong>.</p>",
		html.EscapeString(plan.Name), action, sub.CurrentPeriodEnd.Format("Monday, Jan 2, 2006 15:04 MST"))
	if !sub.CancelAtPeriodEnd {
		fmt.Fprintf(&b, "<p>Amount: <strong>%s</strong> per %s.</p>", FormatAmount(plan.Amount, plan.Currency), plan.Interval)
	}
	fmt.Fprintf(&b, "<p style=\"color:#888\">Subscription %s</p>", html.EscapeString(sub.ID))
	return subject, b.String()
}

// FormatAmount renders minor units as "NGN 5,000.00".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	whole := fmt.Sprintf("%d", minor/100)
	var grouped strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(c)
	}
	return fmt.Sprintf("%s %s%s.%02d", strings.ToUpper(currency), sign, grouped.String(), minor%100)
}
