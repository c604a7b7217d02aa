package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"paysandbox-service/internal/domain/subscription"

	"go.uber.org/zap"
)

type capturingSender struct {
	to, subject, body string
	err               error
}

func (c *capturingSender) Send(to, subject, body string) error {
	c.to, c.subject, c.body = to, subject, body
	return c.err
}

func TestFormatAmount(t *testing.T) {
	tests := map[int64]string{
		500000:    "NGN 5,000.00",
		199:       "NGN 1.99",
		5:         "NGN 0.05",
		123456789: "NGN 1,234,567.89",
		-2500:     "NGN -25.00",
	}
	for minor, want := range tests {
		if got := FormatAmount(minor, "ngn"); got != want {
			t.Errorf("FormatAmount(%d) = %q, want %q", minor, got, want)
		}
	}
}

func TestRenewalReminder(t *testing.T) {
	sub := &subscription.Subscription{
		ID:               "sub_1",
		CustomerEmail:    "ada@example.com",
		Status:           subscription.StatusTrialing,
		CurrentPeriodEnd: time.Date(2026, time.March, 8, 9, 0, 0, 0, time.UTC),
	}
	plan := &subscription.Plan{Name: "Basic Monthly", Amount: 500000, Currency: "NGN", Interval: subscription.IntervalMonth}

	sender := &capturingSender{}
	r := NewRenewalReminder(sender, zap.NewNop())
	if err := r.SendRenewalReminder(context.Background(), sub, plan); err != nil {
		t.Fatal(err)
	}
	if sender.to != "ada@example.com" {
		t.Fatalf("to = %q", sender.to)
	}
	if !strings.Contains(sender.subject, "trial ends") || !strings.Contains(sender.body, "NGN 5,000.00") {
		t.Fatalf("subject = %q body = %q", sender.subject, sender.body)
	}

	sender.err = errors.New("relay denied")
	if err := r.SendRenewalReminder(context.Background(), sub, plan); err == nil {
		t.Fatal("expected send error")
	}

	if err := NewRenewalReminder(nil, zap.NewNop()).SendRenewalReminder(context.Background(), sub, plan); err != nil {
		t.Fatalf("unconfigured reminder: %v", err)
	}
}
