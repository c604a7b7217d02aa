// Package memory is the sandbox store used when no database is configured.
// Every repository shares one Store so multi-record writes stay atomic.
package memory

import (
	"sync"
	"time"

	"paysandbox-service/internal/domain/customer"
	"paysandbox-service/internal/domain/fraud"
	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/domain/subscription"
	"paysandbox-service/internal/domain/webhook"
)

type reminderKey struct {
	subscriptionID string
	periodEnd      int64
}

type customerKey struct {
	workspaceID string
	email       string
}

type Store struct {
	mu sync.RWMutex

	sessions      map[string]*session.Session
	subscriptions map[string]*subscription.Subscription
	plans         map[string]*subscription.Plan
	endpoints     map[string]*webhook.Endpoint
	reviews       map[string]*fraud.Review
	customers     map[customerKey]*customer.Customer
	reminders     map[reminderKey]time.Time
	thresholds    map[string]fraud.Thresholds
}

func NewStore() *Store {
	return &Store{
		sessions:      make(map[string]*session.Session),
		subscriptions: make(map[string]*subscription.Subscription),
		plans:         make(map[string]*subscription.Plan),
		endpoints:     make(map[string]*webhook.Endpoint),
		reviews:       make(map[string]*fraud.Review),
		customers:     make(map[customerKey]*customer.Customer),
		reminders:     make(map[reminderKey]time.Time),
		thresholds:    make(map[string]fraud.Thresholds),
	}
}

func (s *Store) Sessions() *SessionRepository           { return &SessionRepository{s} }
func (s *Store) Subscriptions() *SubscriptionRepository { return &SubscriptionRepository{s} }
func (s *Store) Plans() *PlanRepository                 { return &PlanRepository{s} }
func (s *Store) Endpoints() *EndpointRepository         { return &EndpointRepository{s} }
func (s *Store) Reviews() *ReviewRepository             { return &ReviewRepository{s} }
func (s *Store) Customers() *CustomerRepository         { return &CustomerRepository{s} }
func (s *Store) Reminders() *ReminderLedger             { return &ReminderLedger{s} }
func (s *Store) Settings() *SettingsRepository          { return &SettingsRepository{s} }

// SeedPlan adds or replaces a catalog plan.
func (s *Store) SeedPlan(p subscription.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.plans[p.ID] = &p
}

// SetThresholds overrides the fraud thresholds for one workspace.
func (s *Store) SetThresholds(workspaceID string, t fraud.Thresholds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[workspaceID] = t
}

// DemoPlans is the catalog seeded into a fresh sandbox.
func DemoPlans() []subscription.Plan {
	return []subscription.Plan{
		{ID: "plan_basic_monthly", ProductID: "prod_basic", Name: "Basic Monthly", Amount: 500000, Currency: "NGN", Interval: subscription.IntervalMonth, TrialDays: 7, Active: true},
		{ID: "plan_pro_monthly", ProductID: "prod_pro", Name: "Pro Monthly", Amount: 1500000, Currency: "NGN", Interval: subscription.IntervalMonth, Active: true},
		{ID: "plan_pro_yearly", ProductID: "prod_pro", Name: "Pro Yearly", Amount: 15000000, Currency: "NGN", Interval: subscription.IntervalYear, TrialDays: 14, Active: true},
		{ID: "plan_daily_usd", ProductID: "prod_api", Name: "API Daily", Amount: 199, Currency: "USD", Interval: subscription.IntervalDay, Active: true},
		{ID: "plan_legacy", ProductID: "prod_basic", Name: "Legacy Quarterly", Amount: 1200000, Currency: "NGN", Interval: subscription.IntervalQuarter, Active: false},
	}
}

func paginate(total, page, pageSize int) (start, end int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start = (page - 1) * pageSize
	if start > total {
		start = total
	}
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
