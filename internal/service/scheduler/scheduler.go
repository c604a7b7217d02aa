// internal/service/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"paysandbox-service/internal/domain/customer"
	"paysandbox-service/internal/domain/subscription"
	"paysandbox-service/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultInterval  = time.Minute
	DefaultLookahead = 3 * 24 * time.Hour

	lockKey = "paysandbox:scheduler:tick"
)

var ErrAlreadyRunning = errors.New("scheduler already running")

type Config struct {
	Interval  time.Duration
	Lookahead time.Duration
}

// Scheduler renews subscriptions on a cron tick. Ticks never overlap within a
// process; with a Locker they never overlap across processes either.
type Scheduler struct {
	subs      subscription.Repository
	plans     subscription.PlanReader
	ledger    subscription.ReminderLedger
	customers customer.Repository
	reminders ReminderSender
	events    EventEmitter
	locker    Locker
	logger    *zap.Logger
	metrics   *metrics.Collector

	interval  time.Duration
	lookahead time.Duration
	now       func() time.Time

	tickMu sync.Mutex

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	running bool
	last    *TickReport
}

func NewScheduler(
	subs subscription.Repository,
	plans subscription.PlanReader,
	ledger subscription.ReminderLedger,
	customers customer.Repository,
	reminders ReminderSender,
	events EventEmitter,
	locker Locker,
	cfg Config,
	logger *zap.Logger,
	m *metrics.Collector,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = DefaultLookahead
	}
	return &Scheduler{
		subs:      subs,
		plans:     plans,
		ledger:    ledger,
		customers: customers,
		reminders: reminders,
		events:    events,
		locker:    locker,
		logger:    logger,
		metrics:   m,
		interval:  cfg.Interval,
		lookahead: cfg.Lookahead,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the tick and starts the cron runner. A second Start
// without Stop returns ErrAlreadyRunning.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(s.logger.Named("cron")))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))

	ctx, cancel := context.WithCancel(context.Background())
	schedule := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(schedule, func() { s.tick(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule renewal tick: %w", err)
	}
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.running = true
	s.logger.Info("renewal scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("lookahead", s.lookahead))
	return nil
}

// Stop cancels the running tick and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("renewal scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("renewal tick failed", zap.Error(err))
	}
}

// RunOnce performs one reminder scan followed by one renewal scan.
func (s *Scheduler) RunOnce(ctx context.Context) (*TickReport, error) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	started := time.Now()
	report := &TickReport{StartedAt: s.now()}

	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx, lockKey, s.lockTTL())
		if err != nil {
			return nil, err
		}
		if !ok {
			report.Skipped = true
			s.logger.Debug("renewal tick held by another instance")
			return report, nil
		}
		defer release()
	}

	s.metrics.SchedulerTick()
	now := s.now()
	s.remindDue(ctx, now, report)
	if ctx.Err() == nil {
		s.renewDue(ctx, now, report)
	}
	report.DurationMs = time.Since(started).Milliseconds()

	if report.Reminders+report.Renewals+report.Cancellations+report.Errors > 0 {
		s.logger.Info("renewal tick finished",
			zap.Int("reminders", report.Reminders),
			zap.Int("renewals", report.Renewals),
			zap.Int("cancellations", report.Cancellations),
			zap.Int("errors", report.Errors))
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report, ctx.Err()
}

// LastTick returns the most recent completed tick, or nil before the first.
func (s *Scheduler) LastTick() *TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) lockTTL() time.Duration {
	ttl := 2 * s.interval
	if ttl < 30*time.Second {
		ttl = 30 * time.Second
	}
	return ttl
}
