// internal/service/webhook/retry.go
package webhook

import (
	"context"
	"math"
	"sync"
	"time"

	"paysandbox-service/internal/domain/webhook"
	"paysandbox-service/internal/pkg/metrics"

	"go.uber.org/zap"
)

const (
	DefaultRetryQueueSize = 256
	maxRetryDelay         = 10 * time.Minute
)

// deliverer is the slice of Dispatcher the queue needs.
type deliverer interface {
	Deliver(ctx context.Context, endpoint *webhook.Endpoint, event string, data interface{}) (*webhook.DeliveryOutcome, error)
}

type retryJob struct {
	endpoint webhook.Endpoint
	event    string
	data     interface{}
	attempt  int // retries already made
	due      time.Time
}

// RetryQueue re-invokes failed deliveries with exponential backoff. Each job
// waits on its own timer, so a long backoff never holds up other endpoints;
// workers only see jobs that are due. It is bounded; jobs that do not fit
// are dropped and logged.
type RetryQueue struct {
	dispatcher deliverer
	ready      chan retryJob
	size       int
	logger     *zap.Logger
	metrics    *metrics.Collector
	delay      func(endpoint webhook.Endpoint, n int) time.Duration
	now        func() time.Time

	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	pending int // waiting or ready, not yet picked up
	seq     uint64
	timers  map[uint64]*time.Timer
}

func NewRetryQueue(dispatcher deliverer, size int, logger *zap.Logger, m *metrics.Collector) *RetryQueue {
	if size <= 0 {
		size = DefaultRetryQueueSize
	}
	return &RetryQueue{
		dispatcher: dispatcher,
		ready:      make(chan retryJob, size),
		size:       size,
		logger:     logger,
		metrics:    m,
		delay:      retryDelay,
		now:        time.Now,
		timers:     make(map[uint64]*time.Timer),
	}
}

func retryDelay(endpoint webhook.Endpoint, n int) time.Duration {
	return Backoff(endpoint.RetryDelay, endpoint.BackoffMultiplier, n)
}

// Backoff returns the delay before retry n (1-based): base * multiplier^(n-1),
// capped at ten minutes.
func Backoff(base time.Duration, multiplier float64, n int) time.Duration {
	if base <= 0 {
		base = webhook.DefaultRetryDelay
	}
	if multiplier < 1 {
		multiplier = 1
	}
	if n < 1 {
		n = 1
	}
	d := float64(base) * math.Pow(multiplier, float64(n-1))
	if d > float64(maxRetryDelay) || math.IsInf(d, 0) {
		return maxRetryDelay
	}
	return time.Duration(d)
}

// Enqueue schedules the first retry of a failed delivery. It never blocks.
func (q *RetryQueue) Enqueue(endpoint webhook.Endpoint, event string, data interface{}) bool {
	if endpoint.MaxRetries <= 0 {
		return false
	}
	return q.schedule(retryJob{endpoint: endpoint, event: event, data: data})
}

// schedule arms a timer that hands the job to the workers once it is due.
func (q *RetryQueue) schedule(job retryJob) bool {
	wait := q.delay(job.endpoint, job.attempt+1)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if q.pending >= q.size {
		q.metrics.WebhookRetry("dropped")
		q.logger.Warn("webhook retry queue full, dropping delivery",
			zap.String("endpoint_id", job.endpoint.ID),
			zap.String("event", job.event),
			zap.Int("attempt", job.attempt))
		return false
	}

	q.pending++
	q.seq++
	id := q.seq
	job.due = q.now().Add(wait)
	q.timers[id] = time.AfterFunc(wait, func() { q.fire(id, job) })

	q.logger.Debug("webhook retry scheduled",
		zap.String("endpoint_id", job.endpoint.ID),
		zap.String("event", job.event),
		zap.Time("due", job.due))
	return true
}

func (q *RetryQueue) fire(id uint64, job retryJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.timers, id)
	if q.closed {
		q.pending--
		return
	}
	// pending never exceeds the channel capacity, so this does not block
	q.ready <- job
}

// Run starts workers that drain due jobs until ctx is cancelled.
func (q *RetryQueue) Run(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-q.ready:
					q.mu.Lock()
					q.pending--
					q.mu.Unlock()
					q.process(ctx, job)
				}
			}
		}()
	}
}

// Close stops accepting jobs, cancels waiting retries and waits for workers
// to exit. Run's context must be cancelled first.
func (q *RetryQueue) Close() {
	q.mu.Lock()
	q.closed = true
	for id, t := range q.timers {
		if t.Stop() {
			q.pending--
		}
		delete(q.timers, id)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *RetryQueue) process(ctx context.Context, job retryJob) {
	_, err := q.dispatcher.Deliver(ctx, &job.endpoint, job.event, job.data)
	if err == nil {
		q.metrics.WebhookRetry("delivered")
		return
	}

	job.attempt++
	if job.attempt >= job.endpoint.MaxRetries {
		q.metrics.WebhookRetry("exhausted")
		q.logger.Warn("webhook retries exhausted",
			zap.String("endpoint_id", job.endpoint.ID),
			zap.String("event", job.event),
			zap.Int("attempts", job.attempt+1))
		return
	}
	q.metrics.WebhookRetry("requeued")
	q.schedule(job)
}
