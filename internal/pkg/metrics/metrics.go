// Package metrics holds the Prometheus collectors for the gateway engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paysandbox"

// Collector owns a private registry. A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	SessionsProcessed  *prometheus.CounterVec
	FraudDecisions     *prometheus.CounterVec
	WebhookDeliveries  *prometheus.CounterVec
	WebhookDuration    *prometheus.HistogramVec
	WebhookRetries     *prometheus.CounterVec
	SchedulerTicks     prometheus.Counter
	SchedulerRenewals  *prometheus.CounterVec
	SchedulerReminders prometheus.Counter
	SchedulerErrors    *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
}

func New() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		SessionsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_processed_total",
			Help:      "Checkout sessions processed, by outcome",
		}, []string{"outcome"}),
		FraudDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fraud_decisions_total",
			Help:      "Fraud gate decisions, by action and whether analysis failed open",
		}, []string{"action", "fail_open"}),
		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts, by event and outcome",
		}, []string{"event", "outcome"}),
		WebhookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_delivery_duration_seconds",
			Help:      "Duration of webhook delivery attempts in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		WebhookRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_retries_total",
			Help:      "Webhook retry queue activity, by result",
		}, []string{"result"}),
		SchedulerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_ticks_total",
			Help:      "Renewal scheduler ticks executed",
		}),
		SchedulerRenewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_renewals_total",
			Help:      "Subscriptions advanced or cancelled by the scheduler",
		}, []string{"kind"}),
		SchedulerReminders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_reminders_total",
			Help:      "Upcoming renewal reminders sent",
		}),
		SchedulerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_errors_total",
			Help:      "Per-subscription scheduler failures, by scan",
		}, []string{"scan"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
	}

	reg.MustRegister(
		c.SessionsProcessed,
		c.FraudDecisions,
		c.WebhookDeliveries,
		c.WebhookDuration,
		c.WebhookRetries,
		c.SchedulerTicks,
		c.SchedulerRenewals,
		c.SchedulerReminders,
		c.SchedulerErrors,
		c.HTTPRequestsTotal,
	)
	return c
}

// Registry exposes the underlying registry, mostly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) SessionProcessed(outcome string) {
	if c == nil {
		return
	}
	c.SessionsProcessed.WithLabelValues(outcome).Inc()
}

func (c *Collector) FraudDecision(action string, failOpen bool) {
	if c == nil {
		return
	}
	c.FraudDecisions.WithLabelValues(action, strconv.FormatBool(failOpen)).Inc()
}

func (c *Collector) WebhookDelivery(event string, success bool, d time.Duration) {
	if c == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.WebhookDeliveries.WithLabelValues(event, outcome).Inc()
	c.WebhookDuration.WithLabelValues(event).Observe(d.Seconds())
}

func (c *Collector) WebhookRetry(result string) {
	if c == nil {
		return
	}
	c.WebhookRetries.WithLabelValues(result).Inc()
}

func (c *Collector) SchedulerTick() {
	if c == nil {
		return
	}
	c.SchedulerTicks.Inc()
}

func (c *Collector) SchedulerRenewal(kind string) {
	if c == nil {
		return
	}
	c.SchedulerRenewals.WithLabelValues(kind).Inc()
}

func (c *Collector) SchedulerReminder() {
	if c == nil {
		return
	}
	c.SchedulerReminders.Inc()
}

func (c *Collector) SchedulerError(scan string) {
	if c == nil {
		return
	}
	c.SchedulerErrors.WithLabelValues(scan).Inc()
}

func (c *Collector) HTTPRequest(method, path string, status int) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
