// internal/service/webhook/dispatcher.go
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"paysandbox-service/internal/domain/webhook"
	xerrors "paysandbox-service/internal/pkg/errors"
	"paysandbox-service/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Dispatcher performs single delivery attempts. Retrying is the caller's
// business (see RetryQueue).
type Dispatcher struct {
	repo    webhook.Repository
	client  *http.Client
	logger  *zap.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewDispatcher(repo webhook.Repository, client *http.Client, logger *zap.Logger, m *metrics.Collector) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Dispatcher{
		repo:    repo,
		client:  client,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Deliver POSTs one signed envelope to endpoint. Stats are recorded whatever
// the outcome; a non-2xx answer or transport failure is a DeliveryError.
func (d *Dispatcher) Deliver(ctx context.Context, endpoint *webhook.Endpoint, event string, data interface{}) (*webhook.DeliveryOutcome, error) {
	signedAt := d.now().UTC()
	body, err := json.Marshal(webhook.Envelope{
		Event:     event,
		Data:      data,
		Timestamp: signedAt.Format(time.RFC3339),
		WebhookID: endpoint.ID,
	})
	if err != nil {
		return nil, xerrors.Delivery("failed to encode webhook envelope", err)
	}

	timeout := endpoint.Timeout
	if timeout <= 0 {
		timeout = webhook.DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome := &webhook.DeliveryOutcome{
		EndpointID: endpoint.ID,
		Event:      event,
		At:         signedAt,
	}

	start := time.Now()
	statusCode, sendErr := d.send(reqCtx, endpoint, event, body, signedAt)
	outcome.Duration = time.Since(start)
	outcome.StatusCode = statusCode
	outcome.Success = sendErr == nil

	if err := d.repo.RecordAttempt(ctx, endpoint.ID, outcome.Success, signedAt); err != nil {
		d.logger.Warn("failed to record webhook attempt",
			zap.String("endpoint_id", endpoint.ID),
			zap.Error(err))
	}
	d.metrics.WebhookDelivery(event, outcome.Success, outcome.Duration)

	if sendErr != nil {
		outcome.Error = sendErr.Error()
		d.logger.Warn("webhook delivery failed",
			zap.String("endpoint_id", endpoint.ID),
			zap.String("event", event),
			zap.Int("status_code", statusCode),
			zap.Duration("duration", outcome.Duration),
			zap.Error(sendErr))
		return outcome, xerrors.Delivery("delivery to "+endpoint.ID+" failed", sendErr)
	}

	d.logger.Debug("webhook delivered",
		zap.String("endpoint_id", endpoint.ID),
		zap.String("event", event),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", outcome.Duration))
	return outcome, nil
}

func (d *Dispatcher) send(ctx context.Context, endpoint *webhook.Endpoint, event string, body []byte, signedAt time.Time) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "paysandbox-webhooks/1.0")
	req.Header.Set(HeaderSignature, Sign(body, endpoint.Secret))
	req.Header.Set(HeaderTimestamp, signedAt.Format(time.RFC3339))
	req.Header.Set(HeaderEvent, event)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("endpoint answered %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
