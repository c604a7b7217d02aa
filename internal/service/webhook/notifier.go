// internal/service/webhook/notifier.go
package webhook

import (
	"context"
	"sync"
	"time"

	"paysandbox-service/internal/domain/webhook"
	"paysandbox-service/internal/pkg/broker"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LivePublisher pushes events to connected dashboard clients.
type LivePublisher interface {
	PublishEvent(workspaceID, event string, data interface{})
}

const maxParallelDeliveries = 8

// Notifier fans an event out to every subscribed endpoint of a workspace,
// the live stream and the broker mirror. Emit returns immediately.
type Notifier struct {
	repo       webhook.Repository
	dispatcher deliverer
	retries    *RetryQueue
	live       LivePublisher
	mirror     broker.Publisher
	logger     *zap.Logger

	wg sync.WaitGroup
}

func NewNotifier(
	repo webhook.Repository,
	dispatcher deliverer,
	retries *RetryQueue,
	live LivePublisher,
	mirror broker.Publisher,
	logger *zap.Logger,
) *Notifier {
	return &Notifier{
		repo:       repo,
		dispatcher: dispatcher,
		retries:    retries,
		live:       live,
		mirror:     mirror,
		logger:     logger,
	}
}

// Emit never blocks the caller and never reports failure to it.
func (n *Notifier) Emit(ctx context.Context, workspaceID, event string, data interface{}) {
	if n == nil {
		return
	}
	if n.live != nil {
		n.live.PublishEvent(workspaceID, event, data)
	}

	bg := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.mirrorEvent(bg, workspaceID, event, data)
		n.fanOut(bg, workspaceID, event, data)
	}()
}

// Wait blocks until every in-flight Emit has finished its first attempts.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) fanOut(ctx context.Context, workspaceID, event string, data interface{}) {
	endpoints, err := n.repo.ListSubscribed(ctx, workspaceID, event)
	if err != nil {
		n.logger.Error("failed to resolve webhook endpoints",
			zap.String("workspace_id", workspaceID),
			zap.String("event", event),
			zap.Error(err))
		return
	}
	if len(endpoints) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelDeliveries)
	for i := range endpoints {
		ep := endpoints[i]
		g.Go(func() error {
			if _, err := n.dispatcher.Deliver(gctx, &ep, event, data); err != nil && n.retries != nil {
				n.retries.Enqueue(ep, event, data)
			}
			// one endpoint failing must not cancel the others
			return nil
		})
	}
	g.Wait()
}

func (n *Notifier) mirrorEvent(ctx context.Context, workspaceID, event string, data interface{}) {
	if n.mirror == nil {
		return
	}
	body := map[string]interface{}{
		"workspace_id": workspaceID,
		"event":        event,
		"data":         data,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	if err := n.mirror.Publish(ctx, event, body); err != nil {
		n.logger.Warn("failed to mirror event",
			zap.String("event", event),
			zap.Error(err))
	}
}
