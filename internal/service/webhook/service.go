// internal/service/webhook/service.go
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"paysandbox-service/internal/domain/webhook"
	xerrors "paysandbox-service/internal/pkg/errors"
	"paysandbox-service/internal/pkg/idgen"

	"go.uber.org/zap"
)

// EndpointService manages a workspace's webhook endpoints.
type EndpointService struct {
	repo       webhook.Repository
	dispatcher deliverer
	logger     *zap.Logger
}

func NewEndpointService(repo webhook.Repository, dispatcher deliverer, logger *zap.Logger) *EndpointService {
	return &EndpointService{repo: repo, dispatcher: dispatcher, logger: logger}
}

// Register stores a new endpoint with a generated secret. Unknown events are
// dropped; at least one supported event must remain.
func (s *EndpointService) Register(ctx context.Context, workspaceID string, req *webhook.CreateEndpointRequest) (*webhook.Endpoint, error) {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, xerrors.Validation("url must be an absolute http(s) URL")
	}

	events := webhook.FilterEvents(req.Events)
	if len(events) == 0 {
		return nil, xerrors.Validation("at least one supported event is required")
	}

	now := time.Now().UTC()
	ep := &webhook.Endpoint{
		ID:                idgen.New(idgen.PrefixEndpoint),
		WorkspaceID:       workspaceID,
		URL:               req.URL,
		Events:            events,
		Secret:            idgen.Secret(),
		Description:       req.Description,
		IsActive:          true,
		MaxRetries:        webhook.DefaultMaxRetries,
		RetryDelay:        webhook.DefaultRetryDelay,
		BackoffMultiplier: webhook.DefaultBackoffMultiplier,
		Timeout:           webhook.DefaultTimeout,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.MaxRetries != nil {
		ep.MaxRetries = *req.MaxRetries
	}
	if req.RetryDelayMs != nil {
		ep.RetryDelay = time.Duration(*req.RetryDelayMs) * time.Millisecond
	}
	if req.BackoffMultiplier != nil {
		ep.BackoffMultiplier = *req.BackoffMultiplier
	}
	if req.TimeoutMs != nil {
		ep.Timeout = time.Duration(*req.TimeoutMs) * time.Millisecond
	}

	if err := s.repo.Create(ctx, ep); err != nil {
		return nil, fmt.Errorf("failed to create webhook endpoint: %w", err)
	}

	s.logger.Info("webhook endpoint registered",
		zap.String("endpoint_id", ep.ID),
		zap.String("workspace_id", workspaceID),
		zap.Strings("events", events))
	return ep, nil
}

func (s *EndpointService) List(ctx context.Context, workspaceID string) ([]webhook.Endpoint, error) {
	eps, err := s.repo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook endpoints: %w", err)
	}
	for i := range eps {
		eps[i].Secret = ""
	}
	return eps, nil
}

// Get returns the endpoint including its secret; other workspaces see 404.
func (s *EndpointService) Get(ctx context.Context, workspaceID, id string) (*webhook.Endpoint, error) {
	ep, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound("webhook endpoint", id)
		}
		return nil, err
	}
	if ep.WorkspaceID != workspaceID {
		return nil, xerrors.NotFound("webhook endpoint", id)
	}
	return ep, nil
}

func (s *EndpointService) Delete(ctx context.Context, workspaceID, id string) error {
	if _, err := s.Get(ctx, workspaceID, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("failed to deactivate webhook endpoint: %w", err)
	}
	s.logger.Info("webhook endpoint deactivated", zap.String("endpoint_id", id))
	return nil
}

// Test sends a webhook.test event synchronously, regardless of the endpoint's
// subscriptions, and reports the outcome.
func (s *EndpointService) Test(ctx context.Context, workspaceID, id string) (*webhook.TestEndpointResponse, error) {
	ep, err := s.Get(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}
	if !ep.IsActive {
		return nil, xerrors.InvalidState("webhook endpoint is inactive", "inactive")
	}

	outcome, err := s.dispatcher.Deliver(ctx, ep, webhook.EventWebhookTest, map[string]interface{}{
		"message":     "This is a test event",
		"endpoint_id": ep.ID,
	})
	if outcome == nil {
		return nil, err
	}

	resp := &webhook.TestEndpointResponse{
		Delivered:  outcome.Success,
		StatusCode: outcome.StatusCode,
		DurationMs: outcome.Duration.Milliseconds(),
		Error:      outcome.Error,
	}
	return resp, nil
}
