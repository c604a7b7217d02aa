// internal/service/session/session_service.go
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"paysandbox-service/internal/domain/customer"
	"paysandbox-service/internal/domain/fraud"
	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/domain/webhook"
	xerrors "paysandbox-service/internal/pkg/errors"
	"paysandbox-service/internal/pkg/idgen"
	"paysandbox-service/internal/pkg/metrics"

	"go.uber.org/zap"
)

// FraudGate decides whether a payment attempt may proceed.
type FraudGate interface {
	Analyze(ctx context.Context, in fraud.Input) fraud.Assessment
}

// EventEmitter publishes gateway events without blocking.
type EventEmitter interface {
	Emit(ctx context.Context, workspaceID, event string, data interface{})
}

const ReasonCancelledByCustomer = "cancelled_by_customer"

// SessionService drives checkout sessions through their lifecycle.
type SessionService struct {
	repo      session.Repository
	reviews   fraud.ReviewRepository
	customers customer.Repository
	gate      FraudGate
	gateway   GatewaySimulator
	events    EventEmitter
	baseURL   string
	logger    *zap.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

func NewSessionService(
	repo session.Repository,
	reviews fraud.ReviewRepository,
	customers customer.Repository,
	gate FraudGate,
	gateway GatewaySimulator,
	events EventEmitter,
	baseURL string,
	logger *zap.Logger,
	m *metrics.Collector,
) *SessionService {
	return &SessionService{
		repo:      repo,
		reviews:   reviews,
		customers: customers,
		gate:      gate,
		gateway:   gateway,
		events:    events,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CheckoutURL is the public payment page for a session.
func (s *SessionService) CheckoutURL(id string) string {
	return CheckoutURL(s.baseURL, id)
}

func CheckoutURL(baseURL, id string) string {
	return strings.TrimSuffix(baseURL, "/") + "/checkout/" + id
}

// Create opens a pending session.
func (s *SessionService) Create(ctx context.Context, workspaceID string, req *session.CreateSessionRequest) (*session.Session, error) {
	if req.Amount <= 0 {
		return nil, xerrors.Validation("amount must be greater than zero")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return nil, xerrors.Validation("currency is required")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, xerrors.Validation("description is required")
	}

	ttl := session.AdhocTTL
	if req.Shareable {
		ttl = session.ShareableTTL
	}
	purpose := session.AdhocPurpose()
	if req.TemplatePreview {
		purpose = session.TemplatePreviewPurpose()
	}

	sess := session.New(workspaceID, req.Amount, currency, req.Description, purpose, s.now(), ttl)
	sess.CustomerEmail = strings.ToLower(strings.TrimSpace(req.CustomerEmail))
	sess.CustomerName = req.CustomerName
	sess.SuccessURL = req.SuccessURL
	sess.CancelURL = req.CancelURL
	if req.Metadata != nil {
		sess.Metadata = req.Metadata
	}

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("workspace_id", workspaceID),
		zap.Int64("amount", sess.Amount),
		zap.String("currency", sess.Currency),
		zap.Duration("ttl", ttl))
	return sess, nil
}

// Get returns the session with expiry applied. A pending session past its
// expiry is persisted as expired on first read.
func (s *SessionService) Get(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(s.now()) {
		s.expire(ctx, sess)
	}
	return sess, nil
}

// GetForWorkspace is Get scoped to the owning workspace.
func (s *SessionService) GetForWorkspace(ctx context.Context, workspaceID, id string) (*session.Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.WorkspaceID != workspaceID {
		return nil, xerrors.NotFound("session", id)
	}
	return sess, nil
}

// Checkout is the public projection of a session.
func (s *SessionService) Checkout(ctx context.Context, id string) (*session.CheckoutView, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &session.CheckoutView{
		ID:          sess.ID,
		Amount:      sess.Amount,
		Currency:    sess.Currency,
		Description: sess.Description,
		Status:      sess.Status,
		ExpiresAt:   sess.ExpiresAt.Format(time.RFC3339),
		SuccessURL:  sess.SuccessURL,
		CancelURL:   sess.CancelURL,
		CheckoutURL: s.CheckoutURL(sess.ID),
	}, nil
}

func (s *SessionService) List(ctx context.Context, workspaceID string, filters *session.SessionListFilters) (*session.SessionListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	sessions, total, err := s.repo.List(ctx, workspaceID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := s.now()
	for i := range sessions {
		sessions[i].Status = sessions[i].EffectiveStatus(now)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize != 0 {
		totalPages++
	}
	return &session.SessionListResponse{
		Sessions:   sessions,
		Total:      total,
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Process runs one payment attempt: fraud gate, gateway, then a conditional
// transition out of pending.
func (s *SessionService) Process(ctx context.Context, id string, in session.ProcessInput) (*session.Session, error) {
	sess, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	// a held session waits for its review instead of being gated again
	if held, err := s.pendingReview(ctx, sess.ID); err != nil {
		return nil, err
	} else if held != nil {
		return nil, xerrors.ReviewRequired(held.ID, held.Score)
	}

	isNew := false
	if sess.CustomerEmail != "" && s.customers != nil {
		exists, err := s.customers.Exists(ctx, sess.WorkspaceID, sess.CustomerEmail)
		if err != nil {
			s.logger.Warn("customer lookup failed, treating as known",
				zap.String("session_id", sess.ID),
				zap.Error(err))
		} else {
			isNew = !exists
		}
	}

	assessment := s.gate.Analyze(ctx, fraud.Input{
		TransactionID: sess.ID,
		WorkspaceID:   sess.WorkspaceID,
		Amount:        sess.Amount,
		Currency:      sess.Currency,
		Description:   sess.Description,
		CustomerEmail: sess.CustomerEmail,
		ClientIP:      in.ClientIP,
		IsNewCustomer: isNew,
		CreatedAt:     s.now(),
	})

	switch assessment.Action {
	case fraud.ActionBlock:
		s.metrics.SessionProcessed("blocked")
		s.logger.Warn("payment blocked by fraud gate",
			zap.String("session_id", sess.ID),
			zap.Int("score", assessment.Score.Score))
		return nil, xerrors.FraudBlocked(assessment.Score.Score)

	case fraud.ActionReview:
		review := &fraud.Review{
			ID:            idgen.New(idgen.PrefixReview),
			WorkspaceID:   sess.WorkspaceID,
			SessionID:     sess.ID,
			Score:         assessment.Score.Score,
			Level:         assessment.Level,
			Factors:       assessment.Factors,
			Status:        fraud.ReviewPending,
			PaymentMethod: in.PaymentMethod,
			CreatedAt:     s.now(),
		}
		if err := s.reviews.Create(ctx, review); err != nil {
			if !errors.Is(err, xerrors.ErrConflict) {
				return nil, fmt.Errorf("failed to open fraud review: %w", err)
			}
			// a concurrent attempt opened the review first
			held, lookupErr := s.pendingReview(ctx, sess.ID)
			if lookupErr != nil || held == nil {
				return nil, fmt.Errorf("failed to open fraud review: %w", err)
			}
			return nil, xerrors.ReviewRequired(held.ID, held.Score)
		}
		s.metrics.SessionProcessed("review")
		s.logger.Info("payment held for fraud review",
			zap.String("session_id", sess.ID),
			zap.String("review_id", review.ID),
			zap.Int("score", review.Score))
		return nil, xerrors.ReviewRequired(review.ID, review.Score)
	}

	return s.settle(ctx, sess, in.PaymentMethod)
}

// settle charges through the gateway and moves the session out of pending.
func (s *SessionService) settle(ctx context.Context, sess *session.Session, paymentMethod string) (*session.Session, error) {
	if paymentMethod == "" {
		paymentMethod = "card"
	}
	ok, reason := s.gateway.Charge(ctx, sess, paymentMethod)

	now := s.now()
	sess.PaymentMethod = paymentMethod
	sess.UpdatedAt = now
	if ok {
		sess.Status = session.StatusCompleted
		sess.CompletedAt = &now
	} else {
		sess.Status = session.StatusFailed
		if reason == "" {
			reason = "declined"
		}
		sess.FailureReason = reason
	}

	if err := s.repo.Transition(ctx, sess, session.StatusPending); err != nil {
		return nil, s.lostTransition(ctx, sess.ID, err)
	}

	if ok {
		s.metrics.SessionProcessed("completed")
		s.logger.Info("payment completed",
			zap.String("session_id", sess.ID),
			zap.Int64("amount", sess.Amount),
			zap.String("currency", sess.Currency))
		s.adjustCustomer(ctx, sess, 1, sess.Amount, now)
		s.emit(ctx, sess, webhook.EventPaymentCompleted)
	} else {
		s.metrics.SessionProcessed("failed")
		s.logger.Info("payment failed",
			zap.String("session_id", sess.ID),
			zap.String("reason", reason))
		s.emit(ctx, sess, webhook.EventPaymentFailed)
	}
	return sess, nil
}

// Refund reverses a completed session, fully or partially.
func (s *SessionService) Refund(ctx context.Context, id string, amount *int64) (*session.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusCompleted {
		return nil, xerrors.InvalidState("only completed sessions can be refunded", "not_completed")
	}

	refund := sess.Amount
	if amount != nil {
		refund = *amount
	}
	if refund <= 0 || refund > sess.Amount {
		return nil, xerrors.Validation("refund amount must be between 1 and %d", sess.Amount)
	}

	now := s.now()
	sess.Status = session.StatusRefunded
	sess.RefundAmount = refund
	sess.RefundedAt = &now
	sess.UpdatedAt = now

	if err := s.repo.Transition(ctx, sess, session.StatusCompleted); err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			return nil, xerrors.InvalidState("session was modified concurrently", "not_completed")
		}
		return nil, fmt.Errorf("failed to refund session: %w", err)
	}

	s.logger.Info("payment refunded",
		zap.String("session_id", sess.ID),
		zap.Int64("refund_amount", refund))
	// A partial refund leaves the payment counted.
	var count int64
	if refund == sess.Amount {
		count = -1
	}
	s.adjustCustomer(ctx, sess, count, -refund, now)
	s.emit(ctx, sess, webhook.EventPaymentRefunded)
	return sess, nil
}

// CancelCheckout is the customer abandoning the payment page.
func (s *SessionService) CancelCheckout(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.Status = session.StatusFailed
	sess.FailureReason = ReasonCancelledByCustomer
	sess.UpdatedAt = s.now()
	if err := s.repo.Transition(ctx, sess, session.StatusPending); err != nil {
		return nil, s.lostTransition(ctx, sess.ID, err)
	}

	s.logger.Info("checkout cancelled", zap.String("session_id", sess.ID))
	s.emit(ctx, sess, webhook.EventPaymentCancelled)
	return sess, nil
}

// ListReviews returns the workspace's fraud reviews, optionally by status.
func (s *SessionService) ListReviews(ctx context.Context, workspaceID string, status *fraud.ReviewStatus) ([]fraud.Review, error) {
	reviews, err := s.reviews.List(ctx, workspaceID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud reviews: %w", err)
	}
	return reviews, nil
}

// ResolveReview closes a pending review. Approval settles the held session
// through the gateway; rejection fails it.
func (s *SessionService) ResolveReview(ctx context.Context, workspaceID, reviewID string, req *fraud.ResolveReviewRequest) (*fraud.Review, *session.Session, error) {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, nil, xerrors.NotFound("fraud review", reviewID)
		}
		return nil, nil, err
	}
	if review.WorkspaceID != workspaceID {
		return nil, nil, xerrors.NotFound("fraud review", reviewID)
	}

	now := s.now()
	if err := s.reviews.Resolve(ctx, reviewID, req.Resolution, req.Notes, now); err != nil {
		if errors.Is(err, xerrors.ErrConflict) {
			return nil, nil, xerrors.InvalidState("fraud review already resolved", "already_resolved")
		}
		return nil, nil, fmt.Errorf("failed to resolve fraud review: %w", err)
	}
	resolution := req.Resolution
	review.Status = fraud.ReviewResolved
	review.Resolution = &resolution
	review.Notes = req.Notes
	review.ResolvedAt = &now

	s.logger.Info("fraud review resolved",
		zap.String("review_id", reviewID),
		zap.String("session_id", review.SessionID),
		zap.String("resolution", string(resolution)))

	sess, err := s.loadPending(ctx, review.SessionID)
	if err != nil {
		// the session moved on (expired or cancelled); the review stays resolved
		s.logger.Info("held session no longer pending",
			zap.String("session_id", review.SessionID),
			zap.Error(err))
		return review, nil, nil
	}

	if resolution == fraud.ResolutionApproved {
		method := review.PaymentMethod
		if method == "" {
			method = sess.PaymentMethod
		}
		settled, err := s.settle(ctx, sess, method)
		return review, settled, err
	}

	sess.Status = session.StatusFailed
	sess.FailureReason = "fraud_review_rejected"
	sess.UpdatedAt = now
	if err := s.repo.Transition(ctx, sess, session.StatusPending); err != nil {
		return review, nil, s.lostTransition(ctx, sess.ID, err)
	}
	s.emit(ctx, sess, webhook.EventPaymentFailed)
	return review, sess, nil
}

// pendingReview returns the session's open fraud review, or nil.
func (s *SessionService) pendingReview(ctx context.Context, sessionID string) (*fraud.Review, error) {
	review, err := s.reviews.FindPendingBySession(ctx, sessionID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check fraud review: %w", err)
	}
	return review, nil
}

func (s *SessionService) load(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.NotFound("session", id)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// loadPending loads id and rejects anything that is not a live pending session.
func (s *SessionService) loadPending(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != session.StatusPending {
		return nil, xerrors.InvalidState("session is not pending", "already_"+string(sess.Status))
	}
	if sess.IsExpired(s.now()) {
		s.expire(ctx, sess)
		return nil, xerrors.InvalidState("session has expired", "expired")
	}
	return sess, nil
}

func (s *SessionService) expire(ctx context.Context, sess *session.Session) {
	sess.Status = session.StatusExpired
	sess.UpdatedAt = s.now()
	if err := s.repo.Transition(ctx, sess, session.StatusPending); err != nil && !errors.Is(err, xerrors.ErrConflict) {
		s.logger.Warn("failed to persist session expiry",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	}
}

// lostTransition turns a failed conditional update into the error callers see.
func (s *SessionService) lostTransition(ctx context.Context, id string, err error) error {
	if !errors.Is(err, xerrors.ErrConflict) {
		return fmt.Errorf("failed to update session: %w", err)
	}
	current, loadErr := s.repo.FindByID(ctx, id)
	if loadErr != nil {
		return xerrors.InvalidState("session was processed concurrently", "conflict")
	}
	return xerrors.InvalidState("session is not pending", "already_"+string(current.Status))
}

func (s *SessionService) adjustCustomer(ctx context.Context, sess *session.Session, count, amount int64, at time.Time) {
	if s.customers == nil || sess.CustomerEmail == "" || sess.Purpose.Kind == session.PurposeTemplatePreview {
		return
	}
	err := s.customers.Apply(ctx, customer.Adjustment{
		WorkspaceID: sess.WorkspaceID,
		Email:       sess.CustomerEmail,
		Name:        sess.CustomerName,
		Currency:    sess.Currency,
		Count:       count,
		Amount:      amount,
		At:          at,
	})
	if err != nil {
		s.logger.Error("failed to update customer aggregate",
			zap.String("session_id", sess.ID),
			zap.Error(err))
	}
}

func (s *SessionService) emit(ctx context.Context, sess *session.Session, event string) {
	if s.events == nil || sess.Purpose.Kind == session.PurposeTemplatePreview {
		return
	}
	snapshot := *sess
	s.events.Emit(ctx, sess.WorkspaceID, event, &snapshot)
}
