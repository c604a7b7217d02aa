// internal/service/fraud/gate.go
package fraud

import (
	"context"
	"errors"
	"time"

	"paysandbox-service/internal/domain/fraud"
	"paysandbox-service/internal/pkg/metrics"

	"go.uber.org/zap"
)

// Analyzer produces a raw risk score for a payment attempt.
type Analyzer interface {
	Score(ctx context.Context, in fraud.Input) (*fraud.Score, error)
}

const DefaultTimeout = 2 * time.Second

// Gate applies workspace thresholds to an analyzer's score. It fails open:
// any analyzer error or timeout yields an allow decision.
type Gate struct {
	analyzer Analyzer
	settings fraud.SettingsReader
	defaults fraud.Thresholds
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewGate(
	analyzer Analyzer,
	settings fraud.SettingsReader,
	defaults fraud.Thresholds,
	timeout time.Duration,
	logger *zap.Logger,
	m *metrics.Collector,
) *Gate {
	if !defaults.Valid() {
		defaults = fraud.DefaultThresholds
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{
		analyzer: analyzer,
		settings: settings,
		defaults: defaults,
		timeout:  timeout,
		logger:   logger,
		metrics:  m,
	}
}

// Analyze never returns an error; see the type comment.
func (g *Gate) Analyze(ctx context.Context, in fraud.Input) fraud.Assessment {
	thresholds := g.thresholds(ctx, in.WorkspaceID)

	actx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	score, err := g.analyzer.Score(actx, in)
	if err == nil && score == nil {
		err = errors.New("analyzer returned no score")
	}
	if err != nil {
		g.logger.Warn("fraud analysis unavailable, failing open",
			zap.String("transaction_id", in.TransactionID),
			zap.String("workspace_id", in.WorkspaceID),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded)),
			zap.Error(err))
		g.metrics.FraudDecision(string(fraud.ActionAllow), true)
		return fraud.Assessment{
			Score: fraud.Score{
				Score:   0,
				Level:   fraud.LevelLow,
				Factors: []string{fraud.FactorAnalysisUnavailable},
			},
			Action: fraud.ActionAllow,
		}
	}

	s := *score
	s.Score = clamp(s.Score)
	if s.Level == "" {
		s.Level = fraud.LevelFor(s.Score)
	}
	if s.Factors == nil {
		s.Factors = []string{}
	}

	action := thresholds.Decide(s.Score)
	g.metrics.FraudDecision(string(action), false)

	if action != fraud.ActionAllow {
		g.logger.Info("fraud gate intervened",
			zap.String("transaction_id", in.TransactionID),
			zap.String("workspace_id", in.WorkspaceID),
			zap.Int("score", s.Score),
			zap.String("action", string(action)),
			zap.Strings("factors", s.Factors))
	}

	return fraud.Assessment{Score: s, Action: action}
}

func (g *Gate) thresholds(ctx context.Context, workspaceID string) fraud.Thresholds {
	if g.settings == nil {
		return g.defaults
	}
	t, ok, err := g.settings.Thresholds(ctx, workspaceID)
	if err != nil {
		g.logger.Warn("failed to load fraud thresholds, using defaults",
			zap.String("workspace_id", workspaceID),
			zap.Error(err))
		return g.defaults
	}
	if !ok || !t.Valid() {
		return g.defaults
	}
	return t
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
