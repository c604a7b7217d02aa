// internal/service/session/simulator.go
package session

import (
	"context"
	"math/rand/v2"

	"paysandbox-service/internal/domain/session"
)

// GatewaySimulator stands in for the card network. It reports whether the
// charge succeeded and, if not, why.
type GatewaySimulator interface {
	Charge(ctx context.Context, s *session.Session, paymentMethod string) (ok bool, reason string)
}

const DefaultSuccessRate = 0.9

// RandomSimulator succeeds with a fixed probability.
type RandomSimulator struct {
	rate float64
	rnd  func() float64
}

func NewRandomSimulator(successRate float64) *RandomSimulator {
	if successRate < 0 || successRate > 1 {
		successRate = DefaultSuccessRate
	}
	return &RandomSimulator{rate: successRate, rnd: rand.Float64}
}

var declineReasons = []string{
	"insufficient_funds",
	"card_declined",
	"issuer_unavailable",
}

func (r *RandomSimulator) Charge(ctx context.Context, s *session.Session, paymentMethod string) (bool, string) {
	if r.rnd() < r.rate {
		return true, ""
	}
	return false, declineReasons[rand.IntN(len(declineReasons))]
}

// FixedSimulator always answers the same way. Useful for demos and tests.
type FixedSimulator struct {
	OK     bool
	Reason string
}

func (f FixedSimulator) Charge(ctx context.Context, s *session.Session, paymentMethod string) (bool, string) {
	return f.OK, f.Reason
}
