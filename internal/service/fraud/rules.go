// internal/service/fraud/rules.go
package fraud

import (
	"context"
	"strings"
	"time"

	"paysandbox-service/internal/domain/fraud"
)

// Rule weights and limits. Amounts are minor units.
const (
	highAmount          = 1_000_000
	veryHighAmount      = 5_000_000
	velocityWindow      = time.Hour
	velocityLimit       = 5
	weightHighAmount    = 30
	weightVeryHigh      = 50
	weightNewCustomer   = 15
	weightMissingEmail  = 10
	weightDisposable    = 25
	weightVelocity      = 30
	weightUnusualHour   = 5
	unusualHourStartUTC = 0
	unusualHourEndUTC   = 5
)

var disposableDomains = map[string]struct{}{
	"mailinator.com":    {},
	"guerrillamail.com": {},
	"10minutemail.com":  {},
	"tempmail.com":      {},
	"yopmail.com":       {},
	"trashmail.com":     {},
	"sharklasers.com":   {},
}

// RuleAnalyzer scores attempts with local heuristics.
type RuleAnalyzer struct {
	velocity VelocityCounter
}

func NewRuleAnalyzer(velocity VelocityCounter) *RuleAnalyzer {
	return &RuleAnalyzer{velocity: velocity}
}

func (a *RuleAnalyzer) Score(ctx context.Context, in fraud.Input) (*fraud.Score, error) {
	score := 0
	factors := []string{}

	switch {
	case in.Amount >= veryHighAmount:
		score += weightVeryHigh
		factors = append(factors, "very_high_amount")
	case in.Amount >= highAmount:
		score += weightHighAmount
		factors = append(factors, "high_amount")
	}

	if in.IsNewCustomer {
		score += weightNewCustomer
		factors = append(factors, "new_customer")
	}

	email := strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	if email == "" {
		score += weightMissingEmail
		factors = append(factors, "missing_email")
	} else if _, domain, ok := strings.Cut(email, "@"); ok {
		if _, bad := disposableDomains[domain]; bad {
			score += weightDisposable
			factors = append(factors, "disposable_email")
		}
	}

	if a.velocity != nil {
		subject := email
		if subject == "" {
			subject = in.ClientIP
		}
		if subject != "" {
			count, err := a.velocity.Incr(ctx, in.WorkspaceID+":"+subject, velocityWindow)
			if err != nil {
				return nil, err
			}
			if count > velocityLimit {
				score += weightVelocity
				factors = append(factors, "high_velocity")
			}
		}
	}

	if h := in.CreatedAt.UTC().Hour(); !in.CreatedAt.IsZero() && h >= unusualHourStartUTC && h < unusualHourEndUTC {
		score += weightUnusualHour
		factors = append(factors, "unusual_hour")
	}

	if score > 100 {
		score = 100
	}

	return &fraud.Score{Score: score, Level: fraud.LevelFor(score), Factors: factors}, nil
}
