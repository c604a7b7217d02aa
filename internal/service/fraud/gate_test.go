package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"paysandbox-service/internal/domain/fraud"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type fixedAnalyzer struct {
	score int
	err   error
}

func (a fixedAnalyzer) Score(ctx context.Context, in fraud.Input) (*fraud.Score, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &fraud.Score{Score: a.score, Factors: []string{"fixed"}}, nil
}

type blockingAnalyzer struct{}

func (blockingAnalyzer) Score(ctx context.Context, in fraud.Input) (*fraud.Score, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type stubSettings struct {
	t   fraud.Thresholds
	ok  bool
	err error
}

func (s stubSettings) Thresholds(ctx context.Context, workspaceID string) (fraud.Thresholds, bool, error) {
	return s.t, s.ok, s.err
}

func newGate(a Analyzer, settings fraud.SettingsReader) *Gate {
	return NewGate(a, settings, fraud.DefaultThresholds, 50*time.Millisecond, zap.NewNop(), nil)
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  fraud.Action
	}{
		{80, fraud.ActionBlock},
		{79, fraud.ActionReview},
		{60, fraud.ActionReview},
		{59, fraud.ActionAllow},
	}
	for _, tt := range tests {
		got := newGate(fixedAnalyzer{score: tt.score}, nil).Analyze(context.Background(), fraud.Input{})
		if got.Action != tt.want {
			t.Errorf("score %d: action = %s, want %s", tt.score, got.Action, tt.want)
		}
		if got.Score.Score != tt.score {
			t.Errorf("score %d: reported %d", tt.score, got.Score.Score)
		}
	}
}

func TestGateFailsOpenOnError(t *testing.T) {
	got := newGate(fixedAnalyzer{err: errors.New("redis down")}, nil).Analyze(context.Background(), fraud.Input{})
	if got.Action != fraud.ActionAllow {
		t.Fatalf("action = %s, want allow", got.Action)
	}
	if len(got.Factors) != 1 || got.Factors[0] != fraud.FactorAnalysisUnavailable {
		t.Fatalf("factors = %v", got.Factors)
	}
}

func TestGateFailsOpenOnTimeout(t *testing.T) {
	start := time.Now()
	got := newGate(blockingAnalyzer{}, nil).Analyze(context.Background(), fraud.Input{})
	if got.Action != fraud.ActionAllow {
		t.Fatalf("action = %s, want allow", got.Action)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("gate waited %v, timeout not honoured", elapsed)
	}
}

func TestGateWorkspaceThresholds(t *testing.T) {
	settings := stubSettings{t: fraud.Thresholds{Review: 20, Block: 40}, ok: true}
	got := newGate(fixedAnalyzer{score: 40}, settings).Analyze(context.Background(), fraud.Input{WorkspaceID: "ws_1"})
	if got.Action != fraud.ActionBlock {
		t.Fatalf("action = %s, want block under workspace thresholds", got.Action)
	}

	broken := stubSettings{err: errors.New("db down")}
	got = newGate(fixedAnalyzer{score: 40}, broken).Analyze(context.Background(), fraud.Input{WorkspaceID: "ws_1"})
	if got.Action != fraud.ActionAllow {
		t.Fatalf("action = %s, want allow under default thresholds", got.Action)
	}
}

func TestRuleAnalyzerFactors(t *testing.T) {
	a := NewRuleAnalyzer(NewMemoryVelocity())
	noon := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	s, err := a.Score(context.Background(), fraud.Input{
		WorkspaceID:   "ws_1",
		Amount:        500000,
		Currency:      "NGN",
		CustomerEmail: "ada@example.com",
		CreatedAt:     noon,
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Score != 0 {
		t.Fatalf("ordinary payment scored %d (%v)", s.Score, s.Factors)
	}

	s, _ = a.Score(context.Background(), fraud.Input{
		WorkspaceID:   "ws_1",
		Amount:        6_000_000,
		CustomerEmail: "x@mailinator.com",
		IsNewCustomer: true,
		CreatedAt:     noon,
	})
	if s.Score != weightVeryHigh+weightNewCustomer+weightDisposable {
		t.Fatalf("score = %d (%v)", s.Score, s.Factors)
	}
	if s.Level != fraud.LevelHigh {
		t.Fatalf("level = %s", s.Level)
	}
}

func TestRuleAnalyzerVelocityWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	a := NewRuleAnalyzer(NewRedisVelocity(client, ""))
	in := fraud.Input{
		WorkspaceID:   "ws_1",
		Amount:        1000,
		CustomerEmail: "ada@example.com",
		CreatedAt:     time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC),
	}

	var last *fraud.Score
	for i := 0; i < velocityLimit+1; i++ {
		s, err := a.Score(context.Background(), in)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		last = s
	}
	if last.Score != weightVelocity {
		t.Fatalf("score after burst = %d (%v)", last.Score, last.Factors)
	}

	mr.FastForward(velocityWindow + time.Second)
	s, _ := a.Score(context.Background(), in)
	if s.Score != 0 {
		t.Fatalf("window did not reset: %d", s.Score)
	}
}

func TestHTTPAnalyzer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in fraud.Input
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if in.TransactionID == "cs_broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(fraud.Score{Score: 72, Level: fraud.LevelHigh, Factors: []string{"remote"}})
	}))
	defer srv.Close()

	a := NewHTTPAnalyzer(srv.URL, srv.Client())
	s, err := a.Score(context.Background(), fraud.Input{TransactionID: "cs_1"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Score != 72 || s.Factors[0] != "remote" {
		t.Fatalf("score = %+v", s)
	}

	if _, err := a.Score(context.Background(), fraud.Input{TransactionID: "cs_broken"}); err == nil {
		t.Fatal("expected error on 502")
	}

	got := newGate(a, nil).Analyze(context.Background(), fraud.Input{TransactionID: "cs_broken"})
	if got.Action != fraud.ActionAllow {
		t.Fatalf("remote failure must fail open, got %s", got.Action)
	}
}
