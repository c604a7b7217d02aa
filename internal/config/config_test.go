package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "FRAUD_REVIEW_THRESHOLD", "FRAUD_BLOCK_THRESHOLD", "FRAUD_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.HTTPAddr != ":8000" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.FraudReviewThreshold != 60 || cfg.FraudBlockThreshold != 80 {
		t.Fatalf("thresholds = %d/%d", cfg.FraudReviewThreshold, cfg.FraudBlockThreshold)
	}
	if cfg.FraudTimeout != 2*time.Second {
		t.Fatalf("FraudTimeout = %s", cfg.FraudTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PUBLIC_BASE_URL", "https://pay.example.com/")
	t.Setenv("SCHEDULER_INTERVAL", "30")
	t.Setenv("REMINDER_LOOKAHEAD", "24h")
	t.Setenv("GATEWAY_SUCCESS_RATE", "0.5")
	t.Setenv("FRAUD_BLOCK_THRESHOLD", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg := Load()
	if cfg.PublicBaseURL != "https://pay.example.com" {
		t.Fatalf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
	if cfg.SchedulerInterval != 30*time.Second {
		t.Fatalf("SchedulerInterval = %s", cfg.SchedulerInterval)
	}
	if cfg.ReminderLookahead != 24*time.Hour {
		t.Fatalf("ReminderLookahead = %s", cfg.ReminderLookahead)
	}
	if cfg.GatewaySuccessRate != 0.5 {
		t.Fatalf("GatewaySuccessRate = %v", cfg.GatewaySuccessRate)
	}
	if cfg.FraudBlockThreshold != 80 {
		t.Fatalf("FraudBlockThreshold = %d, want fallback", cfg.FraudBlockThreshold)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}
