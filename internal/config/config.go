package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"paysandbox-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr      string
	PublicBaseURL string
	CORSOrigins   []string

	// Storage. An empty DatabaseURL runs on the in-memory sandbox store.
	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	// JWT
	JWT jwt.Config

	// SMTP
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	SMTPFromName string
	SMTPSecure   bool

	// Event mirror
	AMQPURL      string
	AMQPExchange string

	// Fraud gate
	FraudAPIURL          string
	FraudTimeout         time.Duration
	FraudReviewThreshold int
	FraudBlockThreshold  int

	GatewaySuccessRate float64

	// Public checkout attempts per client IP
	CheckoutRateLimit  int64
	CheckoutRateWindow time.Duration

	// Scheduler
	SchedulerInterval time.Duration
	ReminderLookahead time.Duration

	WebhookRetryQueueSize int
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8000"),
		PublicBaseURL: strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", "http://localhost:8000"), "/"),
		CORSOrigins:   getEnvSlice("CORS_ORIGINS", nil),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASS", ""),

		JWT: jwt.Config{
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", "/app/secrets/jwt_public.pem"),
			Issuer:   getEnv("JWT_ISSUER", "paysandbox-dashboard"),
			Audience: getEnv("JWT_AUDIENCE", "paysandbox-api"),
		},

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "465"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "PaySandbox"),
		SMTPSecure:   strings.ToLower(getEnv("SMTP_SECURE", "true")) == "true",

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "paysandbox.events"),

		FraudAPIURL:          getEnv("FRAUD_API_URL", ""),
		FraudTimeout:         getEnvDuration("FRAUD_TIMEOUT", 2*time.Second),
		FraudReviewThreshold: getEnvInt("FRAUD_REVIEW_THRESHOLD", 60),
		FraudBlockThreshold:  getEnvInt("FRAUD_BLOCK_THRESHOLD", 80),

		GatewaySuccessRate: getEnvFloat("GATEWAY_SUCCESS_RATE", 0.9),

		CheckoutRateLimit:  int64(getEnvInt("CHECKOUT_RATE_LIMIT", 20)),
		CheckoutRateWindow: getEnvDuration("CHECKOUT_RATE_WINDOW", time.Minute),

		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Minute),
		ReminderLookahead: getEnvDuration("REMINDER_LOOKAHEAD", 72*time.Hour),

		WebhookRetryQueueSize: getEnvInt("WEBHOOK_RETRY_QUEUE_SIZE", 256),
	}
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
