// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"paysandbox-service/internal/config"
	"paysandbox-service/internal/db"
	"paysandbox-service/internal/domain/customer"
	"paysandbox-service/internal/domain/fraud"
	"paysandbox-service/internal/domain/session"
	"paysandbox-service/internal/domain/subscription"
	"paysandbox-service/internal/domain/webhook"
	checkoutHandler "paysandbox-service/internal/handlers/checkout"
	customerHandler "paysandbox-service/internal/handlers/customer"
	fraudHandler "paysandbox-service/internal/handlers/fraud"
	schedulerHandler "paysandbox-service/internal/handlers/scheduler"
	sessionHandler "paysandbox-service/internal/handlers/session"
	subscriptionHandler "paysandbox-service/internal/handlers/subscription"
	webhookHandler "paysandbox-service/internal/handlers/webhook"
	wsHandler "paysandbox-service/internal/handlers/websocket"
	"paysandbox-service/internal/middleware"
	"paysandbox-service/internal/pkg/broker"
	"paysandbox-service/internal/pkg/jwt"
	"paysandbox-service/internal/pkg/metrics"
	"paysandbox-service/internal/pkg/ratelimit"
	"paysandbox-service/internal/repository/memory"
	"paysandbox-service/internal/repository/postgres"
	customersvc "paysandbox-service/internal/service/customer"
	"paysandbox-service/internal/service/email"
	fraudsvc "paysandbox-service/internal/service/fraud"
	schedulersvc "paysandbox-service/internal/service/scheduler"
	sessionsvc "paysandbox-service/internal/service/session"
	subscriptionsvc "paysandbox-service/internal/service/subscription"
	webhooksvc "paysandbox-service/internal/service/webhook"
	"paysandbox-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const retryWorkers = 4

// repositories is the storage backend, Postgres or the in-memory sandbox.
type repositories struct {
	sessions      session.Repository
	subscriptions subscription.Repository
	plans         subscription.PlanReader
	reminders     subscription.ReminderLedger
	endpoints     webhook.Repository
	reviews       fraud.ReviewRepository
	settings      fraud.SettingsReader
	customers     customer.Repository
}

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	http   *http.Server
	logger *zap.Logger

	pool      *pgxpool.Pool
	redis     redis.UniversalClient
	mirror    broker.Publisher
	hub       *websocket.Hub
	retries   *webhooksvc.RetryQueue
	notifier  *webhooksvc.Notifier
	scheduler *schedulersvc.Scheduler
	cancel    context.CancelFunc
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	return &Server{cfg: cfg, engine: gin.New(), logger: logger}
}

// Engine exposes the router once Build has run.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Build connects storage and wires every service and route. Background
// workers are started but the HTTP listener is not.
func (s *Server) Build(ctx context.Context) error {
	logger := s.logger
	m := metrics.New()

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// ----- Storage -----
	repos, err := s.openStorage(ctx)
	if err != nil {
		return err
	}

	// ----- Redis (optional) -----
	var velocity fraudsvc.VelocityCounter = fraudsvc.NewMemoryVelocity()
	var attempts ratelimit.Counter = fraudsvc.NewMemoryVelocity()
	var locker schedulersvc.Locker
	if s.cfg.RedisAddr != "" {
		client, err := db.NewRedis(db.RedisConfig{
			Addresses: []string{s.cfg.RedisAddr},
			Password:  s.cfg.RedisPass,
			PoolSize:  10,
		})
		if err != nil {
			log.Printf("[REDIS] ⚠️  %v, falling back to in-process counters", err)
		} else {
			log.Println("[REDIS] ✅ Connected successfully")
			s.redis = client
			velocity = fraudsvc.NewRedisVelocity(client, "")
			attempts = fraudsvc.NewRedisVelocity(client, "paysandbox")
			locker = schedulersvc.NewRedisLocker(client)
		}
	}

	// ----- JWT Verifier -----
	var verifier middleware.TokenVerifier
	if v, err := jwt.LoadVerifier(s.cfg.JWT); err != nil {
		logger.Warn("jwt verifier unavailable, authenticated routes will reject all requests", zap.Error(err))
	} else {
		verifier = v
	}

	// ----- WebSocket Hub -----
	s.hub = websocket.NewHub(verifier, logger.Named("ws"))
	go s.hub.Run(runCtx)

	// ----- Event mirror -----
	s.mirror = broker.Connect(s.cfg.AMQPURL, s.cfg.AMQPExchange, logger.Named("broker"))

	// ----- Webhooks -----
	dispatcher := webhooksvc.NewDispatcher(repos.endpoints, &http.Client{}, logger.Named("webhook"), m)
	s.retries = webhooksvc.NewRetryQueue(dispatcher, s.cfg.WebhookRetryQueueSize, logger.Named("webhook"), m)
	s.retries.Run(runCtx, retryWorkers)
	s.notifier = webhooksvc.NewNotifier(repos.endpoints, dispatcher, s.retries, s.hub, s.mirror, logger.Named("events"))
	endpointService := webhooksvc.NewEndpointService(repos.endpoints, dispatcher, logger)

	// ----- Fraud gate -----
	var analyzer fraudsvc.Analyzer = fraudsvc.NewRuleAnalyzer(velocity)
	if s.cfg.FraudAPIURL != "" {
		analyzer = fraudsvc.NewHTTPAnalyzer(s.cfg.FraudAPIURL, &http.Client{})
		logger.Info("using external fraud analyzer", zap.String("url", s.cfg.FraudAPIURL))
	}
	gate := fraudsvc.NewGate(
		analyzer,
		repos.settings,
		fraud.Thresholds{Review: s.cfg.FraudReviewThreshold, Block: s.cfg.FraudBlockThreshold},
		s.cfg.FraudTimeout,
		logger.Named("fraud"),
		m,
	)

	// ----- Services -----
	sessionService := sessionsvc.NewSessionService(
		repos.sessions,
		repos.reviews,
		repos.customers,
		gate,
		sessionsvc.NewRandomSimulator(s.cfg.GatewaySuccessRate),
		s.notifier,
		s.cfg.PublicBaseURL,
		logger,
		m,
	)
	subscriptionService := subscriptionsvc.NewSubscriptionService(
		repos.subscriptions,
		repos.plans,
		s.notifier,
		s.cfg.PublicBaseURL,
		logger,
	)
	customerService := customersvc.NewCustomerService(repos.customers, logger)

	// ----- Email -----
	var sender email.Sender
	smtpCfg := email.SMTPConfig{
		Host:     s.cfg.SMTPHost,
		Port:     s.cfg.SMTPPort,
		Username: s.cfg.SMTPUser,
		Password: s.cfg.SMTPPass,
		FromName: s.cfg.SMTPFromName,
		Secure:   s.cfg.SMTPSecure,
	}
	if smtpCfg.Configured() {
		sender = email.NewEmailSender(smtpCfg)
	}
	reminders := email.NewRenewalReminder(sender, logger.Named("email"))

	// ----- Renewal scheduler -----
	s.scheduler = schedulersvc.NewScheduler(
		repos.subscriptions,
		repos.plans,
		repos.reminders,
		repos.customers,
		reminders,
		s.notifier,
		locker,
		schedulersvc.Config{
			Interval:  s.cfg.SchedulerInterval,
			Lookahead: s.cfg.ReminderLookahead,
		},
		logger.Named("scheduler"),
		m,
	)
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger, m),
		middleware.CORSMiddleware(s.cfg.CORSOrigins...),
	)

	// ----- Router -----
	SetupRouter(s.engine, logger, &Handlers{
		CheckoutHandler:     checkoutHandler.NewCheckoutHandler(sessionService),
		SessionHandler:      sessionHandler.NewSessionHandler(sessionService),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subscriptionService),
		WebhookHandler:      webhookHandler.NewWebhookHandler(endpointService),
		ReviewHandler:       fraudHandler.NewReviewHandler(sessionService),
		CustomerHandler:     customerHandler.NewCustomerHandler(customerService),
		SchedulerHandler:    schedulerHandler.NewSchedulerHandler(s.scheduler, logger),
		WSHandler:           wsHandler.NewWebSocketHandler(s.hub, logger, s.cfg.CORSOrigins...),
		AuthMiddleware:      middleware.NewAuthMiddleware(verifier, logger),
		MetricsHandler:      m.Handler(),
		CheckoutRateLimit: middleware.RateLimitMiddleware(
			ratelimit.NewRateLimiter(attempts),
			"checkout",
			ratelimit.Limit{Max: s.cfg.CheckoutRateLimit, Window: s.cfg.CheckoutRateWindow},
			logger,
		),
	})
	return nil
}

func (s *Server) openStorage(ctx context.Context) (*repositories, error) {
	if s.cfg.DatabaseURL == "" {
		store := memory.NewStore()
		for _, p := range memory.DemoPlans() {
			store.SeedPlan(p)
		}
		log.Println("[STORE] ⚠️  DATABASE_URL not set, using in-memory sandbox store")
		return &repositories{
			sessions:      store.Sessions(),
			subscriptions: store.Subscriptions(),
			plans:         store.Plans(),
			reminders:     store.Reminders(),
			endpoints:     store.Endpoints(),
			reviews:       store.Reviews(),
			settings:      store.Settings(),
			customers:     store.Customers(),
		}, nil
	}

	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool
	log.Println("[POSTGRES] ✅ Connected successfully")

	database := postgres.NewDB(pool)
	if err := database.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := database.SeedPlans(ctx, memory.DemoPlans()); err != nil {
		return nil, fmt.Errorf("failed to seed plans: %w", err)
	}

	return &repositories{
		sessions:      postgres.NewSessionRepository(database),
		subscriptions: postgres.NewSubscriptionRepository(database),
		plans:         postgres.NewPlanRepository(database),
		reminders:     postgres.NewReminderLedger(database),
		endpoints:     postgres.NewWebhookEndpointRepository(database),
		reviews:       postgres.NewFraudReviewRepository(database),
		settings:      postgres.NewFraudSettingsRepository(database),
		customers:     postgres.NewCustomerRepository(database),
	}, nil
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("🚀 Server running on %s", s.cfg.HTTPAddr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then the scheduler, then background
// delivery, and finally closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.notifier != nil {
		s.notifier.Wait()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.retries != nil {
		s.retries.Close()
	}
	if s.mirror != nil {
		s.mirror.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
