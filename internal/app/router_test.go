package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paysandbox-service/internal/domain/fraud"
	checkoutHandler "paysandbox-service/internal/handlers/checkout"
	customerHandler "paysandbox-service/internal/handlers/customer"
	fraudHandler "paysandbox-service/internal/handlers/fraud"
	schedulerHandler "paysandbox-service/internal/handlers/scheduler"
	sessionHandler "paysandbox-service/internal/handlers/session"
	subscriptionHandler "paysandbox-service/internal/handlers/subscription"
	webhookHandler "paysandbox-service/internal/handlers/webhook"
	wsHandler "paysandbox-service/internal/handlers/websocket"
	"paysandbox-service/internal/middleware"
	"paysandbox-service/internal/pkg/jwt"
	"paysandbox-service/internal/pkg/metrics"
	"paysandbox-service/internal/repository/memory"
	customersvc "paysandbox-service/internal/service/customer"
	"paysandbox-service/internal/service/email"
	schedulersvc "paysandbox-service/internal/service/scheduler"
	sessionsvc "paysandbox-service/internal/service/session"
	subscriptionsvc "paysandbox-service/internal/service/subscription"
	webhooksvc "paysandbox-service/internal/service/webhook"
	"paysandbox-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type tokens map[string]*jwt.Claims

func (t tokens) VerifyWorkspaceToken(token string) (*jwt.Claims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, errors.New("unknown token")
}

type switchGate struct {
	action fraud.Action
}

func (g *switchGate) Analyze(ctx context.Context, in fraud.Input) fraud.Assessment {
	action := g.action
	if action == "" {
		action = fraud.ActionAllow
	}
	return fraud.Assessment{Score: fraud.Score{Score: 65, Level: fraud.LevelFor(65)}, Action: action}
}

type noopEmitter struct{}

func (noopEmitter) Emit(ctx context.Context, workspaceID, event string, data interface{}) {}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type testAPI struct {
	engine *gin.Engine
	gate   *switchGate
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	m := metrics.New()

	store := memory.NewStore()
	for _, p := range memory.DemoPlans() {
		store.SeedPlan(p)
	}

	verifier := tokens{
		"tok_ws1": {WorkspaceID: "ws_1", SessionPurpose: "access"},
		"tok_ws2": {WorkspaceID: "ws_2", SessionPurpose: "access"},
	}

	gate := &switchGate{}
	sessions := sessionsvc.NewSessionService(store.Sessions(), store.Reviews(), store.Customers(), gate,
		sessionsvc.FixedSimulator{OK: true}, noopEmitter{}, "https://pay.example.com", logger, m)
	subs := subscriptionsvc.NewSubscriptionService(store.Subscriptions(), store.Plans(), noopEmitter{}, "https://pay.example.com", logger)
	dispatcher := webhooksvc.NewDispatcher(store.Endpoints(), &http.Client{}, logger, m)
	endpoints := webhooksvc.NewEndpointService(store.Endpoints(), dispatcher, logger)
	scheduler := schedulersvc.NewScheduler(store.Subscriptions(), store.Plans(), store.Reminders(), store.Customers(),
		email.NewRenewalReminder(nil, logger), noopEmitter{}, nil, schedulersvc.Config{}, logger, m)
	hub := websocket.NewHub(verifier, logger)

	r := gin.New()
	r.Use(middleware.RecoveryMiddleware(logger), middleware.LoggingMiddleware(logger, m))
	SetupRouter(r, logger, &Handlers{
		CheckoutHandler:     checkoutHandler.NewCheckoutHandler(sessions),
		SessionHandler:      sessionHandler.NewSessionHandler(sessions),
		SubscriptionHandler: subscriptionHandler.NewSubscriptionHandler(subs),
		WebhookHandler:      webhookHandler.NewWebhookHandler(endpoints),
		ReviewHandler:       fraudHandler.NewReviewHandler(sessions),
		CustomerHandler:     customerHandler.NewCustomerHandler(customersvc.NewCustomerService(store.Customers(), logger)),
		SchedulerHandler:    schedulerHandler.NewSchedulerHandler(scheduler, logger),
		WSHandler:           wsHandler.NewWebSocketHandler(hub, logger),
		AuthMiddleware:      middleware.NewAuthMiddleware(verifier, logger),
		MetricsHandler:      m.Handler(),
	})
	return &testAPI{engine: r, gate: gate}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: bad body %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func (a *testAPI) createSession(t *testing.T, token string) string {
	t.Helper()
	status, env := a.do(t, http.MethodPost, "/api/v1/sessions", token, map[string]interface{}{
		"amount":         5000,
		"currency":       "ngn",
		"description":    "Order 1001",
		"customer_email": "Ada@Example.com",
	})
	if status != http.StatusCreated {
		t.Fatalf("create session: %d %s", status, env.Error)
	}
	var created struct {
		ID          string `json:"id"`
		Currency    string `json:"currency"`
		CheckoutURL string `json:"checkout_url"`
	}
	decode(t, env.Data, &created)
	if created.Currency != "NGN" {
		t.Fatalf("currency = %q", created.Currency)
	}
	if created.CheckoutURL != "https://pay.example.com/checkout/"+created.ID {
		t.Fatalf("checkout_url = %q", created.CheckoutURL)
	}
	return created.ID
}

func TestPublicAndProtectedRoutes(t *testing.T) {
	api := newTestAPI(t)

	if status, _ := api.do(t, http.MethodGet, "/api/v1/health", "", nil); status != http.StatusOK {
		t.Fatalf("health = %d", status)
	}
	if status, _ := api.do(t, http.MethodGet, "/api/v1/sessions", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list = %d", status)
	}
	if status, _ := api.do(t, http.MethodGet, "/api/v1/sessions", "tok_forged", nil); status != http.StatusUnauthorized {
		t.Fatalf("forged token list = %d", status)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
}

func TestCheckoutFlow(t *testing.T) {
	api := newTestAPI(t)
	id := api.createSession(t, "tok_ws1")

	status, env := api.do(t, http.MethodGet, "/checkout/"+id, "", nil)
	if status != http.StatusOK {
		t.Fatalf("checkout view = %d", status)
	}
	var view struct {
		Status string `json:"status"`
	}
	decode(t, env.Data, &view)
	if view.Status != "pending" {
		t.Fatalf("view status = %q", view.Status)
	}

	status, env = api.do(t, http.MethodPost, "/checkout/"+id+"/pay", "", map[string]string{"payment_method": "card"})
	if status != http.StatusOK {
		t.Fatalf("pay = %d %s", status, env.Error)
	}
	decode(t, env.Data, &view)
	if view.Status != "completed" {
		t.Fatalf("paid status = %q", view.Status)
	}

	status, env = api.do(t, http.MethodPost, "/checkout/"+id+"/pay", "", nil)
	if status != http.StatusConflict || env.Code != "invalid_state" {
		t.Fatalf("second pay = %d %q", status, env.Code)
	}

	if status, _ := api.do(t, http.MethodGet, "/api/v1/sessions/"+id, "tok_ws2", nil); status != http.StatusNotFound {
		t.Fatalf("cross-workspace get = %d", status)
	}

	status, env = api.do(t, http.MethodGet, "/api/v1/customers?email=ada@example.com", "tok_ws1", nil)
	if status != http.StatusOK {
		t.Fatalf("customer = %d %s", status, env.Error)
	}
	var cust struct {
		TransactionCount int64            `json:"transaction_count"`
		Totals           map[string]int64 `json:"totals"`
	}
	decode(t, env.Data, &cust)
	if cust.TransactionCount != 1 || cust.Totals["NGN"] != 5000 {
		t.Fatalf("customer aggregate = %+v", cust)
	}

	status, env = api.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/refund", "tok_ws1", map[string]int64{"amount": 6000})
	if status != http.StatusBadRequest {
		t.Fatalf("over-refund = %d", status)
	}
	status, env = api.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/refund", "tok_ws1", nil)
	if status != http.StatusOK {
		t.Fatalf("refund = %d %s", status, env.Error)
	}
}

func TestCheckoutCancel(t *testing.T) {
	api := newTestAPI(t)
	id := api.createSession(t, "tok_ws1")

	status, env := api.do(t, http.MethodPost, "/checkout/"+id+"/cancel", "", nil)
	if status != http.StatusOK {
		t.Fatalf("cancel = %d %s", status, env.Error)
	}
	if status, _ := api.do(t, http.MethodPost, "/checkout/"+id+"/pay", "", nil); status != http.StatusConflict {
		t.Fatalf("pay after cancel = %d", status)
	}
	if status, _ := api.do(t, http.MethodGet, "/checkout/cs_missing", "", nil); status != http.StatusNotFound {
		t.Fatalf("missing checkout = %d", status)
	}
}

func TestFraudReviewFlow(t *testing.T) {
	api := newTestAPI(t)
	api.gate.action = fraud.ActionReview
	id := api.createSession(t, "tok_ws1")

	status, env := api.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/process", "tok_ws1", nil)
	if status != http.StatusAccepted {
		t.Fatalf("process under review = %d %s", status, env.Error)
	}
	var held struct {
		ReviewID string `json:"review_id"`
	}
	decode(t, env.Data, &held)
	if held.ReviewID == "" {
		t.Fatal("missing review_id")
	}

	status, env = api.do(t, http.MethodGet, "/api/v1/fraud/reviews?status=pending", "tok_ws1", nil)
	if status != http.StatusOK {
		t.Fatalf("list reviews = %d", status)
	}
	var reviews []struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &reviews)
	if len(reviews) != 1 || reviews[0].ID != held.ReviewID {
		t.Fatalf("reviews = %+v", reviews)
	}

	path := "/api/v1/fraud/reviews/" + held.ReviewID + "/resolve"
	if status, _ := api.do(t, http.MethodPost, path, "tok_ws2", map[string]string{"resolution": "approved"}); status != http.StatusNotFound {
		t.Fatalf("cross-workspace resolve = %d", status)
	}
	if status, _ := api.do(t, http.MethodPost, path, "tok_ws1", map[string]string{"resolution": "maybe"}); status != http.StatusBadRequest {
		t.Fatalf("bad resolution = %d", status)
	}

	status, env = api.do(t, http.MethodPost, path, "tok_ws1", map[string]string{"resolution": "approved"})
	if status != http.StatusOK {
		t.Fatalf("resolve = %d %s", status, env.Error)
	}
	var resolved struct {
		Session struct {
			Status string `json:"status"`
		} `json:"session"`
	}
	decode(t, env.Data, &resolved)
	if resolved.Session.Status != "completed" {
		t.Fatalf("session after approval = %q", resolved.Session.Status)
	}
}

func TestBlockedPayment(t *testing.T) {
	api := newTestAPI(t)
	api.gate.action = fraud.ActionBlock
	id := api.createSession(t, "tok_ws1")

	status, env := api.do(t, http.MethodPost, "/checkout/"+id+"/pay", "", nil)
	if status != http.StatusForbidden || env.Code != "fraud_blocked" {
		t.Fatalf("blocked pay = %d %q", status, env.Code)
	}
}

func TestSubscriptionRoutes(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(t, http.MethodPost, "/api/v1/subscriptions", "tok_ws1", map[string]string{
		"customer_email": "grace@example.com",
		"plan_id":        "plan_basic_monthly",
	})
	if status != http.StatusCreated {
		t.Fatalf("create subscription = %d %s", status, env.Error)
	}
	var created struct {
		Subscription struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"subscription"`
	}
	decode(t, env.Data, &created)
	if created.Subscription.Status != "trialing" {
		t.Fatalf("status = %q", created.Subscription.Status)
	}
	subPath := "/api/v1/subscriptions/" + created.Subscription.ID

	if status, _ := api.do(t, http.MethodGet, subPath, "tok_ws2", nil); status != http.StatusNotFound {
		t.Fatalf("cross-workspace get = %d", status)
	}
	if status, _ := api.do(t, http.MethodPost, subPath+"/pause", "tok_ws1", nil); status != http.StatusConflict {
		t.Fatalf("pause trial = %d", status)
	}

	status, env = api.do(t, http.MethodPost, subPath+"/cancel", "tok_ws1", map[string]bool{"at_period_end": true})
	if status != http.StatusOK {
		t.Fatalf("deferred cancel = %d %s", status, env.Error)
	}
	var canceled struct {
		Status            string `json:"status"`
		CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	}
	decode(t, env.Data, &canceled)
	if canceled.Status != "trialing" || !canceled.CancelAtPeriodEnd {
		t.Fatalf("after deferred cancel = %+v", canceled)
	}

	status, _ = api.do(t, http.MethodPost, "/api/v1/subscriptions", "tok_ws1", map[string]string{
		"customer_email": "grace@example.com",
		"plan_id":        "plan_legacy",
	})
	if status != http.StatusNotFound {
		t.Fatalf("inactive plan = %d", status)
	}

	status, _ = api.do(t, http.MethodPost, "/api/v1/subscriptions", "tok_ws1", map[string]string{
		"customer_email": "not-an-email",
		"plan_id":        "plan_basic_monthly",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("bad email = %d", status)
	}
}

func TestWebhookRoutes(t *testing.T) {
	api := newTestAPI(t)

	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(webhooksvc.HeaderSignature) == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	status, env := api.do(t, http.MethodPost, "/api/v1/webhooks", "tok_ws1", map[string]interface{}{
		"url":    receiver.URL,
		"events": []string{"payment.completed", "not.an.event"},
	})
	if status != http.StatusCreated {
		t.Fatalf("register = %d %s", status, env.Error)
	}
	var endpoint struct {
		ID     string   `json:"id"`
		Secret string   `json:"secret"`
		Events []string `json:"events"`
	}
	decode(t, env.Data, &endpoint)
	if !strings.HasPrefix(endpoint.Secret, "whsec_") {
		t.Fatalf("secret = %q", endpoint.Secret)
	}
	if len(endpoint.Events) != 1 || endpoint.Events[0] != "payment.completed" {
		t.Fatalf("events = %v", endpoint.Events)
	}

	status, env = api.do(t, http.MethodGet, "/api/v1/webhooks", "tok_ws1", nil)
	if status != http.StatusOK {
		t.Fatalf("list = %d", status)
	}
	var listed []struct {
		Secret string `json:"secret"`
	}
	decode(t, env.Data, &listed)
	if len(listed) != 1 || listed[0].Secret != "" {
		t.Fatalf("listed = %+v", listed)
	}

	status, env = api.do(t, http.MethodPost, "/api/v1/webhooks/"+endpoint.ID+"/test", "tok_ws1", nil)
	if status != http.StatusOK {
		t.Fatalf("test = %d %s", status, env.Error)
	}
	var result struct {
		Delivered  bool `json:"delivered"`
		StatusCode int  `json:"status_code"`
	}
	decode(t, env.Data, &result)
	if !result.Delivered || result.StatusCode != http.StatusOK {
		t.Fatalf("test result = %+v", result)
	}

	if status, _ := api.do(t, http.MethodDelete, "/api/v1/webhooks/"+endpoint.ID, "tok_ws2", nil); status != http.StatusNotFound {
		t.Fatalf("cross-workspace delete = %d", status)
	}
	if status, _ := api.do(t, http.MethodDelete, "/api/v1/webhooks/"+endpoint.ID, "tok_ws1", nil); status != http.StatusOK {
		t.Fatalf("delete = %d", status)
	}
	if status, _ := api.do(t, http.MethodPost, "/api/v1/webhooks/"+endpoint.ID+"/test", "tok_ws1", nil); status != http.StatusConflict {
		t.Fatalf("test inactive = %d", status)
	}
}

func TestSchedulerRun(t *testing.T) {
	api := newTestAPI(t)

	status, env := api.do(t, http.MethodPost, "/api/v1/scheduler/run", "tok_ws1", nil)
	if status != http.StatusOK {
		t.Fatalf("run = %d %s", status, env.Error)
	}
	var report struct {
		Renewals int  `json:"renewals"`
		Skipped  bool `json:"skipped"`
	}
	decode(t, env.Data, &report)
	if report.Renewals != 0 || report.Skipped {
		t.Fatalf("report = %+v", report)
	}
}
