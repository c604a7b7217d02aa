package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	wstypes "paysandbox-service/internal/domain/websocket"
	"paysandbox-service/internal/pkg/jwt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type stubVerifier struct{}

func (stubVerifier) VerifyWorkspaceToken(token string) (*jwt.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &jwt.Claims{WorkspaceID: "ws_1"}, nil
}

func TestAuthenticateClient(t *testing.T) {
	hub := NewHub(stubVerifier{}, zap.NewNop())

	auth, err := hub.AuthenticateClient(context.Background(), "good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth.WorkspaceID != "ws_1" {
		t.Fatalf("workspace = %q", auth.WorkspaceID)
	}
	if _, err := hub.AuthenticateClient(context.Background(), "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPublishEventReachesWorkspaceClient(t *testing.T) {
	hub := NewHub(stubVerifier{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, &ClientAuth{WorkspaceID: "ws_1"})
		hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var welcome wstypes.WSMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.Type != wstypes.EventTypeConnected {
		t.Fatalf("first message type = %s", welcome.Type)
	}

	// other workspaces never see this client's traffic
	hub.PublishEvent("ws_2", "payment.completed", map[string]string{"id": "cs_other"})
	hub.PublishEvent("ws_1", "payment.completed", map[string]string{"id": "cs_1"})

	var got wstypes.WSMessage
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if got.Type != wstypes.EventTypeGateway {
		t.Fatalf("type = %s", got.Type)
	}
	data, _ := got.Data.(map[string]interface{})
	if data["event"] != "payment.completed" {
		t.Fatalf("event = %v", data["event"])
	}
	inner, _ := data["data"].(map[string]interface{})
	if inner["id"] != "cs_1" {
		t.Fatalf("payload id = %v", inner["id"])
	}
}

func TestChannelFor(t *testing.T) {
	cases := map[string]wstypes.ChannelType{
		"payment.refunded":       wstypes.ChannelPayments,
		"subscription.cancelled": wstypes.ChannelSubscriptions,
		"invoice.paid":           wstypes.ChannelInvoices,
		"webhook.test":           wstypes.ChannelWebhooks,
	}
	for event, want := range cases {
		if got := wstypes.ChannelFor(event); got != want {
			t.Errorf("ChannelFor(%q) = %s, want %s", event, got, want)
		}
	}
}

func TestDecodeChannels(t *testing.T) {
	got, err := decodeChannels(map[string]interface{}{"channels": []string{"payments", "webhooks"}})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0] != wstypes.ChannelPayments || got[1] != wstypes.ChannelWebhooks {
		t.Fatalf("channels = %v", got)
	}

	if _, err := decodeChannels(map[string]interface{}{"channels": []string{"ledger"}}); err == nil {
		t.Fatal("unknown channel accepted")
	}
}
