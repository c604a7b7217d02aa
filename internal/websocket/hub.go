// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "paysandbox-service/internal/domain/websocket"
	"paysandbox-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

// TokenVerifier checks workspace access tokens.
type TokenVerifier interface {
	VerifyWorkspaceToken(token string) (*jwt.Claims, error)
}

type Hub struct {
	// Registered clients by workspace ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	Register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	verifier TokenVerifier
	logger   *zap.Logger
}

type BroadcastMessage struct {
	WorkspaceID string
	Channel     wstypes.ChannelType
	Message     *wstypes.WSMessage
}

func NewHub(verifier TokenVerifier, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		verifier:   verifier,
		logger:     logger,
	}
}

// AuthenticateClient validates the workspace token for a new connection.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	if h.verifier == nil {
		return nil, ErrUnauthorized
	}
	claims, err := h.verifier.VerifyWorkspaceToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &ClientAuth{
		WorkspaceID: claims.WorkspaceID,
		Subject:     claims.Subject,
	}, nil
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.workspaceID] == nil {
		h.clients[client.workspaceID] = make(map[*Client]bool)
	}
	h.clients[client.workspaceID][client] = true

	h.logger.Info("websocket client connected",
		zap.String("workspace_id", client.workspaceID),
		zap.Int("total", h.totalClients()))

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"workspace_id": client.workspaceID,
		"channels":     client.Channels(),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.workspaceID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.workspaceID)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("workspace_id", client.workspaceID),
				zap.Int("total", h.totalClients()))
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[msg.WorkspaceID] {
		if client.IsSubscribed(msg.Channel) {
			client.SendMessage(msg.Message)
		}
	}
}

// PublishEvent queues a gateway event for every client of the workspace.
// It never blocks: when the queue is full the event is dropped.
func (h *Hub) PublishEvent(workspaceID, event string, data interface{}) {
	msg := &BroadcastMessage{
		WorkspaceID: workspaceID,
		Channel:     wstypes.ChannelFor(event),
		Message: wstypes.NewMessage(wstypes.EventTypeGateway, wstypes.GatewayEventData{
			Event: event,
			Data:  data,
		}),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping event",
			zap.String("workspace_id", workspaceID),
			zap.String("event", event))
	}
}

func (h *Hub) ConnectedClients(workspaceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[workspaceID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
