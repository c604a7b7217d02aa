// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Gateway events (server -> client)
	EventTypeGateway EventType = "gateway:event"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// ChannelType groups gateway events by their resource.
type ChannelType string

const (
	ChannelPayments      ChannelType = "payments"
	ChannelSubscriptions ChannelType = "subscriptions"
	ChannelInvoices      ChannelType = "invoices"
	ChannelWebhooks      ChannelType = "webhooks"
)

var AllChannels = []ChannelType{ChannelPayments, ChannelSubscriptions, ChannelInvoices, ChannelWebhooks}

// ChannelFor maps "payment.completed" to payments and so on.
func ChannelFor(event string) ChannelType {
	resource, _, _ := strings.Cut(event, ".")
	switch resource {
	case "payment":
		return ChannelPayments
	case "subscription":
		return ChannelSubscriptions
	case "invoice":
		return ChannelInvoices
	default:
		return ChannelWebhooks
	}
}

// SubscribeRequest sent by client to subscribe to specific channels
type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// UnsubscribeRequest sent by client to unsubscribe from channels
type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// GatewayEventData mirrors a webhook envelope for live listeners.
type GatewayEventData struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Helper to create messages
func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        generateMessageID(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}

func generateMessageID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
