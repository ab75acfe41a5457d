package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
	"github.com/TheLucianoBraga/zapgestor/internal/port/notifier"
)

// Event type constants for WebSocket messages.
const (
	EventConnectionState = "connection.state"
	EventConnectionQR    = "connection.qr"
	EventQueueUpdated    = "queue.updated"
	EventNotification    = "notification"
)

// ConnectionStateEvent is broadcast when the tenant's connection state changes.
type ConnectionStateEvent struct {
	TenantID    string `json:"tenant_id"`
	State       string `json:"state"`
	Phone       string `json:"phone,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// ConnectionQREvent is broadcast when a fresh QR code is available for pairing.
type ConnectionQREvent struct {
	TenantID string `json:"tenant_id"`
	QR       string `json:"qr"` // image data URI or render URL
}

// QueueUpdatedEvent is broadcast when a scheduled item changes status.
type QueueUpdatedEvent struct {
	TenantID string `json:"tenant_id"`
	Kind     string `json:"kind"` // "message" or "charge"
	ItemID   string `json:"item_id"`
	Status   string `json:"status"`
}

// BroadcastEvent marshals a typed event and delivers it to the clients of
// the tenant carried in ctx. It implements the broadcast port.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	tenantID := middleware.TenantIDFromContext(ctx)
	if tenantID == "" {
		slog.Debug("ws event without tenant, dropped", "type", eventType)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.BroadcastToTenant(ctx, tenantID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// Notify delivers a user-facing notification over the tenant's sockets.
// It implements the notifier port.
func (h *Hub) Notify(ctx context.Context, n notifier.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		slog.Error("marshal ws notification", "error", err)
		return
	}

	h.BroadcastToTenant(ctx, n.TenantID, Message{
		Type:    EventNotification,
		Payload: json.RawMessage(data),
	})
}
