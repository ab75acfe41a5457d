// Package broadcast defines the port for broadcasting real-time events to connected clients.
package broadcast

import "context"

// Broadcaster sends real-time events to connected clients. Implementations
// scope delivery to the tenant carried in the context.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to the tenant's connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
