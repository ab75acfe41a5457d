// Package notifier defines the port for user-facing notifications.
// Gateway errors never propagate past the connection service; they are
// converted to notifications delivered through this port instead.
package notifier

import "context"

// Notification is the payload sent through a Notifier.
type Notification struct {
	TenantID string `json:"tenant_id"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Level    string `json:"level"`  // "info", "success", "warning", "error"
	Source   string `json:"source"` // e.g. "connection.poll", "pairing.timeout"
}

// Notifier is the port interface for delivering notifications.
type Notifier interface {
	// Notify delivers a notification. Failures are the adapter's
	// problem; callers fire and forget.
	Notify(ctx context.Context, n Notification)
}
