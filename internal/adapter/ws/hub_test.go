package ws

import (
	"context"
	"testing"

	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
	"github.com/TheLucianoBraga/zapgestor/internal/port/notifier"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	if hub == nil {
		t.Fatal("expected non-nil hub")
	}
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastToTenantNoConnections(t *testing.T) {
	hub := NewHub()

	// Broadcast with no connections should not panic.
	hub.BroadcastToTenant(context.Background(), "tenant-1", Message{
		Type:    "test",
		Payload: []byte(`{"key":"value"}`),
	})
}

func TestHubBroadcastEventNoTenant(t *testing.T) {
	hub := NewHub()

	// No tenant in context: event is dropped, no panic.
	hub.BroadcastEvent(context.Background(), EventConnectionState, ConnectionStateEvent{
		TenantID: "t1",
		State:    "connected",
	})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub()

	ctx := middleware.WithTenantID(context.Background(), "t1")
	// A channel cannot be marshaled to JSON; should log error, not panic.
	hub.BroadcastEvent(ctx, "bad", make(chan int))
}

func TestHubNotifyNoConnections(t *testing.T) {
	hub := NewHub()

	hub.Notify(context.Background(), notifier.Notification{
		TenantID: "t1",
		Title:    "WhatsApp",
		Message:  "connection lost",
		Level:    "error",
	})
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub()

	// Removing a connection that was never added should not panic.
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &conn{ws: nil, cancel: cancel, tenantID: "t1"}
	hub.remove(c)
}
