// Package nats publishes connection and queue lifecycle events to NATS
// JetStream so the rest of the platform can react to them.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
)

const streamName = "ZAPGESTOR"

// Events publishes lifecycle events to NATS JetStream. It implements the
// broadcast port.
type Events struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Events, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// Ensure the stream exists with subjects matching our topic patterns.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"whatsapp.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Events{nc: nc, js: js}, nil
}

// Publish sends raw data to the given subject.
func (e *Events) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := e.js.Publish(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// BroadcastEvent publishes a typed event under the tenant's subject tree,
// e.g. whatsapp.<tenant>.connection.state. Publish failures are logged and
// swallowed; event fan-out must never fail a lifecycle operation.
func (e *Events) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	tenantID := middleware.TenantIDFromContext(ctx)
	if tenantID == "" {
		slog.Debug("nats event without tenant, dropped", "type", eventType)
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal nats event payload", "type", eventType, "error", err)
		return
	}

	subject := "whatsapp." + tenantID + "." + eventType
	if err := e.Publish(ctx, subject, data); err != nil {
		slog.Error("nats event publish failed", "subject", subject, "error", err)
	}
}

// Close shuts down the NATS connection.
func (e *Events) Close() error {
	e.nc.Close()
	return nil
}
