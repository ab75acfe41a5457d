// Package fanout implements a broadcast adapter that delivers every event
// to multiple backends, typically the WebSocket hub plus NATS.
package fanout

import (
	"context"

	"github.com/TheLucianoBraga/zapgestor/internal/port/broadcast"
)

// Broadcaster fans an event out to each configured backend in order.
type Broadcaster struct {
	backends []broadcast.Broadcaster
}

// New creates a fan-out broadcaster over the given backends. Nil entries
// are skipped so optional backends can be wired unconditionally.
func New(backends ...broadcast.Broadcaster) *Broadcaster {
	out := make([]broadcast.Broadcaster, 0, len(backends))
	for _, b := range backends {
		if b != nil {
			out = append(out, b)
		}
	}
	return &Broadcaster{backends: out}
}

// BroadcastEvent delivers the event to every backend.
func (f *Broadcaster) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	for _, b := range f.backends {
		b.BroadcastEvent(ctx, eventType, payload)
	}
}
