// Package gateway defines the WhatsApp gateway port (interface) and its
// vendor registry. One concrete adapter exists per vendor protocol and
// is selected once per tenant from the stored provider setting.
package gateway

import (
	"context"
	"errors"

	"github.com/TheLucianoBraga/zapgestor/internal/domain/connection"
)

// ErrQRNotAvailable is returned by FetchQR while the vendor has not yet
// produced a pairing code. The pairing loop treats it as "try again".
var ErrQRNotAvailable = errors.New("gateway: qr code not available yet")

// Capabilities declares vendor-specific behavior the pairing flow must
// account for.
type Capabilities struct {
	// PostPairWebhook indicates pairing may reset the session's webhook
	// config, so it must be re-registered after the state flips to
	// connected.
	PostPairWebhook bool `json:"post_pair_webhook"`
}

// Gateway is the port interface for a WhatsApp gateway vendor. All
// operations are keyed by tenant ID; adapters derive the vendor-side
// session/instance name from it.
type Gateway interface {
	// Name returns the provider identifier ("api1", "api2").
	Name() string

	// Capabilities returns what this vendor protocol requires.
	Capabilities() Capabilities

	// Status queries the vendor and maps its status vocabulary onto the
	// normalized connection states. Mapping is total: unknown vendor
	// states report disconnected rather than erroring.
	Status(ctx context.Context, tenantID string) (connection.Status, error)

	// CreateSession creates and starts the vendor session or instance.
	// "Already exists" vendor responses are treated as success.
	CreateSession(ctx context.Context, tenantID string) error

	// RegisterWebhook points the vendor's inbound-message delivery at
	// the platform webhook endpoint.
	RegisterWebhook(ctx context.Context, tenantID string) error

	// FetchQR retrieves the current pairing QR image, or
	// ErrQRNotAvailable while the vendor has none to offer.
	FetchQR(ctx context.Context, tenantID string) (connection.QRImage, error)

	// SendText sends a plain text message to a phone number.
	SendText(ctx context.Context, tenantID, phone, text string) error

	// Disconnect stops the session without discarding credentials.
	// Idempotent: disconnecting an already-stopped session succeeds.
	Disconnect(ctx context.Context, tenantID string) error

	// ClearSession logs out and deletes the vendor session entirely.
	// Idempotent like Disconnect.
	ClearSession(ctx context.Context, tenantID string) error
}
