package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/TheLucianoBraga/zapgestor/internal/adapter/ws"
	"github.com/TheLucianoBraga/zapgestor/internal/domain"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/connection"
	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
	"github.com/TheLucianoBraga/zapgestor/internal/port/gateway"
	"github.com/TheLucianoBraga/zapgestor/internal/port/notifier"
)

// PairingResult is returned from StartPairing. When the tenant turned
// out to be already connected, QR is empty and Status says so.
type PairingResult struct {
	Status connection.Status  `json:"status"`
	QR     connection.QRImage `json:"qr,omitempty"`
}

// StartPairing drives the QR pairing flow: create or restart the vendor
// session, register the webhook, wait briefly for a QR code and return
// it, then keep watching in the background until the user scans it or
// the pairing window expires.
//
// The whole flow runs under a per-flow context so CancelPairing can
// abort both the QR wait and the background scan wait.
//
// Session creation and webhook registration failures do not abort the
// flow; vendors routinely answer "already exists" or reject webhook
// calls for sessions that pair fine anyway. Only the QR never showing
// up is fatal.
func (s *ConnectionService) StartPairing(ctx context.Context) (PairingResult, error) {
	tc := s.tenant(middleware.TenantIDFromContext(ctx))

	tc.mu.Lock()
	if tc.pairing {
		tc.mu.Unlock()
		return PairingResult{}, domain.ErrPairingInProgress
	}
	pairCtx, cancel := context.WithCancel(middleware.WithTenantID(s.baseCtx, tc.id))
	tc.pairing = true
	tc.pairSeq++
	seq := tc.pairSeq
	tc.pairCancel = cancel
	tc.mu.Unlock()

	res, err := s.pair(pairCtx, tc, seq)
	if err != nil || res.Status.State != connection.StateWaitingQR {
		// No background waiter was launched; release the flow.
		s.endPairing(tc, seq)
	}
	if errors.Is(err, context.Canceled) {
		// CancelPairing aborted the flow while the QR wait was still
		// running; the caller gets the reset state, not an error.
		return PairingResult{Status: connection.Status{State: connection.StateDisconnected}}, nil
	}
	return res, err
}

// CancelPairing aborts an in-flight pairing flow: the QR and scan waits
// stop, connected clients get an empty QR event so the code disappears,
// and the state drops back to disconnected. With no flow in flight it
// is a no-op.
func (s *ConnectionService) CancelPairing(ctx context.Context) error {
	tc := s.tenant(middleware.TenantIDFromContext(ctx))

	tc.mu.Lock()
	if !tc.pairing {
		tc.mu.Unlock()
		return nil
	}
	cancel := tc.pairCancel
	tc.pairing = false
	tc.pairCancel = nil
	// Late results from the aborted flow must not resurrect its state.
	tc.gen++
	gen := tc.gen
	tc.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	slog.Info("pairing cancelled", "tenant_id", tc.id)
	s.applyStatus(ctx, tc, gen, connection.Status{State: connection.StateDisconnected})
	s.hub.BroadcastEvent(ctx, ws.EventConnectionQR, ws.ConnectionQREvent{TenantID: tc.id})
	return nil
}

func (s *ConnectionService) pair(ctx context.Context, tc *tenantConn, seq uint64) (PairingResult, error) {
	gw, gen, err := s.gatewayFor(ctx, tc)
	if err != nil {
		return PairingResult{}, err
	}

	// Already paired sessions skip the QR dance entirely.
	if st, err := gw.Status(ctx, tc.id); err == nil && st.State == connection.StateConnected {
		s.applyStatus(ctx, tc, gen, st)
		return PairingResult{Status: st}, nil
	}

	if err := gw.CreateSession(ctx, tc.id); err != nil {
		// Vendors report spurious errors for sessions that still come
		// up; keep going and let the QR wait decide.
		slog.Warn("gateway create session failed, continuing", "tenant_id", tc.id, "provider", gw.Name(), "error", err)
	}

	if err := gw.RegisterWebhook(ctx, tc.id); err != nil {
		slog.Warn("webhook registration failed", "tenant_id", tc.id, "provider", gw.Name(), "error", err)
		s.notify.Notify(ctx, notifier.Notification{
			TenantID: tc.id,
			Title:    "WhatsApp",
			Message:  "Could not register the message webhook. Incoming messages may not arrive.",
			Level:    "warning",
			Source:   "pairing.webhook",
		})
	}

	qr, st, err := s.waitForQR(ctx, gw, tc.id)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return PairingResult{}, err
		}
		s.applyStatus(ctx, tc, gen, connection.Status{State: connection.StateDisconnected})
		s.notify.Notify(ctx, notifier.Notification{
			TenantID: tc.id,
			Title:    "WhatsApp",
			Message:  "The gateway did not produce a QR code. Check the gateway settings and try again.",
			Level:    "error",
			Source:   "pairing.qr",
		})
		return PairingResult{}, err
	}
	if st.State == connection.StateConnected {
		// The session paired while we waited for a code.
		s.applyStatus(ctx, tc, gen, st)
		return PairingResult{Status: st}, nil
	}

	waiting := connection.Status{State: connection.StateWaitingQR}
	s.applyStatus(ctx, tc, gen, waiting)
	s.hub.BroadcastEvent(ctx, ws.EventConnectionQR, ws.ConnectionQREvent{
		TenantID: tc.id,
		QR:       string(qr),
	})

	go s.waitForScan(ctx, tc, gw, gen, seq)

	return PairingResult{Status: waiting, QR: qr}, nil
}

// waitForQR polls FetchQR until the vendor produces a pairing code or
// the attempt budget runs out. A session that reaches connected while
// no code is forthcoming short-circuits with that status instead; the
// vendor may have restored a previous pairing, or a still-valid earlier
// code was scanned.
func (s *ConnectionService) waitForQR(ctx context.Context, gw gateway.Gateway, tenantID string) (connection.QRImage, connection.Status, error) {
	for attempt := 0; attempt < s.cfg.Pairing.QRAttempts; attempt++ {
		qr, err := gw.FetchQR(ctx, tenantID)
		if err == nil {
			return connection.ResolveQR(string(qr)), connection.Status{}, nil
		}
		if !errors.Is(err, gateway.ErrQRNotAvailable) {
			slog.Warn("qr fetch failed", "tenant_id", tenantID, "attempt", attempt+1, "error", err)
		}

		if st, serr := gw.Status(ctx, tenantID); serr == nil && st.State == connection.StateConnected {
			return "", st, nil
		}

		select {
		case <-ctx.Done():
			return "", connection.Status{}, ctx.Err()
		case <-time.After(s.cfg.Pairing.QRInterval):
		}
	}
	return "", connection.Status{}, fmt.Errorf("no qr code after %d attempts: %w", s.cfg.Pairing.QRAttempts, gateway.ErrQRNotAvailable)
}

// waitForScan watches the vendor until the user scans the QR code. On
// success it re-registers the webhook for vendors that reset it during
// pairing, then hands the connection over to the regular poller. If the
// pairing window expires the state drops back to disconnected. A
// cancelled flow returns silently; CancelPairing already reset the
// state.
func (s *ConnectionService) waitForScan(ctx context.Context, tc *tenantConn, gw gateway.Gateway, gen, seq uint64) {
	defer s.endPairing(tc, seq)

	for attempt := 0; attempt < s.cfg.Pairing.ConnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.Pairing.ConnectInterval):
		}

		st, err := gw.Status(ctx, tc.id)
		if err != nil {
			slog.Warn("pairing status poll failed", "tenant_id", tc.id, "error", err)
			continue
		}
		if st.State != connection.StateConnected {
			continue
		}

		s.applyStatus(ctx, tc, gen, st)

		if gw.Capabilities().PostPairWebhook {
			if err := gw.RegisterWebhook(ctx, tc.id); err != nil {
				slog.Warn("post-pair webhook registration failed", "tenant_id", tc.id, "error", err)
			}
		}

		s.notify.Notify(ctx, notifier.Notification{
			TenantID: tc.id,
			Title:    "WhatsApp",
			Message:  "WhatsApp connected.",
			Level:    "success",
			Source:   "pairing.connected",
		})
		s.ensurePoller(tc)
		return
	}

	s.applyStatus(ctx, tc, gen, connection.Status{State: connection.StateDisconnected})
	s.notify.Notify(ctx, notifier.Notification{
		TenantID: tc.id,
		Title:    "WhatsApp",
		Message:  "The QR code expired before it was scanned. Start the connection again.",
		Level:    "warning",
		Source:   "pairing.timeout",
	})
}

// endPairing releases the pairing slot of flow seq. A flow that was
// cancelled and replaced by a newer one leaves the newer flow alone.
func (s *ConnectionService) endPairing(tc *tenantConn, seq uint64) {
	tc.mu.Lock()
	if tc.pairSeq != seq {
		tc.mu.Unlock()
		return
	}
	cancel := tc.pairCancel
	tc.pairing = false
	tc.pairCancel = nil
	tc.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
