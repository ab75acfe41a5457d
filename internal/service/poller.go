package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
)

// ensurePoller starts the background status poller for a tenant if it is
// not already running. Each poller owns a cancelable context derived
// from the service lifetime, so it stops on shutdown, on stopPoller, or
// on its own when the tenant's gateway settings disappear.
func (s *ConnectionService) ensurePoller(tc *tenantConn) {
	tc.mu.Lock()
	if tc.polling {
		tc.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	tc.polling = true
	tc.pollCancel = cancel
	tc.mu.Unlock()

	slog.Info("connection poller started", "tenant_id", tc.id, "interval", s.cfg.Poller.Interval)

	go func() {
		ticker := time.NewTicker(s.cfg.Poller.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pollTick(tc)
			}
		}
	}()
}

// stopPoller retires the tenant's background poller. A later
// ensurePoller starts a fresh one.
func (s *ConnectionService) stopPoller(tc *tenantConn) {
	tc.mu.Lock()
	cancel := tc.pollCancel
	tc.polling = false
	tc.pollCancel = nil
	tc.mu.Unlock()

	if cancel != nil {
		cancel()
		slog.Info("connection poller stopped", "tenant_id", tc.id)
	}
}

// pollTick runs one poll cycle for a tenant. Polling is skipped while a
// pairing flow owns the connection; a tenant whose gateway settings
// were removed retires its poller instead of ticking idle forever.
func (s *ConnectionService) pollTick(tc *tenantConn) {
	tc.mu.Lock()
	pairing := tc.pairing
	tc.mu.Unlock()
	if pairing {
		return
	}

	ctx := middleware.WithTenantID(s.baseCtx, tc.id)

	gwCfg, err := s.settings.GatewayConfig(ctx)
	if err != nil {
		slog.Warn("poller settings load failed", "tenant_id", tc.id, "error", err)
		return
	}
	if !gwCfg.Configured() {
		s.stopPoller(tc)
		return
	}

	s.pollOnce(ctx, tc)
}
