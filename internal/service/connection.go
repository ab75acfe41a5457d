package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TheLucianoBraga/zapgestor/internal/adapter/ws"
	"github.com/TheLucianoBraga/zapgestor/internal/config"
	"github.com/TheLucianoBraga/zapgestor/internal/domain"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/connection"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/settings"
	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
	"github.com/TheLucianoBraga/zapgestor/internal/port/broadcast"
	"github.com/TheLucianoBraga/zapgestor/internal/port/gateway"
	"github.com/TheLucianoBraga/zapgestor/internal/port/notifier"
	"github.com/TheLucianoBraga/zapgestor/internal/resilience"
)

// ConnectionService owns the WhatsApp connection lifecycle per tenant:
// building the gateway client from the tenant's settings, tracking the
// normalized connection state, running the status poller and driving the
// QR pairing flow. Gateway failures never escape as errors to callers of
// the lifecycle operations; they become notifications and a forced
// disconnected state instead.
type ConnectionService struct {
	settings *SettingsService
	notify   notifier.Notifier
	hub      broadcast.Broadcaster
	cfg      *config.Config

	baseCtx context.Context

	mu      sync.Mutex
	tenants map[string]*tenantConn
}

// tenantConn is the in-memory lifecycle state of one tenant.
type tenantConn struct {
	mu         sync.Mutex
	id         string
	status     connection.Status
	gen        uint64
	pairing    bool
	pairSeq    uint64
	pairCancel context.CancelFunc
	polling    bool
	pollCancel context.CancelFunc
	gw         gateway.Gateway
	gwCfg      settings.GatewayConfig
}

// StatusResult is the connection status reported to clients. Paused
// mirrors the tenant's automation pause toggle so clients learn both in
// one request.
type StatusResult struct {
	connection.Status
	Configured bool `json:"configured"`
	Paused     bool `json:"whatsapp_automation_paused"`
}

// NewConnectionService creates a new ConnectionService.
func NewConnectionService(st *SettingsService, n notifier.Notifier, hub broadcast.Broadcaster, cfg *config.Config) *ConnectionService {
	return &ConnectionService{
		settings: st,
		notify:   n,
		hub:      hub,
		cfg:      cfg,
		baseCtx:  context.Background(),
		tenants:  make(map[string]*tenantConn),
	}
}

// Start binds the service to its lifetime context. Pollers and pairing
// waiters launched afterwards stop when ctx is cancelled.
func (s *ConnectionService) Start(ctx context.Context) {
	s.baseCtx = ctx
}

// Status reports the tenant's connection state. When a gateway is
// configured it polls the vendor once so the answer is fresh, and makes
// sure the background poller is running for this tenant.
func (s *ConnectionService) Status(ctx context.Context) (StatusResult, error) {
	tc := s.tenant(middleware.TenantIDFromContext(ctx))

	values, err := s.settings.Map(ctx)
	if err != nil {
		return StatusResult{}, err
	}
	paused := values[settings.KeyAutomationPaused] == "true"

	if !settings.GatewayFromMap(values).Configured() {
		return StatusResult{
			Status: connection.Status{State: connection.StateDisconnected},
			Paused: paused,
		}, nil
	}

	s.pollOnce(ctx, tc)
	s.ensurePoller(tc)

	tc.mu.Lock()
	defer tc.mu.Unlock()
	return StatusResult{Status: tc.status, Configured: true, Paused: paused}, nil
}

// Disconnect stops the tenant's session at the vendor and flips the
// state to disconnected. The vendor credentials survive.
func (s *ConnectionService) Disconnect(ctx context.Context) error {
	tc := s.tenant(middleware.TenantIDFromContext(ctx))

	gw, gen, err := s.gatewayFor(ctx, tc)
	if err != nil {
		return err
	}

	if err := gw.Disconnect(ctx, tc.id); err != nil {
		slog.Warn("gateway disconnect failed", "tenant_id", tc.id, "provider", gw.Name(), "error", err)
		s.notify.Notify(ctx, notifier.Notification{
			TenantID: tc.id,
			Title:    "WhatsApp",
			Message:  "Could not stop the session at the gateway.",
			Level:    "warning",
			Source:   "connection.disconnect",
		})
	}

	s.applyStatus(ctx, tc, gen, connection.Status{State: connection.StateDisconnected})
	return nil
}

// ClearSession logs the tenant out and deletes the vendor session, so
// the next pairing starts from scratch.
func (s *ConnectionService) ClearSession(ctx context.Context) error {
	tc := s.tenant(middleware.TenantIDFromContext(ctx))

	gw, gen, err := s.gatewayFor(ctx, tc)
	if err != nil {
		return err
	}

	if err := gw.ClearSession(ctx, tc.id); err != nil {
		slog.Warn("gateway clear session failed", "tenant_id", tc.id, "provider", gw.Name(), "error", err)
		s.notify.Notify(ctx, notifier.Notification{
			TenantID: tc.id,
			Title:    "WhatsApp",
			Message:  "Could not remove the session at the gateway.",
			Level:    "warning",
			Source:   "connection.clear",
		})
	}

	s.applyStatus(ctx, tc, gen, connection.Status{State: connection.StateDisconnected})
	return nil
}

// SendText sends a plain text message through the tenant's session.
// The tenant must be connected.
func (s *ConnectionService) SendText(ctx context.Context, phone, text string) error {
	if phone == "" || text == "" {
		return fmt.Errorf("%w: phone and text are required", domain.ErrValidation)
	}

	tc := s.tenant(middleware.TenantIDFromContext(ctx))

	tc.mu.Lock()
	state := tc.status.State
	tc.mu.Unlock()
	if state != connection.StateConnected {
		return domain.ErrNotConnected
	}

	gw, _, err := s.gatewayFor(ctx, tc)
	if err != nil {
		return err
	}
	return gw.SendText(ctx, tc.id, phone, text)
}

// InvalidateGateway drops the tenant's cached gateway client so the next
// lifecycle operation rebuilds it from fresh settings. Poll results from
// the old client become stale and are discarded. Called after a settings
// update that may have switched providers or credentials. When the
// update removed the gateway configuration entirely, the tenant's
// poller is retired as well.
func (s *ConnectionService) InvalidateGateway(ctx context.Context) {
	tc := s.tenant(middleware.TenantIDFromContext(ctx))

	tc.mu.Lock()
	tc.gen++
	tc.gw = nil
	tc.gwCfg = settings.GatewayConfig{}
	tc.mu.Unlock()

	if gwCfg, err := s.settings.GatewayConfig(ctx); err == nil && !gwCfg.Configured() {
		s.stopPoller(tc)
	}
}

// tenant returns the in-memory state for tenantID, creating it on first
// contact. Fresh tenants start disconnected.
func (s *ConnectionService) tenant(tenantID string) *tenantConn {
	s.mu.Lock()
	defer s.mu.Unlock()

	tc, ok := s.tenants[tenantID]
	if !ok {
		tc = &tenantConn{
			id:     tenantID,
			status: connection.Status{State: connection.StateDisconnected},
		}
		s.tenants[tenantID] = tc
	}
	return tc
}

// gatewayFor returns the tenant's gateway client, building it from
// settings when none is cached or the configuration changed. The
// returned generation ties later status applications to this client;
// results from a previous generation are discarded.
func (s *ConnectionService) gatewayFor(ctx context.Context, tc *tenantConn) (gateway.Gateway, uint64, error) {
	gwCfg, err := s.settings.GatewayConfig(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !gwCfg.Configured() {
		return nil, 0, domain.ErrNotConfigured
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.gw != nil && tc.gwCfg == gwCfg {
		return tc.gw, tc.gen, nil
	}

	gw, err := gateway.New(gwCfg.Provider, map[string]string{
		"base_url":    gwCfg.BaseURL,
		"api_key":     gwCfg.APIKey,
		"webhook_url": s.webhookURL(gwCfg.Provider),
	})
	if err != nil {
		return nil, 0, err
	}

	if bs, ok := gw.(interface{ SetBreaker(*resilience.Breaker) }); ok {
		bs.SetBreaker(resilience.NewBreaker(s.cfg.Breaker.MaxFailures, s.cfg.Breaker.Timeout))
	}

	tc.gen++
	tc.gw = gw
	tc.gwCfg = gwCfg
	return gw, tc.gen, nil
}

func (s *ConnectionService) webhookURL(provider string) string {
	if provider == settings.ProviderEvolution {
		return s.cfg.Webhook.EvolutionURL
	}
	return s.cfg.Webhook.WahaURL
}

// pollOnce queries the vendor once and applies the result. A gateway
// error forces the disconnected state and notifies the tenant; it is
// never returned to the caller.
func (s *ConnectionService) pollOnce(ctx context.Context, tc *tenantConn) {
	gw, gen, err := s.gatewayFor(ctx, tc)
	if err != nil {
		return
	}

	st, err := gw.Status(ctx, tc.id)
	if err != nil {
		slog.Warn("gateway status poll failed", "tenant_id", tc.id, "provider", gw.Name(), "error", err)
		if s.applyStatus(ctx, tc, gen, connection.Status{State: connection.StateDisconnected}) {
			s.notify.Notify(ctx, notifier.Notification{
				TenantID: tc.id,
				Title:    "WhatsApp",
				Message:  "Lost contact with the WhatsApp gateway. Connection marked as offline.",
				Level:    "error",
				Source:   "connection.poll",
			})
		}
		return
	}

	s.applyStatus(ctx, tc, gen, st)
}

// applyStatus records a vendor-reported status. Results from a stale
// generation are discarded, and transitions the state machine forbids
// are dropped with a warning. Returns true when the state changed.
func (s *ConnectionService) applyStatus(ctx context.Context, tc *tenantConn, gen uint64, st connection.Status) bool {
	tc.mu.Lock()

	if gen != tc.gen {
		tc.mu.Unlock()
		slog.Debug("stale status discarded", "tenant_id", tc.id, "state", st.State)
		return false
	}

	old := tc.status.State
	if st.State == old {
		// Same state; phone and display name may still refresh.
		tc.status = st
		tc.mu.Unlock()
		return false
	}

	if !connection.CanTransition(old, st.State) {
		tc.mu.Unlock()
		slog.Warn("illegal connection transition dropped",
			"tenant_id", tc.id, "from", old, "to", st.State)
		return false
	}

	tc.status = st
	tc.mu.Unlock()

	slog.Info("connection state changed", "tenant_id", tc.id, "from", old, "to", st.State)
	s.hub.BroadcastEvent(ctx, ws.EventConnectionState, ws.ConnectionStateEvent{
		TenantID:    tc.id,
		State:       string(st.State),
		Phone:       st.Phone,
		DisplayName: st.DisplayName,
	})
	return true
}
