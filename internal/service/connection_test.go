package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TheLucianoBraga/zapgestor/internal/adapter/ws"
	"github.com/TheLucianoBraga/zapgestor/internal/config"
	"github.com/TheLucianoBraga/zapgestor/internal/domain"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/connection"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/settings"
	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
)

// testConnEnv wires a ConnectionService over the in-memory fakes with a
// configured api1 gateway and fast pairing budgets.
type testConnEnv struct {
	svc      *ConnectionService
	store    *fakeStore
	settings *SettingsService
	notes    *recordNotifier
	events   *recordBroadcaster
	ctx      context.Context
}

func newTestConnEnv(t *testing.T, tenantID string) *testConnEnv {
	t.Helper()

	cfg := config.Defaults()
	cfg.Pairing.QRAttempts = 3
	cfg.Pairing.QRInterval = time.Millisecond
	cfg.Pairing.ConnectAttempts = 5
	cfg.Pairing.ConnectInterval = time.Millisecond
	cfg.Poller.Interval = 10 * time.Millisecond

	store := newFakeStore()
	notes := &recordNotifier{}
	events := &recordBroadcaster{}
	st := testSettingsService(store)
	svc := NewConnectionService(st, notes, events, &cfg)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	svc.Start(ctx)

	tctx := middleware.WithTenantID(ctx, tenantID)
	if err := st.Update(tctx, settings.UpdateRequest{Settings: map[string]string{
		settings.KeyWahaURL: "https://waha.example.com",
		settings.KeyWahaKey: "key",
	}}); err != nil {
		t.Fatalf("settings update: %v", err)
	}

	return &testConnEnv{svc: svc, store: store, settings: st, notes: notes, events: events, ctx: tctx}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func (e *testConnEnv) state() connection.State {
	tc := e.svc.tenant(middleware.TenantIDFromContext(e.ctx))
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.status.State
}

func TestStatusUnconfigured(t *testing.T) {
	cfg := config.Defaults()
	svc := NewConnectionService(testSettingsService(newFakeStore()), &recordNotifier{}, &recordBroadcaster{}, &cfg)
	ctx := middleware.WithTenantID(context.Background(), "11111111-0000-0000-0000-000000000001")

	res, err := svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if res.Configured {
		t.Error("expected Configured=false")
	}
	if res.State != connection.StateDisconnected {
		t.Errorf("State = %q, want disconnected", res.State)
	}
}

func TestStatusPollsAndBroadcasts(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-000000000002")
	installFake(&fakeGateway{statuses: []connection.Status{
		{State: connection.StateConnected, Phone: "551199", DisplayName: "Shop"},
	}})

	res, err := env.svc.Status(env.ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !res.Configured {
		t.Fatal("expected Configured=true")
	}
	if res.State != connection.StateConnected || res.Phone != "551199" {
		t.Fatalf("status = %+v", res.Status)
	}

	got := env.events.byType(ws.EventConnectionState)
	if len(got) != 1 {
		t.Fatalf("state events = %d, want 1", len(got))
	}
	ev := got[0].Payload.(ws.ConnectionStateEvent)
	if ev.State != "connected" || ev.DisplayName != "Shop" {
		t.Errorf("event = %+v", ev)
	}
}

func TestPollErrorForcesDisconnectedOnce(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-000000000003")
	gw := &fakeGateway{statuses: []connection.Status{{State: connection.StateConnected}}}
	installFake(gw)

	if _, err := env.svc.Status(env.ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if env.state() != connection.StateConnected {
		t.Fatal("precondition: connected")
	}

	gw.mu.Lock()
	gw.statusErr = errors.New("gateway down")
	gw.mu.Unlock()

	tc := env.svc.tenant(middleware.TenantIDFromContext(env.ctx))
	env.svc.pollOnce(env.ctx, tc)
	env.svc.pollOnce(env.ctx, tc)

	if env.state() != connection.StateDisconnected {
		t.Fatalf("state = %q, want disconnected after poll error", env.state())
	}
	// Only the transition notifies; the repeat poll error is silent.
	if n := len(env.notes.bySource("connection.poll")); n != 1 {
		t.Errorf("poll notifications = %d, want 1", n)
	}
}

func TestIllegalTransitionDropped(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-000000000004")
	gw := &fakeGateway{statuses: []connection.Status{
		{State: connection.StateConnected},
		{State: connection.StateWaitingQR},
	}}
	installFake(gw)

	if _, err := env.svc.Status(env.ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}

	tc := env.svc.tenant(middleware.TenantIDFromContext(env.ctx))
	env.svc.pollOnce(env.ctx, tc)

	// connected -> waiting_qr is not a legal edge; the poll result is dropped.
	if env.state() != connection.StateConnected {
		t.Fatalf("state = %q, want connected", env.state())
	}
}

func TestStaleGenerationDiscarded(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-000000000005")
	installFake(&fakeGateway{})

	tc := env.svc.tenant(middleware.TenantIDFromContext(env.ctx))
	_, gen, err := env.svc.gatewayFor(env.ctx, tc)
	if err != nil {
		t.Fatalf("gatewayFor: %v", err)
	}

	// A settings change invalidates in-flight polls.
	env.svc.InvalidateGateway(env.ctx)

	if env.svc.applyStatus(env.ctx, tc, gen, connection.Status{State: connection.StateConnected}) {
		t.Fatal("stale status must not apply")
	}
	if env.state() != connection.StateDisconnected {
		t.Fatalf("state = %q, want disconnected", env.state())
	}
}

func TestDisconnect(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-000000000006")
	gw := &fakeGateway{statuses: []connection.Status{{State: connection.StateConnected}}}
	installFake(gw)

	if _, err := env.svc.Status(env.ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if err := env.svc.Disconnect(env.ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	if gw.disconnects != 1 {
		t.Errorf("disconnect calls = %d, want 1", gw.disconnects)
	}
	if env.state() != connection.StateDisconnected {
		t.Fatalf("state = %q, want disconnected", env.state())
	}
}

func TestClearSession(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-000000000007")
	gw := &fakeGateway{}
	installFake(gw)

	if err := env.svc.ClearSession(env.ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if gw.clears != 1 {
		t.Errorf("clear calls = %d, want 1", gw.clears)
	}
}

func TestSendTextRequiresConnection(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-000000000008")
	gw := &fakeGateway{}
	installFake(gw)

	err := env.svc.SendText(env.ctx, "5511999990000", "hello")
	if !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}

	gw.mu.Lock()
	gw.statuses = []connection.Status{{State: connection.StateConnected}}
	gw.mu.Unlock()
	if _, err := env.svc.Status(env.ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}

	if err := env.svc.SendText(env.ctx, "5511999990000", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if len(gw.sent) != 1 || gw.sent[0] != "5511999990000:hello" {
		t.Errorf("sent = %v", gw.sent)
	}
}

func TestSendTextValidation(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-000000000009")
	installFake(&fakeGateway{})

	if err := env.svc.SendText(env.ctx, "", "hello"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestStatusReportsAutomationPaused(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-00000000000a")
	installFake(&fakeGateway{statuses: []connection.Status{{State: connection.StateConnected}}})

	if err := env.settings.Update(env.ctx, settings.UpdateRequest{Settings: map[string]string{
		settings.KeyAutomationPaused: "true",
	}}); err != nil {
		t.Fatalf("settings update: %v", err)
	}

	res, err := env.svc.Status(env.ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !res.Paused {
		t.Error("expected Paused=true")
	}

	if err := env.settings.Update(env.ctx, settings.UpdateRequest{Settings: map[string]string{
		settings.KeyAutomationPaused: "false",
	}}); err != nil {
		t.Fatalf("settings update: %v", err)
	}
	res, err = env.svc.Status(env.ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if res.Paused {
		t.Error("expected Paused=false")
	}
}

func TestPollerStopsWhenUnconfigured(t *testing.T) {
	env := newTestConnEnv(t, "11111111-0000-0000-0000-00000000000b")
	installFake(&fakeGateway{statuses: []connection.Status{{State: connection.StateConnected}}})

	if _, err := env.svc.Status(env.ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}

	tc := env.svc.tenant(middleware.TenantIDFromContext(env.ctx))
	tc.mu.Lock()
	polling := tc.polling
	tc.mu.Unlock()
	if !polling {
		t.Fatal("precondition: poller running")
	}

	// Removing the gateway credentials retires the poller.
	for _, key := range []string{settings.KeyWahaURL, settings.KeyWahaKey} {
		if err := env.settings.Delete(env.ctx, key); err != nil {
			t.Fatalf("delete %s: %v", key, err)
		}
	}
	env.svc.InvalidateGateway(env.ctx)

	tc.mu.Lock()
	polling = tc.polling
	stopped := tc.pollCancel == nil
	tc.mu.Unlock()
	if polling || !stopped {
		t.Fatal("poller still running after settings removal")
	}

	// Restoring the credentials brings it back on the next status read.
	if err := env.settings.Update(env.ctx, settings.UpdateRequest{Settings: map[string]string{
		settings.KeyWahaURL: "https://waha.example.com",
		settings.KeyWahaKey: "key",
	}}); err != nil {
		t.Fatalf("settings update: %v", err)
	}
	if _, err := env.svc.Status(env.ctx); err != nil {
		t.Fatalf("Status: %v", err)
	}
	tc.mu.Lock()
	polling = tc.polling
	tc.mu.Unlock()
	if !polling {
		t.Fatal("poller not restarted after reconfiguration")
	}
}
