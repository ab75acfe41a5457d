package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TheLucianoBraga/zapgestor/internal/domain"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/connection"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/schedule"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/settings"
	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
	"github.com/TheLucianoBraga/zapgestor/internal/port/gateway"
	"github.com/TheLucianoBraga/zapgestor/internal/port/notifier"
)

// fakeStore is an in-memory database.Store with the same status
// legality rules as the SQL implementation.
type fakeStore struct {
	mu       sync.Mutex
	settings map[string]map[string]string // tenant -> key -> value
	messages map[string]*schedule.Message
	charges  map[string]*schedule.Charge
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		settings: make(map[string]map[string]string),
		messages: make(map[string]*schedule.Message),
		charges:  make(map[string]*schedule.Charge),
	}
}

func (f *fakeStore) tenantSettings(ctx context.Context) map[string]string {
	tid := middleware.TenantIDFromContext(ctx)
	if f.settings[tid] == nil {
		f.settings[tid] = make(map[string]string)
	}
	return f.settings[tid]
}

func (f *fakeStore) ListSettings(ctx context.Context) ([]settings.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []settings.Setting
	for k, v := range f.tenantSettings(ctx) {
		out = append(out, settings.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (f *fakeStore) GetSetting(ctx context.Context, key string) (*settings.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.tenantSettings(ctx)[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &settings.Setting{Key: key, Value: v}, nil
}

func (f *fakeStore) UpsertSetting(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenantSettings(ctx)[key] = value
	return nil
}

func (f *fakeStore) DeleteSetting(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.tenantSettings(ctx)
	if _, ok := m[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m, key)
	return nil
}

func (f *fakeStore) ListPendingMessages(context.Context) ([]schedule.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []schedule.Message
	for _, m := range f.messages {
		if m.Status == schedule.StatusPending {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMessageHistory(context.Context) ([]schedule.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []schedule.Message
	for _, m := range f.messages {
		if m.Status == schedule.StatusSent || m.Status == schedule.StatusFailed {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) CancelMessage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !m.Status.CanCancel() {
		return domain.ErrInvalidTransition
	}
	m.Status = schedule.StatusCancelled
	return nil
}

func (f *fakeStore) RetryMessage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !m.Status.CanRetry() {
		return domain.ErrInvalidTransition
	}
	m.Status = schedule.StatusPending
	m.SentAt = nil
	m.ErrorMessage = ""
	return nil
}

func (f *fakeStore) DeleteMessage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !m.Status.Terminal() {
		return domain.ErrInvalidTransition
	}
	delete(f.messages, id)
	return nil
}

func (f *fakeStore) ListPendingCharges(context.Context) ([]schedule.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []schedule.Charge
	for _, c := range f.charges {
		if c.Status == schedule.StatusPending {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListChargeHistory(context.Context) ([]schedule.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []schedule.Charge
	for _, c := range f.charges {
		if c.Status == schedule.StatusSent || c.Status == schedule.StatusFailed {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) CancelCharge(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !c.Status.CanCancel() {
		return domain.ErrInvalidTransition
	}
	c.Status = schedule.StatusCancelled
	return nil
}

func (f *fakeStore) RetryCharge(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !c.Status.CanRetry() {
		return domain.ErrInvalidTransition
	}
	c.Status = schedule.StatusPending
	c.SentAt = nil
	c.ErrorMessage = ""
	return nil
}

func (f *fakeStore) DeleteCharge(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !c.Status.Terminal() {
		return domain.ErrInvalidTransition
	}
	delete(f.charges, id)
	return nil
}

// memCache is a map-backed cache for testing.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// recordNotifier records notifications for assertions.
type recordNotifier struct {
	mu    sync.Mutex
	items []notifier.Notification
}

func (r *recordNotifier) Notify(_ context.Context, n notifier.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordNotifier) bySource(source string) []notifier.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notifier.Notification
	for _, n := range r.items {
		if n.Source == source {
			out = append(out, n)
		}
	}
	return out
}

// recordBroadcaster records broadcast events for assertions.
type recordBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Type    string
	Payload any
}

func (r *recordBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Payload: payload})
}

func (r *recordBroadcaster) byType(eventType string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeGateway is a scriptable gateway for lifecycle tests.
type fakeGateway struct {
	mu   sync.Mutex
	caps gateway.Capabilities

	statuses  []connection.Status // consumed in order; last repeats
	statusErr error

	qrMisses int // FetchQR calls returning ErrQRNotAvailable first
	qr       connection.QRImage
	qrCalls  int

	createErr    error
	webhookErr   error
	createCalls  int
	webhookCalls int
	disconnects  int
	clears       int
	sent         []string
}

func (g *fakeGateway) Name() string { return settings.ProviderWaha }

func (g *fakeGateway) Capabilities() gateway.Capabilities { return g.caps }

func (g *fakeGateway) Status(context.Context, string) (connection.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return connection.Status{State: connection.StateDisconnected}, g.statusErr
	}
	if len(g.statuses) == 0 {
		return connection.Status{State: connection.StateDisconnected}, nil
	}
	st := g.statuses[0]
	if len(g.statuses) > 1 {
		g.statuses = g.statuses[1:]
	}
	return st, nil
}

func (g *fakeGateway) CreateSession(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	return g.createErr
}

func (g *fakeGateway) RegisterWebhook(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.webhookCalls++
	return g.webhookErr
}

func (g *fakeGateway) FetchQR(context.Context, string) (connection.QRImage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.qrCalls++
	if g.qrCalls <= g.qrMisses {
		return "", gateway.ErrQRNotAvailable
	}
	return g.qr, nil
}

func (g *fakeGateway) SendText(_ context.Context, _, phone, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, phone+":"+text)
	return nil
}

func (g *fakeGateway) Disconnect(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disconnects++
	g.statuses = []connection.Status{{State: connection.StateDisconnected}}
	return nil
}

func (g *fakeGateway) ClearSession(context.Context, string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clears++
	g.statuses = []connection.Status{{State: connection.StateDisconnected}}
	return nil
}

// The registry hands out whatever fake the current test installed.
var (
	fakeMu      sync.Mutex
	currentFake *fakeGateway
)

func init() {
	gateway.Register(settings.ProviderWaha, func(map[string]string) (gateway.Gateway, error) {
		fakeMu.Lock()
		defer fakeMu.Unlock()
		if currentFake == nil {
			return nil, fmt.Errorf("no fake gateway installed")
		}
		return currentFake, nil
	})
}

func installFake(g *fakeGateway) {
	fakeMu.Lock()
	currentFake = g
	fakeMu.Unlock()
}
