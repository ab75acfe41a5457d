// Package service contains the application services that orchestrate the
// domain over the ports: settings, connection lifecycle and the queue.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/TheLucianoBraga/zapgestor/internal/domain/secrets"
	"github.com/TheLucianoBraga/zapgestor/internal/domain/settings"
	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
	"github.com/TheLucianoBraga/zapgestor/internal/port/cache"
	"github.com/TheLucianoBraga/zapgestor/internal/port/database"
)

// SettingsService provides tenant settings CRUD with at-rest encryption
// of gateway credentials and a read-through cache for the hot path (the
// status poller reads the gateway config every cycle).
type SettingsService struct {
	store    database.Store
	cache    cache.Cache
	cacheTTL time.Duration
	key      []byte
}

// NewSettingsService creates a new SettingsService. encryptionSecret is
// the service secret that gateway API keys are sealed with.
func NewSettingsService(store database.Store, c cache.Cache, cacheTTL time.Duration, encryptionSecret string) *SettingsService {
	return &SettingsService{
		store:    store,
		cache:    c,
		cacheTTL: cacheTTL,
		key:      secrets.DeriveKey(encryptionSecret),
	}
}

// List returns all settings for the current tenant, with credential
// values decrypted.
func (s *SettingsService) List(ctx context.Context) ([]settings.Setting, error) {
	items, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Value = s.reveal(items[i].Key, items[i].Value)
	}
	return items, nil
}

// Get returns a single setting by key.
func (s *SettingsService) Get(ctx context.Context, key string) (*settings.Setting, error) {
	if key == "" {
		return nil, fmt.Errorf("setting key is required")
	}
	item, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return nil, err
	}
	item.Value = s.reveal(item.Key, item.Value)
	return item, nil
}

// Update validates and upserts one or more settings, encrypting
// credential values before they reach the store.
func (s *SettingsService) Update(ctx context.Context, req settings.UpdateRequest) error {
	for key, value := range req.Settings {
		if key == "" {
			return fmt.Errorf("setting key must not be empty")
		}
		if err := settings.Validate(key, value); err != nil {
			return err
		}
	}

	for key, value := range req.Settings {
		if settings.SecretKeys[key] && value != "" {
			sealed, err := secrets.Encrypt(value, s.key)
			if err != nil {
				return fmt.Errorf("encrypt setting %q: %w", key, err)
			}
			value = sealed
		}
		if err := s.store.UpsertSetting(ctx, key, value); err != nil {
			return err
		}
	}

	s.invalidate(ctx)
	return nil
}

// Delete removes a setting by key.
func (s *SettingsService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	if err := s.store.DeleteSetting(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Map returns all settings of the current tenant as a key/value map,
// served from cache when fresh.
func (s *SettingsService) Map(ctx context.Context) (map[string]string, error) {
	cacheKey := s.cacheKey(ctx)

	if data, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var m map[string]string
		if err := json.Unmarshal(data, &m); err == nil {
			return m, nil
		}
	}

	items, err := s.store.ListSettings(ctx)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, len(items))
	for _, item := range items {
		m[item.Key] = s.reveal(item.Key, item.Value)
	}

	if data, err := json.Marshal(m); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
			slog.Debug("settings cache set failed", "error", err)
		}
	}

	return m, nil
}

// GatewayConfig resolves the tenant's gateway configuration from its
// settings. The returned config may be unconfigured; callers check
// Configured().
func (s *SettingsService) GatewayConfig(ctx context.Context) (settings.GatewayConfig, error) {
	m, err := s.Map(ctx)
	if err != nil {
		return settings.GatewayConfig{}, err
	}
	return settings.GatewayFromMap(m), nil
}

func (s *SettingsService) cacheKey(ctx context.Context) string {
	return "settings:" + middleware.TenantIDFromContext(ctx)
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, s.cacheKey(ctx)); err != nil {
		slog.Debug("settings cache delete failed", "error", err)
	}
}

// reveal decrypts credential values. Values written before encryption was
// enabled decrypt to themselves.
func (s *SettingsService) reveal(key, value string) string {
	if !settings.SecretKeys[key] || value == "" {
		return value
	}
	plain, err := secrets.Decrypt(value, s.key)
	if err != nil {
		// Legacy plaintext value.
		return value
	}
	return plain
}
