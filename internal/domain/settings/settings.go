// Package settings defines the per-tenant key-value configuration model
// and the gateway credential extraction used by the connection service.
package settings

import (
	"fmt"
	"regexp"
	"time"

	"github.com/TheLucianoBraga/zapgestor/internal/domain"
)

// Setting is a single tenant-scoped configuration entry. Values are
// free-form strings; keys follow a flat snake_case convention with no
// further schema enforcement.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpdateRequest holds the fields to upsert one or more settings.
type UpdateRequest struct {
	Settings map[string]string `json:"settings"`
}

// Known setting keys.
const (
	KeyProvider             = "whatsapp_api_provider"
	KeyWahaURL              = "waha_api_url"
	KeyWahaKey              = "waha_api_key"
	KeyEvolutionURL         = "api2_url"
	KeyEvolutionKey         = "api2_api_key"
	KeyAutomationPaused     = "whatsapp_automation_paused"
	KeyRejectCalls          = "whatsapp_reject_calls"
	KeyRejectCallsMode      = "whatsapp_reject_calls_mode"
	KeyRejectCallsStart     = "whatsapp_reject_calls_start"
	KeyRejectCallsEnd       = "whatsapp_reject_calls_end"
)

// Provider names accepted for KeyProvider.
const (
	ProviderWaha      = "api1"
	ProviderEvolution = "api2"
)

// Encrypted-at-rest keys. Their stored values are base64 ciphertext,
// decrypted transparently by the settings service.
var SecretKeys = map[string]bool{
	KeyWahaKey:      true,
	KeyEvolutionKey: true,
}

// GatewayConfig is the credential set extracted from a tenant's
// settings for the active provider.
type GatewayConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
}

// Configured reports whether the active provider has everything it
// needs to make gateway calls. The poller performs no network calls
// for unconfigured tenants.
func (g GatewayConfig) Configured() bool {
	return g.BaseURL != "" && g.APIKey != ""
}

// GatewayFromMap builds the active provider's GatewayConfig from a
// key→value settings map. The provider defaults to api1 when unset.
func GatewayFromMap(values map[string]string) GatewayConfig {
	provider := values[KeyProvider]
	if provider == "" {
		provider = ProviderWaha
	}

	switch provider {
	case ProviderEvolution:
		return GatewayConfig{
			Provider: ProviderEvolution,
			BaseURL:  values[KeyEvolutionURL],
			APIKey:   values[KeyEvolutionKey],
		}
	default:
		return GatewayConfig{
			Provider: ProviderWaha,
			BaseURL:  values[KeyWahaURL],
			APIKey:   values[KeyWahaKey],
		}
	}
}

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Validate checks value constraints for keys this service understands.
// Unknown keys are accepted as-is; the store is schemaless by design.
func Validate(key, value string) error {
	switch key {
	case KeyProvider:
		if value != ProviderWaha && value != ProviderEvolution {
			return fmt.Errorf("%w: %s must be %q or %q", domain.ErrValidation, key, ProviderWaha, ProviderEvolution)
		}
	case KeyAutomationPaused, KeyRejectCalls:
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: %s must be \"true\" or \"false\"", domain.ErrValidation, key)
		}
	case KeyRejectCallsMode:
		if value != "all" && value != "business_hours" {
			return fmt.Errorf("%w: %s must be \"all\" or \"business_hours\"", domain.ErrValidation, key)
		}
	case KeyRejectCallsStart, KeyRejectCallsEnd:
		if !clockRe.MatchString(value) {
			return fmt.Errorf("%w: %s must be HH:MM", domain.ErrValidation, key)
		}
	}
	return nil
}
