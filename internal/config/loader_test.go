package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Poller.Interval != 30*time.Second {
		t.Errorf("Poller.Interval = %v, want 30s", cfg.Poller.Interval)
	}
	if cfg.Pairing.QRAttempts != 10 {
		t.Errorf("Pairing.QRAttempts = %d, want 10", cfg.Pairing.QRAttempts)
	}
	if cfg.Pairing.ConnectAttempts != 60 {
		t.Errorf("Pairing.ConnectAttempts = %d, want 60", cfg.Pairing.ConnectAttempts)
	}
	if cfg.Breaker.MaxFailures != 5 {
		t.Errorf("Breaker.MaxFailures = %d, want 5", cfg.Breaker.MaxFailures)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zapgestor.yaml")

	yaml := `
server:
  port: "9090"
poller:
  interval: 10s
pairing:
  connect_attempts: 5
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Poller.Interval != 10*time.Second {
		t.Errorf("Poller.Interval = %v, want 10s", cfg.Poller.Interval)
	}
	if cfg.Pairing.ConnectAttempts != 5 {
		t.Errorf("Pairing.ConnectAttempts = %d, want 5", cfg.Pairing.ConnectAttempts)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched sections keep defaults.
	if cfg.Pairing.QRAttempts != 10 {
		t.Errorf("Pairing.QRAttempts = %d, want 10", cfg.Pairing.QRAttempts)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ZAPGESTOR_PORT", "7070")
	t.Setenv("ZAPGESTOR_POLL_INTERVAL", "15s")
	t.Setenv("ZAPGESTOR_ENCRYPTION_SECRET", "env-secret")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Server.Port = %q, want 7070", cfg.Server.Port)
	}
	if cfg.Poller.Interval != 15*time.Second {
		t.Errorf("Poller.Interval = %v, want 15s", cfg.Poller.Interval)
	}
	if cfg.Secrets.EncryptionSecret != "env-secret" {
		t.Errorf("Secrets.EncryptionSecret = %q, want env-secret", cfg.Secrets.EncryptionSecret)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Poller.Interval = 0
	if err := validate(&cfg); err == nil {
		t.Error("expected error for zero poll interval")
	}

	cfg = Defaults()
	cfg.Secrets.EncryptionSecret = ""
	if err := validate(&cfg); err == nil {
		t.Error("expected error for empty encryption secret")
	}

	cfg = Defaults()
	cfg.Pairing.QRAttempts = 0
	if err := validate(&cfg); err == nil {
		t.Error("expected error for zero QR attempts")
	}
}
