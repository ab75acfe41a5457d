package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "zapgestor.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "ZAPGESTOR_PORT")
	setString(&cfg.Server.CORSOrigin, "ZAPGESTOR_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "ZAPGESTOR_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "ZAPGESTOR_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "ZAPGESTOR_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "ZAPGESTOR_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "ZAPGESTOR_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "ZAPGESTOR_LOG_LEVEL")
	setString(&cfg.Logging.Service, "ZAPGESTOR_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "ZAPGESTOR_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "ZAPGESTOR_BREAKER_TIMEOUT")
	setDuration(&cfg.Poller.Interval, "ZAPGESTOR_POLL_INTERVAL")
	setInt(&cfg.Pairing.QRAttempts, "ZAPGESTOR_PAIRING_QR_ATTEMPTS")
	setDuration(&cfg.Pairing.QRInterval, "ZAPGESTOR_PAIRING_QR_INTERVAL")
	setInt(&cfg.Pairing.ConnectAttempts, "ZAPGESTOR_PAIRING_CONNECT_ATTEMPTS")
	setDuration(&cfg.Pairing.ConnectInterval, "ZAPGESTOR_PAIRING_CONNECT_INTERVAL")
	setString(&cfg.Webhook.WahaURL, "ZAPGESTOR_WEBHOOK_WAHA_URL")
	setString(&cfg.Webhook.EvolutionURL, "ZAPGESTOR_WEBHOOK_EVOLUTION_URL")
	setString(&cfg.Secrets.EncryptionSecret, "ZAPGESTOR_ENCRYPTION_SECRET")
	setInt64(&cfg.Cache.MaxCostBytes, "ZAPGESTOR_CACHE_MAX_COST_BYTES")
	setDuration(&cfg.Cache.TTL, "ZAPGESTOR_CACHE_TTL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Poller.Interval <= 0 {
		return errors.New("poller.interval must be positive")
	}
	if cfg.Pairing.QRAttempts < 1 || cfg.Pairing.ConnectAttempts < 1 {
		return errors.New("pairing attempt budgets must be >= 1")
	}
	if cfg.Secrets.EncryptionSecret == "" {
		return errors.New("secrets.encryption_secret is required")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
