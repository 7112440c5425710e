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
const DefaultConfigFile = "levelboard.yaml"

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
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
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
	setString(&cfg.Server.Port, "LEVELBOARD_PORT")
	setString(&cfg.Server.CORSOrigin, "LEVELBOARD_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "LEVELBOARD_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "LEVELBOARD_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "LEVELBOARD_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "LEVELBOARD_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "LEVELBOARD_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "LEVELBOARD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "LEVELBOARD_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "LEVELBOARD_LOG_ASYNC")
	setFloat64(&cfg.Rate.RequestsPerSecond, "LEVELBOARD_RATE_RPS")
	setInt(&cfg.Rate.Burst, "LEVELBOARD_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "LEVELBOARD_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "LEVELBOARD_RATE_MAX_IDLE_TIME")
	setInt64(&cfg.Cache.L1MaxSizeMB, "LEVELBOARD_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "LEVELBOARD_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "LEVELBOARD_CACHE_L2_TTL")
	setDuration(&cfg.Cache.StatsTTL, "LEVELBOARD_CACHE_STATS_TTL")
	setString(&cfg.Idempotency.Bucket, "LEVELBOARD_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "LEVELBOARD_IDEMPOTENCY_TTL")
	setString(&cfg.Auth.TokenHash, "LEVELBOARD_AUTH_TOKEN_HASH")
	setInt(&cfg.Triage.MinMatchScore, "LEVELBOARD_TRIAGE_MIN_MATCH_SCORE")
	setInt(&cfg.Triage.MaxMatchScoreForReject, "LEVELBOARD_TRIAGE_MAX_REJECT_SCORE")
	setInt64(&cfg.Triage.MaxConcurrentRuns, "LEVELBOARD_TRIAGE_MAX_CONCURRENT_RUNS")
	setBool(&cfg.Telemetry.Enabled, "LEVELBOARD_OTEL_ENABLED")
	setString(&cfg.Telemetry.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "LEVELBOARD_OTEL_INSECURE")
	setBool(&cfg.MCP.Enabled, "LEVELBOARD_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "LEVELBOARD_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "LEVELBOARD_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.Triage.MinMatchScore < 0 || cfg.Triage.MinMatchScore > 100 {
		return errors.New("triage.min_match_score must be in [0,100]")
	}
	if cfg.Triage.MaxMatchScoreForReject < 0 || cfg.Triage.MaxMatchScoreForReject > 100 {
		return errors.New("triage.max_match_score_for_reject must be in [0,100]")
	}
	if cfg.Triage.MaxConcurrentRuns < 1 {
		return errors.New("triage.max_concurrent_runs must be >= 1")
	}
	for i, p := range cfg.Workscope.Presets {
		if p.ID == "" {
			return fmt.Errorf("workscope.presets[%d]: id is required", i)
		}
		if p.Min == 0 && p.Max == 0 {
			continue
		}
		if p.Min < 1 || p.Max < p.Min {
			return fmt.Errorf("workscope.presets[%d] (%s): invalid range %d..%d", i, p.ID, p.Min, p.Max)
		}
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
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
