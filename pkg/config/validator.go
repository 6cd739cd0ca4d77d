package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// MinJWTSecretLength is the shortest accepted HMAC secret.
const MinJWTSecretLength = 32

// Validator validates configuration values.
type Validator struct{}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	if cfg.App.Env != EnvDevelopment && cfg.App.Env != EnvProduction {
		return fmt.Errorf("app: unknown env %q", cfg.App.Env)
	}
	if err := v.ValidateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	switch cfg.Storage.Driver {
	case DriverPostgres:
		if err := v.ValidatePostgres(&cfg.Postgres); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	case DriverMemory:
		if cfg.App.IsProduction() {
			return fmt.Errorf("storage: memory driver is not allowed in production")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", cfg.Storage.Driver)
	}
	if cfg.Redis.Enabled {
		if err := v.ValidateRedis(&cfg.Redis); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if err := v.ValidateJWT(&cfg.JWT); err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	if err := v.ValidatePopularity(&cfg.Popularity); err != nil {
		return fmt.Errorf("popularity: %w", err)
	}
	if cfg.RateLimit.AuthPerSecond <= 0 || cfg.RateLimit.AuthBurst <= 0 {
		return fmt.Errorf("rate_limit: auth_per_second and auth_burst must be positive")
	}
	if cfg.Redis.Enabled && (cfg.RateLimit.AuthPerWindow <= 0 || cfg.RateLimit.AuthWindow <= 0) {
		return fmt.Errorf("rate_limit: auth_per_window and auth_window must be positive")
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint == "" {
		return fmt.Errorf("telemetry: otlp_endpoint is required when enabled")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio must be within [0, 1]")
	}
	if cfg.Cron.Enabled {
		if _, err := cron.ParseStandard(cfg.Cron.ReconcileSpec); err != nil {
			return fmt.Errorf("cron: invalid reconcile_spec: %w", err)
		}
	}
	return nil
}

// ValidateServer validates HTTP server configuration.
func (v *Validator) ValidateServer(cfg *ServerConfig) error {
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", cfg.HTTPPort)
	}
	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout cannot be negative")
	}
	return nil
}

// ValidatePostgres validates PostgreSQL configuration.
func (v *Validator) ValidatePostgres(cfg *PostgresConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.User == "" {
		return fmt.Errorf("user is required")
	}
	if cfg.Database == "" {
		return fmt.Errorf("database is required")
	}
	if cfg.MaxConns < 0 || cfg.MinConns < 0 {
		return fmt.Errorf("pool sizes cannot be negative")
	}
	if cfg.MaxConns > 0 && cfg.MinConns > cfg.MaxConns {
		return fmt.Errorf("min_conns cannot exceed max_conns")
	}
	return nil
}

// ValidateRedis validates Redis configuration.
func (v *Validator) ValidateRedis(cfg *RedisConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.DB < 0 || cfg.DB > 15 {
		return fmt.Errorf("invalid db: %d (must be 0-15)", cfg.DB)
	}
	return nil
}

// ValidateJWT validates token settings.
func (v *Validator) ValidateJWT(cfg *JWTConfig) error {
	if len(cfg.Secret) < MinJWTSecretLength {
		return fmt.Errorf("secret must be at least %d characters", MinJWTSecretLength)
	}
	if cfg.Expiry <= 0 {
		return fmt.Errorf("expiry must be positive")
	}
	return nil
}

// ValidatePopularity validates the hotness weights.
func (v *Validator) ValidatePopularity(cfg *PopularityConfig) error {
	if cfg.FavoritesWeight < 0 || cfg.CommentsWeight < 0 || cfg.RatingsWeight < 0 {
		return fmt.Errorf("weights cannot be negative")
	}
	if cfg.RatingTerm != "count" && cfg.RatingTerm != "score" {
		return fmt.Errorf("rating_term must be count or score, got %q", cfg.RatingTerm)
	}
	return nil
}
