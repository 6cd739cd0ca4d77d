// Package config provides configuration management for the movie catalog.
//
// Configuration comes from an optional YAML file overlaid by environment
// variables with the MOVIE_ prefix (nested keys joined by "_", for example
// MOVIE_POSTGRES_HOST or MOVIE_JWT_SECRET).
//
// Example usage:
//
//	cfg, err := config.NewFileLoader("config/local.yaml").Load()
//	if err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Popularity PopularityConfig `mapstructure:"popularity"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Cron       CronConfig       `mapstructure:"cron"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// AppConfig holds application level settings.
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Env       string `mapstructure:"env"` // development or production
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json or console
}

// IsProduction reports whether the app runs in production mode.
func (c AppConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return ":" + strconv.Itoa(c.HTTPPort)
}

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns a postgres:// connection URL usable by pgx and lib/pq.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		c.User, c.Password, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database, c.SSLMode)
}

// RedisConfig holds Redis settings. Redis carries domain events and is optional.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	Expiry time.Duration `mapstructure:"expiry"`
}

// PopularityConfig holds the hotness score weights.
type PopularityConfig struct {
	FavoritesWeight float64 `mapstructure:"favorites_weight"`
	CommentsWeight  float64 `mapstructure:"comments_weight"`
	RatingsWeight   float64 `mapstructure:"ratings_weight"`
	RatingTerm      string  `mapstructure:"rating_term"` // count or score
}

// RateLimitConfig limits credential endpoints per client IP. With Redis
// enabled the fixed window is shared by all instances; otherwise each process
// keeps its own token buckets.
type RateLimitConfig struct {
	AuthPerSecond float64       `mapstructure:"auth_per_second"`
	AuthBurst     int           `mapstructure:"auth_burst"`
	AuthWindow    time.Duration `mapstructure:"auth_window"`
	AuthPerWindow int64         `mapstructure:"auth_per_window"`
}

// CronConfig holds scheduled job settings.
type CronConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	ReconcileSpec string        `mapstructure:"reconcile_spec"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
}

// TelemetryConfig holds OpenTelemetry tracing settings.
type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"` // gRPC, e.g. otel-collector:4317
	SampleRatio  float64 `mapstructure:"sample_ratio"`  // 0 uses the environment default
}
