package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the worktrace services.
// Environment variables are automatically parsed from the WORKTRACE_ prefix.
type Config struct {
	// Build target selects high-level environment: local, cloud-dev, cloud
	BuildTarget string `envconfig:"BUILD_TARGET" default:"local"`

	// Derived or override driver: sqlite | postgres | auto
	DBDriver string `envconfig:"DB_DRIVER" default:"auto"`

	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Postgres Configuration
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// SQLite Configuration (local target)
	SQLitePath string `envconfig:"SQLITE_PATH" default:"worktrace.db"`

	// Rollup Configuration
	RollupIntervalMinutes int `envconfig:"ROLLUP_INTERVAL_MINUTES" default:"60"`
	RetentionDays         int `envconfig:"RETENTION_DAYS" default:"31"`
	RollupDeleteRolled    bool `envconfig:"ROLLUP_DELETE_ROLLED" default:"true"`

	// Ingestion Configuration
	MinHeartbeatIntervalSeconds int `envconfig:"MIN_HEARTBEAT_INTERVAL_SECONDS" default:"60"`

	// Collector Configuration
	ServiceURL          string `envconfig:"SERVICE_URL" default:"http://localhost:8080"`
	APIKey              string `envconfig:"API_KEY" default:""`
	StateDir            string `envconfig:"STATE_DIR" default:""`
	TickSeconds         int    `envconfig:"TICK_SECONDS" default:"30"`
	SendIntervalSeconds int    `envconfig:"SEND_INTERVAL_SECONDS" default:"60"`
	IdleCutoffSeconds   int    `envconfig:"IDLE_CUTOFF_SECONDS" default:"120"`
}

// ResolveDefaults validates BuildTarget and derives DBDriver when set to "auto" or empty.
func (c *Config) ResolveDefaults() error {
	var defaultDB string

	switch c.BuildTarget {
	case "local":
		defaultDB = "sqlite"
	case "cloud-dev", "cloud":
		defaultDB = "postgres"
	default:
		return fmt.Errorf("unsupported BUILD_TARGET: %s", c.BuildTarget)
	}

	if c.DBDriver == "" || c.DBDriver == "auto" {
		c.DBDriver = defaultDB
	}

	allowedDB := map[string]bool{"sqlite": true, "postgres": true}
	if !allowedDB[c.DBDriver] {
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN required for postgres driver")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Environment variables should be prefixed with WORKTRACE_
// Example: WORKTRACE_HTTP_PORT, WORKTRACE_POSTGRES_DSN
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("WORKTRACE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Int("retention_days", cfg.RetentionDays).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		BuildTarget:                 "local",
		DBDriver:                    "sqlite",
		Environment:                 EnvTesting,
		HTTPPort:                    8080,
		SQLitePath:                  ":memory:",
		RollupIntervalMinutes:       60,
		RetentionDays:               31,
		RollupDeleteRolled:          true,
		MinHeartbeatIntervalSeconds: 60,
		ServiceURL:                  "http://localhost:8080",
		TickSeconds:                 30,
		SendIntervalSeconds:         60,
		IdleCutoffSeconds:           120,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
