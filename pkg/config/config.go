package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for report-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8086"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis document store for approved-parameter export
	Redis RedisConfig `yaml:"redis"`

	// External naming-authority service used for parameter-name validation
	Validator ValidatorConfig `yaml:"validator"`

	// Background pipeline worker settings
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"reportengine"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"report_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// RedisConfig holds the flexible document store connection settings.
// Only approved parameter projections are ever written there.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ValidatorConfig holds the naming-authority endpoint settings.
// The endpoint is OpenAI-compatible; the payload sent there carries parameter
// names and units only, never extracted values or client identity.
type ValidatorConfig struct {
	Endpoint    string        `yaml:"endpoint" env:"VALIDATOR_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model       string        `yaml:"model" env:"VALIDATOR_MODEL" env-default:"gpt-4o-mini"`
	APIKey      string        `yaml:"-" env:"VALIDATOR_API_KEY"` // Secret - not in YAML
	Timeout     time.Duration `yaml:"timeout" env:"VALIDATOR_TIMEOUT" env-default:"45s"`
	MaxAttempts int           `yaml:"max_attempts" env:"VALIDATOR_MAX_ATTEMPTS" env-default:"3"`
}

// PipelineConfig holds worker pool and document lease settings.
type PipelineConfig struct {
	// Workers is the number of concurrent document pipeline workers.
	Workers int `yaml:"workers" env:"PIPELINE_WORKERS" env-default:"4"`
	// PollInterval is how long an idle worker waits before polling the queue again.
	PollInterval time.Duration `yaml:"poll_interval" env:"PIPELINE_POLL_INTERVAL" env-default:"2s"`
	// LeaseTimeout is how long a claimed document stays invisible to other
	// workers before a crashed run becomes claimable again.
	LeaseTimeout time.Duration `yaml:"lease_timeout" env:"PIPELINE_LEASE_TIMEOUT" env-default:"5m"`
	// MaxAttempts is the number of processing attempts before a document is
	// marked failed instead of requeued.
	MaxAttempts int `yaml:"max_attempts" env:"PIPELINE_MAX_ATTEMPTS" env-default:"5"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// If config.yaml does not exist, configuration comes from the environment alone.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.Workers < 1 {
		return errors.New("pipeline.workers must be at least 1")
	}
	if c.Validator.MaxAttempts < 1 {
		return errors.New("validator.max_attempts must be at least 1")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
