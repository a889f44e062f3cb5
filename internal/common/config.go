package common

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	DocAI    DocAIConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string
	DSN              string
	MotherDuckToken  string
	MotherDuckDB     string
	MotherDuckHost   string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DocAIConfig holds document-AI service configuration
type DocAIConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// PipelineConfig holds ingestion fan-out settings
type PipelineConfig struct {
	Workers    int
	RecordMode string
}

const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"

	RecordModeSingle = "single"
	RecordModeMulti  = "multi"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", DriverPgx)),
			DSN:              getEnv("DB_URL", ""),
			MotherDuckToken:  getEnv("MOTHERDUCK_TOKEN", ""),
			MotherDuckDB:     getEnv("MOTHERDUCK_DATABASE", "ai_risk_factors"),
			MotherDuckHost:   getEnv("MOTHERDUCK_HOST", "pg.us-east-1-aws.motherduck.com:5432"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 10*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		DocAI: DocAIConfig{
			APIKey:       getEnv("TENSORLAKE_API_KEY", ""),
			BaseURL:      getEnv("TENSORLAKE_BASE_URL", "https://api.tensorlake.ai/documents/v2"),
			Timeout:      getEnvAsDuration("DOCAI_TIMEOUT", 60*time.Second),
			PollInterval: getEnvAsDuration("DOCAI_POLL_INTERVAL", 2*time.Second),
			WaitTimeout:  getEnvAsDuration("DOCAI_WAIT_TIMEOUT", 0),
		},
		Pipeline: PipelineConfig{
			Workers:    getEnvAsInt("PIPELINE_WORKERS", 0),
			RecordMode: strings.ToLower(getEnv("EXTRACT_RECORD_MODE", RecordModeSingle)),
		},
	}
}

// DatabaseDSN resolves the connection string for the configured driver.
// With the pgx driver and no DB_URL, a MotherDuck Postgres endpoint DSN is
// derived from MOTHERDUCK_TOKEN.
func (c *DatabaseConfig) DatabaseDSN() string {
	if c.DSN != "" || c.Driver != DriverPgx || c.MotherDuckToken == "" {
		return c.DSN
	}
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword("postgres", c.MotherDuckToken),
		Host:     c.MotherDuckHost,
		Path:     "/" + c.MotherDuckDB,
		RawQuery: "sslmode=require",
	}
	return u.String()
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateDatabase checks the settings every database-backed command needs.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case DriverPgx, DriverSQLite:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("DB_DRIVER %q is not supported", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.DatabaseDSN() == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL or MOTHERDUCK_TOKEN is required", ErrInvalidInput)
	}
	return nil
}

// Validate checks the settings needed for ingestion.
func (c *Config) Validate() error {
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if c.DocAI.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "TENSORLAKE_API_KEY is required", ErrInvalidInput)
	}
	if c.DocAI.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "TENSORLAKE_BASE_URL is required", ErrInvalidInput)
	}
	if c.Pipeline.RecordMode != RecordModeSingle && c.Pipeline.RecordMode != RecordModeMulti {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("EXTRACT_RECORD_MODE %q must be single or multi", c.Pipeline.RecordMode), ErrInvalidInput)
	}
	if c.Pipeline.Workers < 0 {
		return NewAppError("CONFIG_ERROR", "PIPELINE_WORKERS must not be negative", ErrInvalidInput)
	}
	return nil
}
