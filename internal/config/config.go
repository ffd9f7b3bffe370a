package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"greenmetrics/domain/carbon"
	"greenmetrics/internal"
	"greenmetrics/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database    DatabaseConfig
	SCI         SCIConfig
	Influx      InfluxConfig
	Registry    RegistryConfig
	Log         LogConfig
	Concurrency ConcurrencyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// SCIConfig holds the carbon constants supplied by the measurement setup
type SCIConfig struct {
	I  float64 // gCO2e/kWh
	EL float64 // years
	TE float64 // gCO2e
	RS float64 // fraction
	R  float64
	Rd string
}

// InfluxConfig selects InfluxDB as the measurement source when URL is set
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Enabled reports whether measurements should be read from InfluxDB
func (c InfluxConfig) Enabled() bool {
	return c.URL != ""
}

// RegistryConfig points at an optional metric registry override
type RegistryConfig struct {
	Path string
}

type LogConfig struct {
	Level internal.LogLevel
}

type ConcurrencyConfig struct {
	AggregationWorkers int
}

// Params converts the SCI section into formula parameters
func (c SCIConfig) Params() carbon.Params {
	return carbon.Params{I: c.I, EL: c.EL, TE: c.TE, RS: c.RS}
}

// FunctionalUnit returns nil when no reliability factor is configured
func (c SCIConfig) FunctionalUnit() *carbon.FunctionalUnit {
	if c.R == 0 {
		return nil
	}
	return &carbon.FunctionalUnit{R: c.R, Rd: c.Rd}
}

// DefaultSCI returns the carbon parameters used when none are configured
func DefaultSCI() SCIConfig {
	return SCIConfig{I: 436, EL: 4, TE: 181000, RS: 1}
}

// Load reads a .env file if present, then configuration from environment
// variables, and validates it
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	return FromEnv()
}

// LoadFile is Load with an explicit .env path, which must exist
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read %s", path)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only
func FromEnv() (*Config, error) {
	sci := DefaultSCI()
	config := &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		},
		SCI: SCIConfig{
			I:  getEnvFloatOrDefault("SCI_I", sci.I),
			EL: getEnvFloatOrDefault("SCI_EL", sci.EL),
			TE: getEnvFloatOrDefault("SCI_TE", sci.TE),
			RS: getEnvFloatOrDefault("SCI_RS", sci.RS),
			R:  getEnvFloatOrDefault("SCI_R", sci.R),
			Rd: getEnvOrDefault("SCI_R_D", sci.Rd),
		},
		Influx: InfluxConfig{
			URL:    os.Getenv("INFLUX_URL"),
			Token:  os.Getenv("INFLUX_TOKEN"),
			Org:    getEnvOrDefault("INFLUX_ORG", "greenmetrics"),
			Bucket: getEnvOrDefault("INFLUX_BUCKET", "measurements"),
		},
		Registry: RegistryConfig{
			Path: os.Getenv("METRIC_REGISTRY"),
		},
		Log: LogConfig{
			Level: internal.ParseLogLevel(os.Getenv("LOG_LEVEL")),
		},
		Concurrency: ConcurrencyConfig{
			AggregationWorkers: getEnvIntOrDefault("AGGREGATION_WORKERS", 4),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if err := config.SCI.Params().Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.SCI.R < 0 {
		return errors.ConfigInvalid("SCI_R must not be negative")
	}
	if config.SCI.R != 0 && strings.TrimSpace(config.SCI.Rd) == "" {
		return errors.ConfigInvalid("SCI_R_D is required when SCI_R is set")
	}
	if config.Influx.Enabled() && config.Influx.Token == "" {
		return errors.ConfigInvalid("INFLUX_TOKEN is required when INFLUX_URL is set")
	}
	if config.Concurrency.AggregationWorkers < 1 {
		return errors.ConfigInvalid("AGGREGATION_WORKERS must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
