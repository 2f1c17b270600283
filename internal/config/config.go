// Package config loads process settings from the environment and game tuning
// from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when a setting is missing or out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds process configuration.
type Config struct {
	CatalogPath    string   // machine list CSV
	StrictCSV      bool     // skip rows whose field count differs from the header
	Port           int      // HTTP port
	LogLevel       string   // zerolog level name
	LogPretty      bool     // console writer instead of JSON
	Seed           uint64   // session seed, 0 picks one from the clock
	GameConfigPath string   // optional TOML tuning file
	AutoAdvance    string   // optional cron spec advancing one week per tick
	PostgresDSN    string   // optional trade journal export
	ClickhouseDSN  string   // optional weekly history export
	Metrics        bool     // serve /metrics
	CORSOrigins    []string // allowed origins for the HTTP API
}

// Load reads configuration from environment variables, after loading a
// .env file from the working directory if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		CatalogPath:    getEnv("PARLOR_CATALOG_PATH", "data/machines.csv"),
		StrictCSV:      getEnvAsBool("PARLOR_STRICT_CSV", false),
		Port:           getEnvAsInt("PARLOR_PORT", 8080),
		LogLevel:       getEnv("PARLOR_LOG_LEVEL", "info"),
		LogPretty:      getEnvAsBool("PARLOR_LOG_PRETTY", false),
		Seed:           getEnvAsUint64("PARLOR_SEED", 0),
		GameConfigPath: getEnv("PARLOR_GAME_CONFIG", ""),
		AutoAdvance:    getEnv("PARLOR_AUTO_ADVANCE", ""),
		PostgresDSN:    getEnv("PARLOR_POSTGRES_DSN", ""),
		ClickhouseDSN:  getEnv("PARLOR_CLICKHOUSE_DSN", ""),
		Metrics:        getEnvAsBool("PARLOR_METRICS", true),
		CORSOrigins:    getEnvAsList("PARLOR_CORS_ORIGINS", []string{"*"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required settings are present and in range.
func (c *Config) Validate() error {
	if c.CatalogPath == "" {
		return fmt.Errorf("%w: PARLOR_CATALOG_PATH is required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: PARLOR_PORT %d out of range", ErrInvalidConfig, c.Port)
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Helper functions
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

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintVal, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
