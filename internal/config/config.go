// Package config reads the dev tool settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Layout is a preset name or a path to a layout YAML file.
	Layout string
	// LayoutDB is a bbolt file path or a SQL DSN, empty for none.
	LayoutDB string
	LogLevel string
	// Seed for synthetic perturbation, 0 means time based.
	Seed int64
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Layout:   getEnvOrDefault("OMR_LAYOUT", "default"),
		LayoutDB: getEnvOrDefault("OMR_LAYOUT_DB", ""),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		Seed:     parseIntOrDefault("OMR_SEED", 0),
	}
	if err := ValidLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if strings.TrimSpace(cfg.Layout) == "" {
		return nil, fmt.Errorf("OMR_LAYOUT must not be blank")
	}
	return cfg, nil
}

// ValidLogLevel accepts debug, info, warn and error.
func ValidLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level %q", level)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
