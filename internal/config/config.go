package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          int
	DevMode       bool
	DatabasePath  string
	LogLevel      string
	MarketDataURL string
	APIKey        string
	APISecret     string

	// Ledger parameters
	StartingCash float64 // virtual cash granted on first wallet read
	Currency     string

	// MIS margin parameters
	MISLeverage  float64 // e.g. 4 => 25% margin
	MISCutoff    string  // "HH:MM" local time, intraday square-off
	RefreshHour  int     // provider token expiry boundary (hour of day)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnvAsInt("PORT", 8001),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		DatabasePath:  getEnv("DATABASE_PATH", "./data/ledger.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		MarketDataURL: getEnv("MARKETDATA_URL", "http://localhost:9001"),
		APIKey:        getEnv("MARKETDATA_API_KEY", ""),
		APISecret:     getEnv("MARKETDATA_API_SECRET", ""),
		StartingCash:  getEnvAsFloat("STARTING_CASH", 100000),
		Currency:      getEnv("CURRENCY", "INR"),
		MISLeverage:   getEnvAsFloat("MIS_LEVERAGE", 4),
		MISCutoff:     getEnv("MIS_CUTOFF", "15:20"),
		RefreshHour:   getEnvAsInt("TOKEN_REFRESH_HOUR", 6),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if c.StartingCash < 0 {
		return fmt.Errorf("STARTING_CASH must not be negative")
	}

	if c.MISLeverage < 1 {
		return fmt.Errorf("MIS_LEVERAGE must be at least 1")
	}

	if _, err := time.Parse("15:04", c.MISCutoff); err != nil {
		return fmt.Errorf("MIS_CUTOFF must be HH:MM: %w", err)
	}

	if c.RefreshHour < 0 || c.RefreshHour > 23 {
		return fmt.Errorf("TOKEN_REFRESH_HOUR must be 0-23")
	}

	// Note: provider credentials optional in dev mode (quotes are mocked)
	return nil
}

// CutoffClock returns the MIS cutoff as hour and minute
func (c *Config) CutoffClock() (hour, minute int) {
	t, _ := time.Parse("15:04", c.MISCutoff)
	return t.Hour(), t.Minute()
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
