// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, the process exits.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config holds all runtime configuration shared by the discovery and review
// binaries.
type Config struct {
	DBDriver    string // "sqlite" or "postgres"
	DatabaseURL string // postgres only
	DBPath      string // sqlite only
	RedisURL    string // optional; empty disables events and the run lock

	ProxyURL          string // e.g. socks5://gluetun:5566
	TorControlAddr    string // e.g. gluetun:9051; empty disables rotation
	TorPassword       string
	HTTPTimeout       time.Duration
	RequestsPerSecond float64
	DetailConcurrency int

	ScrapeIntervalHours int // How often the cron job fires
	RunOnce             bool

	LogLevel  string
	LogPretty bool

	DiscoveryPort    string // health endpoint of the discovery daemon
	ReviewPort       string
	SearchConfigPath string
	ExportDir        string // optional; CSV copies of each run's new records
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DBDriver:         strings.ToLower(envOr("DB_DRIVER", "sqlite")),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DBPath:           envOr("DB_PATH", "jobs.db"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ProxyURL:         os.Getenv("PROXY_URL"),
		TorControlAddr:   os.Getenv("TOR_CONTROL_ADDR"),
		TorPassword:      os.Getenv("TOR_PASSWORD"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		DiscoveryPort:    envOr("DISCOVERY_PORT", "8081"),
		ReviewPort:       envOr("REVIEW_PORT", "8082"),
		SearchConfigPath: envOr("SEARCH_CONFIG_PATH", "config.json"),
		ExportDir:        os.Getenv("EXPORT_DIR"),
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case "sqlite":
	default:
		return nil, errors.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver)
	}

	timeout, err := positiveInt("HTTP_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = time.Duration(timeout) * time.Second

	if cfg.DetailConcurrency, err = positiveInt("DETAIL_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.ScrapeIntervalHours, err = positiveInt("SCRAPE_INTERVAL_HOURS", 6); err != nil {
		return nil, err
	}

	if s := os.Getenv("REQUESTS_PER_SECOND"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return nil, errors.Errorf("REQUESTS_PER_SECOND must be a non-negative number, got %q", s)
		}
		cfg.RequestsPerSecond = v
	}

	if cfg.RunOnce, err = boolEnv("RUN_ONCE"); err != nil {
		return nil, err
	}
	if cfg.LogPretty, err = boolEnv("LOG_PRETTY"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, errors.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}

func boolEnv(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.Wrapf(err, "%s must be a boolean", key)
	}
	return v, nil
}
