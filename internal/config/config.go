// Package config loads daemon configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all daemon settings. Every field has a default that
// works for a local run against docker-compose Postgres.
type Config struct {
	// BaseCurrency is the currency valuations are reported in
	BaseCurrency string `env:"BASE_CCY" envDefault:"GBP"`

	// PollIntervalSeconds is the delay between price poll cycles
	PollIntervalSeconds int `env:"POLL_INTERVAL_SECONDS" envDefault:"300"`

	// SeedDemoData seeds a small demo portfolio on boot when the
	// installation is empty
	SeedDemoData bool `env:"SEED_DEMO_DATA" envDefault:"false"`

	// PriceStore selects the latest-price store backend: "postgres"
	// keeps prices next to the rest of the data, "redis" trades
	// durability of history for cheap reads
	PriceStore string `env:"PRICE_STORE" envDefault:"postgres"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"portfolio"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CoinGeckoBaseURL string `env:"COINGECKO_BASE_URL" envDefault:"https://api.coingecko.com"`
	YahooBaseURL     string `env:"YAHOO_BASE_URL" envDefault:"https://query1.finance.yahoo.com"`

	ResolveTimeoutSeconds int    `env:"RESOLVE_TIMEOUT_SECONDS" envDefault:"15"`
	ResolveWorkers        int    `env:"RESOLVE_WORKERS" envDefault:"4"`
	ResolveMaxRetries     uint64 `env:"RESOLVE_MAX_RETRIES" envDefault:"2"`
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.PollIntervalSeconds <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive, got %d", c.PollIntervalSeconds)
	}
	if c.PriceStore != "postgres" && c.PriceStore != "redis" {
		return fmt.Errorf("PRICE_STORE must be postgres or redis, got %q", c.PriceStore)
	}
	if c.BaseCurrency == "" {
		return fmt.Errorf("BASE_CCY cannot be empty")
	}
	return nil
}

// PollInterval returns the poll interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ResolveTimeout returns the per-asset resolution timeout as a duration
func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutSeconds) * time.Second
}

// PostgresConnStr builds a lib/pq connection string
func (c *Config) PostgresConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}
