// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string

	ListenAddr string `default:"0.0.0.0:8080"`
	LogLevel   string `default:"info"`

	InitialDelaySeconds int `default:"2"`
	FixedDelaySeconds   int `default:"30"`
	GraceTimeSeconds    int `default:"5"`
}

// Load reads the configuration. DATABASE_URL is the only mandatory value;
// everything else falls back to its default.
func Load() (*Config, error) {
	// Missing .env is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if err := overrideInt(&cfg.InitialDelaySeconds, "SCHEDULER_INITIAL_DELAY_SECONDS"); err != nil {
		return nil, err
	}
	if err := overrideInt(&cfg.FixedDelaySeconds, "SCHEDULER_FIXED_DELAY_SECONDS"); err != nil {
		return nil, err
	}
	if err := overrideInt(&cfg.GraceTimeSeconds, "GRACE_TIME_SECONDS"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overrideInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	*dst = n
	return nil
}

func (c *Config) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelaySeconds) * time.Second
}

func (c *Config) FixedDelay() time.Duration {
	return time.Duration(c.FixedDelaySeconds) * time.Second
}

func (c *Config) GraceTime() time.Duration {
	return time.Duration(c.GraceTimeSeconds) * time.Second
}
