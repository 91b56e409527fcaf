package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/auctiondraft/go/internal/draft"
	"github.com/mcdev12/auctiondraft/go/internal/draft/snapshot"
)

// Config is read from an optional YAML file; environment variables override it.
type Config struct {
	Port     string       `yaml:"port"`
	LogLevel string       `yaml:"log_level"`
	Storage  string       `yaml:"storage"` // "postgres" or "memory"
	Fixture  string       `yaml:"fixture"` // YAML loaded into memory storage
	Draft    draft.Config `yaml:"draft"`
	NATS     struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
}

const (
	storagePostgres = "postgres"
	storageMemory   = "memory"
)

func defaultConfig() *Config {
	cfg := &Config{
		Port:     "8080",
		LogLevel: "info",
		Storage:  storagePostgres,
		Draft:    draft.DefaultConfig(),
	}
	cfg.Redis.TTL = snapshot.DefaultConfig().TTL
	return cfg
}

// loadConfig reads path if it exists and applies env overrides.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Port = getEnv("PORT", config.Port)
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.Storage = getEnv("STORAGE", config.Storage)
	config.Fixture = getEnv("FIXTURE_PATH", config.Fixture)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.Redis.Addr = getEnv("REDIS_ADDR", config.Redis.Addr)
	config.Redis.Password = getEnv("REDIS_PASSWORD", config.Redis.Password)
	config.Redis.DB = getEnvAsInt("REDIS_DB", config.Redis.DB)
	config.Draft.Settings.ResetWindowSec = getEnvAsInt("RESET_WINDOW_SEC", config.Draft.Settings.ResetWindowSec)

	if config.Storage != storagePostgres && config.Storage != storageMemory {
		return nil, fmt.Errorf("unknown storage %q", config.Storage)
	}
	if config.Draft.Settings.ResetWindowSec <= 0 {
		return nil, fmt.Errorf("reset window must be positive, got %d", config.Draft.Settings.ResetWindowSec)
	}
	return config, nil
}

func (c *Config) level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
