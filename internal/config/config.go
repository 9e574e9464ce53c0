// Package config loads the order book maintainer's YAML configuration,
// applying defaults for anything the file or environment leaves unset.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Book    BookConfig    `yaml:"book"`
	NATS    NATSConfig    `yaml:"nats"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds the host-facing HTTP surface configuration.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// BookConfig holds defaults applied to every book the registry creates.
type BookConfig struct {
	DefaultGroupSize  float64 `yaml:"defaultGroupSize"`
	DefaultDepth      int     `yaml:"defaultDepth"`
	BucketCacheSize   int     `yaml:"bucketCacheSize"`
}

// NATSConfig holds the notifier's connection and throttling settings.
type NATSConfig struct {
	URL               string        `yaml:"url"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	FailureThreshold  uint32        `yaml:"failureThreshold"`
	OpenTimeout       time.Duration `yaml:"openTimeout"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// MetricsConfig holds Prometheus exposition settings. cmd/server does not
// read them: it always serves metrics at /metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from path, falling back to built-in defaults
// for any field the file does not set. A missing file is not an error:
// the service starts from defaults alone, the same way it would in a
// minimal local or test environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}

	if cfg.Book.DefaultGroupSize == 0 {
		cfg.Book.DefaultGroupSize = 1.0
	}
	if cfg.Book.DefaultDepth == 0 {
		cfg.Book.DefaultDepth = 20
	}
	if cfg.Book.BucketCacheSize == 0 {
		cfg.Book.BucketCacheSize = 1_000_000
	}

	if cfg.NATS.URL == "" {
		cfg.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	}
	if cfg.NATS.RequestsPerSecond == 0 {
		cfg.NATS.RequestsPerSecond = 10
	}
	if cfg.NATS.Burst == 0 {
		cfg.NATS.Burst = 20
	}
	if cfg.NATS.FailureThreshold == 0 {
		cfg.NATS.FailureThreshold = 5
	}
	if cfg.NATS.OpenTimeout == 0 {
		cfg.NATS.OpenTimeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
