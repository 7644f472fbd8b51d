// Package config provides configuration loading for the simflow services.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level simflow configuration file (simflow.yaml).
type Config struct {
	LogLevel string         `yaml:"log_level"`
	EventBus EventBusConfig `yaml:"event_bus"`
	Redis    RedisConfig    `yaml:"redis"`
	API      APIConfig      `yaml:"api"`
	Executor ExecutorConfig `yaml:"executor"`
}

// EventBusConfig selects the event bus backend.
type EventBusConfig struct {
	// Driver is "memory" or "kafka".
	Driver  string   `yaml:"driver"`
	Brokers []string `yaml:"brokers"`
}

// RedisConfig configures the execution result store. An empty Addr disables
// Redis and falls back to the in-memory store.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	ResultTTL time.Duration `yaml:"result_ttl"`
}

type APIConfig struct {
	Port int `yaml:"port"`
}

// ExecutorConfig tunes run behavior.
type ExecutorConfig struct {
	// SiblingPolicy is "drain" or "abort".
	SiblingPolicy string `yaml:"sibling_policy"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		EventBus: EventBusConfig{Driver: "memory"},
		Redis:    RedisConfig{ResultTTL: 24 * time.Hour},
		API:      APIConfig{Port: 9091},
		Executor: ExecutorConfig{SiblingPolicy: "drain"},
	}
}

// Load reads a YAML configuration file, applying defaults for anything
// unset. Environment variables override file values: SIMFLOW_LOG_LEVEL,
// SIMFLOW_EVENT_BUS_DRIVER, SIMFLOW_KAFKA_BROKERS, SIMFLOW_REDIS_ADDR.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate checks cross-field constraints the YAML schema cannot express.
func (c Config) Validate() error {
	switch c.EventBus.Driver {
	case "memory":
	case "kafka":
		if len(c.EventBus.Brokers) == 0 {
			return fmt.Errorf("event_bus: kafka driver requires at least one broker")
		}
	default:
		return fmt.Errorf("event_bus: unknown driver %q", c.EventBus.Driver)
	}

	switch c.Executor.SiblingPolicy {
	case "drain", "abort":
	default:
		return fmt.Errorf("executor: unknown sibling_policy %q", c.Executor.SiblingPolicy)
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api: invalid port %d", c.API.Port)
	}

	return nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SIMFLOW_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}

	if v := os.Getenv("SIMFLOW_EVENT_BUS_DRIVER"); v != "" {
		config.EventBus.Driver = v
	}

	if v := os.Getenv("SIMFLOW_KAFKA_BROKERS"); v != "" {
		config.EventBus.Brokers = splitBrokers(v)
	}

	if v := os.Getenv("SIMFLOW_REDIS_ADDR"); v != "" {
		config.Redis.Addr = v
	}
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")

	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}

	return brokers
}
