package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "memory", config.EventBus.Driver)
	assert.Equal(t, 9091, config.API.Port)
	assert.Equal(t, "drain", config.Executor.SiblingPolicy)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
event_bus:
  driver: kafka
  brokers: ["broker-1:9092"]
api:
  port: 8080
executor:
  sibling_policy: abort
`), 0o600))

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "kafka", config.EventBus.Driver)
	assert.Equal(t, []string{"broker-1:9092"}, config.EventBus.Brokers)
	assert.Equal(t, 8080, config.API.Port)
	assert.Equal(t, "abort", config.Executor.SiblingPolicy)
}

func TestLoad_KafkaRequiresBrokers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("event_bus:\n  driver: kafka\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least one broker")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SIMFLOW_LOG_LEVEL", "warn")
	t.Setenv("SIMFLOW_KAFKA_BROKERS", "a:9092, b:9092")

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", config.LogLevel)
	assert.Equal(t, []string{"a:9092", "b:9092"}, config.EventBus.Brokers)
}

func TestValidate_RejectsUnknownPolicy(t *testing.T) {
	config := Default()
	config.Executor.SiblingPolicy = "sometimes"

	require.Error(t, config.Validate())
}
