package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "rest:\n  listen_addr: \":9090\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.REST.ListenAddr)
	assert.True(t, cfg.Persistence.Enabled)
	assert.Equal(t, "engine.db", cfg.Persistence.DBPath)
	assert.Equal(t, 4096, cfg.Pipeline.TaskQueueDepth)
	assert.Equal(t, []time.Duration{time.Minute, 5 * time.Minute, time.Hour}, cfg.Persistence.CandleTimeframes)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	path := writeTempConfig(t, "rest:\n  listen_addr: \":9090\"\n")
	t.Setenv("ENGINE_REST_LISTEN_ADDR", ":7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.REST.ListenAddr)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRequiresListenAddr(t *testing.T) {
	cfg := &Config{Pipeline: PipelineConfig{TaskQueueDepth: 1}, Logging: LoggingConfig{Level: "info"}}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := &Config{
		REST:        RESTConfig{ListenAddr: ":8080"},
		WSFeed:      WSFeedConfig{Enabled: false},
		Persistence: PersistenceConfig{Enabled: false},
		Pipeline:    PipelineConfig{TaskQueueDepth: 100},
		Logging:     LoggingConfig{Level: "debug"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := &Config{
		REST:     RESTConfig{ListenAddr: ":8080"},
		Pipeline: PipelineConfig{TaskQueueDepth: 1},
		Logging:  LoggingConfig{Level: "verbose"},
	}
	assert.Error(t, cfg.Validate())
}
