package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeAutoCreatesGlobalConfig(t *testing.T) {
	configDir := t.TempDir()

	cfg, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	path := filepath.Join(configDir, globalConfigFileName)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)

	assert.Equal(t, 4, cfg.Queue.WorkerCount)
	assert.Equal(t, "execution_output", cfg.Defaults.OutputDir)
}

func TestInitializeIsIdempotent(t *testing.T) {
	configDir := t.TempDir()

	_, err := Initialize(context.Background(), configDir)
	require.NoError(t, err)

	path := filepath.Join(configDir, globalConfigFileName)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Initialize(context.Background(), configDir)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInitializeRejectsInvalidQueueConfig(t *testing.T) {
	configDir := t.TempDir()
	path := filepath.Join(configDir, globalConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("queue:\n  worker_count: -1\n"), 0o644))

	_, err := Initialize(context.Background(), configDir)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoadSessionConfigYAML(t *testing.T) {
	doc := []byte(`
driver_sources:
  - name: chrome
    enabled: true
`)
	sess, err := LoadSessionConfig(doc, false)
	require.NoError(t, err)
	assert.Len(t, sess.DriverSources, 1)
	assert.Equal(t, "chrome", sess.DriverSources[0].Name)
}

func TestLoadSessionConfigAppliesEnvOverride(t *testing.T) {
	t.Setenv("TEST_SESSION_ENV_VARIABLES", `{"output_dir": "/tmp/override"}`)

	doc := []byte(`driver_sources:
  - name: chrome
    enabled: true
`)
	sess, err := LoadSessionConfig(doc, false)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", sess.OutputDir)
}

func TestIsConfigYAML(t *testing.T) {
	assert.True(t, IsConfigYAML(map[string]any{
		"driver_sources":  []any{},
		"element_sources": []any{},
	}))
	assert.True(t, IsConfigYAML(map[string]any{
		"driver_sources":   []any{},
		"elements_sources": []any{},
	}))
	assert.False(t, IsConfigYAML(map[string]any{
		"driver_sources": []any{},
	}))
	assert.False(t, IsConfigYAML(map[string]any{
		"test_case": "login",
	}))
}
