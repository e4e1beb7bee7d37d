package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointConfigAt isolates tests from any real config file in the home directory.
func pointConfigAt(t *testing.T, path string) {
	t.Helper()
	t.Setenv("ASKDATA_CONFIG", path)
}

func TestLoadConfigDefaults(t *testing.T) {
	pointConfigAt(t, filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sample_sales_data", cfg.Database.Table)
	assert.Equal(t, 3, cfg.Query.MaxAttempts)
	assert.Equal(t, 3, cfg.Query.ContextTopK)
	assert.Equal(t, 12000, cfg.Query.PromptSizeBudget)
	assert.Equal(t, "30s", cfg.Query.ExecutionTimeout)
	assert.Equal(t, 500, cfg.Vector.ChunkSize)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	pointConfigAt(t, filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("ASKDATA_MAX_ATTEMPTS", "5")
	t.Setenv("ASKDATA_CONTEXT_TOP_K", "0")
	t.Setenv("ASKDATA_LLM_PROVIDER", "ollama")
	t.Setenv("ASKDATA_EXECUTION_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Query.MaxAttempts)
	assert.Equal(t, 0, cfg.Query.ContextTopK)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.ExecutionTimeout())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	fileConfig := map[string]any{
		"database": map[string]any{"table": "orders"},
		"query":    map[string]any{"max_attempts": 4},
	}
	data, err := json.Marshal(fileConfig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	pointConfigAt(t, configPath)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.Database.Table)
	assert.Equal(t, 4, cfg.Query.MaxAttempts)
	// Untouched values still get defaults.
	assert.Equal(t, 3, cfg.Query.ContextTopK)
}

func TestLoadConfigFileAndEnvLayering(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")

	fileConfig := map[string]any{
		"database": map[string]any{"table": "orders"},
		"query":    map[string]any{"max_attempts": 4},
		"llm":      map[string]any{"provider": "anthropic"},
	}
	data, err := json.Marshal(fileConfig)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	pointConfigAt(t, configPath)
	t.Setenv("ASKDATA_LLM_PROVIDER", "ollama")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Env wins over the file for the field both set.
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	// File wins over defaults for fields env leaves alone.
	assert.Equal(t, "orders", cfg.Database.Table)
	assert.Equal(t, 4, cfg.Query.MaxAttempts)
	// Fields neither layer sets keep their defaults.
	assert.Equal(t, 3, cfg.Query.ContextTopK)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	pointConfigAt(t, filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := LoadConfigWithOverrides(map[string]interface{}{
		"table":        "shipments",
		"max-attempts": 2,
		"log-level":    "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "shipments", cfg.Database.Table)
	assert.Equal(t, 2, cfg.Query.MaxAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "zero max attempts",
			env:  map[string]string{"ASKDATA_MAX_ATTEMPTS": "0"},
		},
		{
			name: "negative top-k",
			env:  map[string]string{"ASKDATA_CONTEXT_TOP_K": "-1"},
		},
		{
			name: "bad execution timeout",
			env:  map[string]string{"ASKDATA_EXECUTION_TIMEOUT": "soon"},
		},
		{
			name: "unknown provider",
			env:  map[string]string{"ASKDATA_LLM_PROVIDER": "oracle"},
		},
		{
			name: "bad log level",
			env:  map[string]string{"ASKDATA_LOG_LEVEL": "loud"},
		},
		{
			name: "zero prompt budget",
			env:  map[string]string{"ASKDATA_PROMPT_SIZE_BUDGET": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pointConfigAt(t, filepath.Join(t.TempDir(), "missing.json"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data.db"), ExpandPath("~/data.db"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/tmp/data.db", ExpandPath("/tmp/data.db"))
}

func TestExecutionTimeoutFallback(t *testing.T) {
	cfg := &Config{Query: QueryConfig{ExecutionTimeout: "garbage"}}
	assert.Equal(t, 30*time.Second, cfg.ExecutionTimeout())
}
