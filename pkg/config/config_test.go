package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeUsesBuiltinDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultQueueConfig().WorkerCount, cfg.Queue.WorkerCount)
	assert.Equal(t, DefaultLLMConfig().Model, cfg.LLM.Model)
	assert.Equal(t, "zh", cfg.Defaults.Language)
}

func TestInitializeMergesUserOverridesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
queue:
  worker_count: 9
llm:
  model: gpt-4o
defaults:
  language: en
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fortuned.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Queue.WorkerCount)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "en", cfg.Defaults.Language)
	// Untouched sections keep their built-in values.
	assert.Equal(t, DefaultCacheConfig().MaxEntries, cfg.Cache.MaxEntries)
}

func TestInitializeRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
queue:
  worker_count: 999
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fortuned.yaml"), []byte(yamlContent), 0o644))

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}
