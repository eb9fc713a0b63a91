package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Engine.CacheCapacity)
	assert.Equal(t, 50, cfg.Engine.BufferLines)
	assert.Equal(t, 50, cfg.Engine.DebounceMs)
	assert.Equal(t, 1000, cfg.Engine.ChunkSize)
	assert.False(t, cfg.Engine.SearchWrap)
	assert.True(t, cfg.Display.ShowLineNumbers)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[engine]
cache_capacity = 500
search_wrap = true

[theme]
search_match = "201"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Engine.CacheCapacity)
	assert.True(t, cfg.Engine.SearchWrap)
	assert.Equal(t, "201", cfg.Theme.SearchMatch)

	// Untouched sections keep their defaults.
	assert.Equal(t, 50, cfg.Engine.BufferLines)
	assert.Contains(t, cfg.Keybindings.Quit, "q")
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine\ncache_capacity ="), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
