package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prism-search/prism/internal/types"
)

func TestDefault(t *testing.T) {
	cfg := Default("/project")

	assert.Equal(t, "/project", cfg.Project.Root)
	assert.Equal(t, int64(types.DefaultMaxFileSize), cfg.Index.MaxFileSize)
	assert.Equal(t, types.DefaultWatchDebounceMs, cfg.Index.WatchDebounceMs)
	assert.True(t, cfg.Index.WatchMode)
	assert.Equal(t, types.DefaultResultLimit, cfg.Search.DefaultLimit)
	assert.Equal(t, types.MaxResultLimit, cfg.Search.MaxResults)
	assert.Equal(t, types.DefaultCacheCapacity, cfg.Search.CacheCapacity)
	assert.True(t, cfg.Search.EnableSuggest)
	assert.NotEmpty(t, cfg.Server.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFileUsesDefaults(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Project.Root)
	assert.Equal(t, int64(types.DefaultMaxFileSize), cfg.Index.MaxFileSize)
}

func TestLoad_KDLOverrides(t *testing.T) {
	root := t.TempDir()
	kdl := `
project {
    name "demo"
}

index {
    max_file_size 524288
    watch_mode false
    watch_debounce_ms 250
}

search {
    default_limit 25
    cache_capacity 50
    enable_suggest false
}

server {
    addr "127.0.0.1:9000"
}

exclude "**/testdata/**" "generated/**"
`
	require.NoError(t, os.WriteFile(filepath.Join(root, types.ConfigFileName), []byte(kdl), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "demo", cfg.Project.Name)
	assert.Equal(t, int64(524288), cfg.Index.MaxFileSize)
	assert.False(t, cfg.Index.WatchMode)
	assert.Equal(t, 250, cfg.Index.WatchDebounceMs)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.CacheCapacity)
	assert.False(t, cfg.Search.EnableSuggest)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"**/testdata/**", "generated/**"}, cfg.Exclude)
}

func TestLoad_PartialKDLKeepsDefaults(t *testing.T) {
	root := t.TempDir()
	kdl := `
search {
    default_limit 5
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, types.ConfigFileName), []byte(kdl), 0644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, types.DefaultCacheCapacity, cfg.Search.CacheCapacity, "unset keys keep defaults")
	assert.True(t, cfg.Index.WatchMode)
}

func TestLoadFrom_ExplicitPath(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	configPath := filepath.Join(other, "custom.kdl")
	require.NoError(t, os.WriteFile(configPath, []byte("search {\n    default_limit 7\n}\n"), 0644))

	cfg, err := LoadFrom(root, configPath)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Project.Root, "root comes from the flag, not the config location")
	assert.Equal(t, 7, cfg.Search.DefaultLimit)

	_, err = LoadFrom(root, filepath.Join(other, "absent.kdl"))
	assert.Error(t, err)
}

func TestLoad_MalformedKDL(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, types.ConfigFileName), []byte(`index { "`), 0644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestStatePaths(t *testing.T) {
	cfg := Default("/project")

	assert.Equal(t, filepath.Join("/project", types.StateDirName), cfg.StateDir())
	assert.Equal(t, filepath.Join("/project", types.StateDirName, types.SnapshotFileName), cfg.SnapshotPath())
}

func TestEnsureStateDir(t *testing.T) {
	root := t.TempDir()
	cfg := Default(root)

	require.NoError(t, cfg.EnsureStateDir())
	info, err := os.Stat(cfg.StateDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, cfg.EnsureStateDir(), "idempotent")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero max file size", func(c *Config) { c.Index.MaxFileSize = 0 }, false},
		{"negative debounce", func(c *Config) { c.Index.WatchDebounceMs = -1 }, false},
		{"zero cache capacity", func(c *Config) { c.Search.CacheCapacity = 0 }, false},
		{"zero default limit", func(c *Config) { c.Search.DefaultLimit = 0 }, false},
		{"default limit above max", func(c *Config) { c.Search.DefaultLimit = c.Search.MaxResults + 1 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default("/project")
			tc.mutate(cfg)
			if tc.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}
