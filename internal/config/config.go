package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prism-search/prism/internal/types"
)

// Config holds daemon configuration. The extension allow-list and the
// directory deny-list are compile-time constants in the indexing package;
// config can only add exclude patterns on top of them.
type Config struct {
	Version int
	Project Project
	Index   Index
	Search  Search
	Server  Server

	// Exclude holds extra doublestar glob patterns matched against
	// slash-separated paths relative to the project root.
	Exclude []string
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	MaxFileSize     int64
	WatchMode       bool // Enable file system watching for automatic reindexing
	WatchDebounceMs int  // Debounce time for file change events
}

type Search struct {
	DefaultLimit  int
	MaxResults    int
	CacheCapacity int
	EnableSuggest bool // Offer "did you mean" terms when a search is empty
}

type Server struct {
	Addr string // HTTP listen address for serve mode
}

// Default returns the built-in configuration rooted at root.
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{
			Root: root,
		},
		Index: Index{
			MaxFileSize:     types.DefaultMaxFileSize,
			WatchMode:       true,
			WatchDebounceMs: types.DefaultWatchDebounceMs,
		},
		Search: Search{
			DefaultLimit:  types.DefaultResultLimit,
			MaxResults:    types.MaxResultLimit,
			CacheCapacity: types.DefaultCacheCapacity,
			EnableSuggest: true,
		},
		Server: Server{
			Addr: "127.0.0.1:7425",
		},
		Exclude: []string{},
	}
}

// Load reads .prism.kdl from the project root if present, otherwise
// returns defaults. The returned project root is always absolute.
func Load(root string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %q: %w", root, err)
	}

	cfg, err := LoadKDL(absRoot)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = Default(absRoot)
	}
	cfg.Project.Root = absRoot

	return cfg, nil
}

// LoadFrom reads configuration from an explicit KDL file while rooting
// the project at root. Used when the config file lives outside the
// project tree.
func LoadFrom(root, path string) (*Config, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root %q: %w", root, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := parseKDL(absRoot, string(content))
	if err != nil {
		return nil, err
	}
	cfg.Project.Root = absRoot

	return cfg, nil
}

// StateDir returns the daemon state directory for the configured root.
func (c *Config) StateDir() string {
	return filepath.Join(c.Project.Root, types.StateDirName)
}

// SnapshotPath returns the on-disk index snapshot location.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.StateDir(), types.SnapshotFileName)
}

// EnsureStateDir creates the state directory if it does not exist.
func (c *Config) EnsureStateDir() error {
	if err := os.MkdirAll(c.StateDir(), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// Validate checks that configured values are within usable ranges.
func (c *Config) Validate() error {
	if c.Index.MaxFileSize <= 0 {
		return fmt.Errorf("index max_file_size must be positive, got %d", c.Index.MaxFileSize)
	}
	if c.Index.WatchDebounceMs < 0 {
		return fmt.Errorf("index watch_debounce_ms must not be negative, got %d", c.Index.WatchDebounceMs)
	}
	if c.Search.CacheCapacity < 1 {
		return fmt.Errorf("search cache_capacity must be at least 1, got %d", c.Search.CacheCapacity)
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("search default_limit must be in [1, %d], got %d", c.Search.MaxResults, c.Search.DefaultLimit)
	}
	return nil
}
