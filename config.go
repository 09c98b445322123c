package docparse

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the document parsing service.
type Config struct {
	// EnableCache turns on the SQLite parse-result cache.
	EnableCache bool `json:"enable_cache" yaml:"enable_cache"`

	// ReuseCached returns a cached result when the same content (by
	// hash) and file type were parsed before, skipping the parse.
	ReuseCached bool `json:"reuse_cached" yaml:"reuse_cached"`

	// CachePath is the full path to the SQLite cache file.
	// If empty, defaults to <storage dir>/<CacheName>.db.
	CachePath string `json:"cache_path" yaml:"cache_path"`

	// CacheName is the database name used when CachePath is empty.
	// Defaults to "docparse".
	CacheName string `json:"cache_name" yaml:"cache_name"`

	// StorageDir controls where the cache is created when CachePath is
	// not explicitly set. Options: "home" (default) uses ~/.docparse/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// MaxFileSize is the largest document, in bytes, the service will
	// accept. Zero disables the limit.
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`
}

// DefaultConfig returns a Config with sensible defaults: no cache, and a
// 50 MB document size limit.
func DefaultConfig() Config {
	return Config{
		CacheName:   "docparse",
		StorageDir:  "home",
		MaxFileSize: 50 << 20,
	}
}

// resolveCachePath computes the final cache database path.
func (c *Config) resolveCachePath() string {
	if c.CachePath != "" {
		return c.CachePath
	}

	name := c.CacheName
	if name == "" {
		name = "docparse"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".docparse", name+".db")
	}
}
