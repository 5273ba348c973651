// Package config loads the regsweep TOML configuration file: defaults
// first, then whatever the file overrides, then validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/regsweep/regsweep/pkg/types"
)

// Config is the effective runtime configuration.
type Config struct {
	LogLevel string `toml:"log_level"`

	Backup   Backup   `toml:"backup"`
	Scanning Scanning `toml:"scanning"`
}

// Backup controls the pre-clean snapshot behaviour.
type Backup struct {
	Enabled   bool   `toml:"enabled"`
	Dir       string `toml:"dir"`
	Retention int    `toml:"retention"`
}

// Scanning selects which scanners run and how deep key walks go.
type Scanning struct {
	// Categories enables only the named scanner categories. Empty means
	// every registered scanner runs.
	Categories []string `toml:"categories"`
	// SkipKeys are extra key-path prefixes the scanners leave alone, on
	// top of the built-in protected list.
	SkipKeys []string `toml:"skip_keys"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Backup: Backup{
			Enabled:   true,
			Dir:       defaultBackupDir(),
			Retention: 10,
		},
	}
}

func defaultBackupDir() string {
	base := os.Getenv("LOCALAPPDATA")
	if base == "" {
		var err error
		base, err = os.UserCacheDir()
		if err != nil {
			base = "."
		}
	}
	return filepath.Join(base, "regsweep", "backups")
}

// Load reads path and overlays it on the defaults. A missing file is not
// an error: the defaults are returned as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the rest of the program cannot act on.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.Backup.Enabled && strings.TrimSpace(c.Backup.Dir) == "" {
		return fmt.Errorf("backup.dir is required when backups are enabled")
	}
	if c.Backup.Retention < 0 {
		return fmt.Errorf("backup.retention must not be negative")
	}
	if _, err := c.EnabledCategories(); err != nil {
		return err
	}
	for _, p := range c.Scanning.SkipKeys {
		if _, _, ok := types.SplitKeyPath(p); !ok {
			return fmt.Errorf("scanning.skip_keys: %q is not a registry path", p)
		}
	}
	return nil
}

// EnabledCategories resolves the configured category names. An empty list
// resolves to nil, meaning all.
func (c Config) EnabledCategories() ([]types.Category, error) {
	if len(c.Scanning.Categories) == 0 {
		return nil, nil
	}
	out := make([]types.Category, 0, len(c.Scanning.Categories))
	for _, name := range c.Scanning.Categories {
		cat, ok := types.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("scanning.categories: unknown category %q", name)
		}
		out = append(out, cat)
	}
	return out, nil
}
