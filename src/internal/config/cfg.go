// Package config loads and validates the cratelinectl configuration file,
// grounded on mipimipi-muserv's internal/config/cfg.go: a JSON struct
// validated on load, with environment variables (via joho/godotenv)
// overriding anything that shouldn't be committed to disk (§6 "Persisted
// state layout", SPEC_FULL.md AMBIENT STACK "Configuration").
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// DefaultCfgPath is where cratelinectl looks for its configuration file
// when --config is not given.
const DefaultCfgPath = "/etc/crateline/config.json"

// Cfg is the top-level crateline configuration.
type Cfg struct {
	// DatabasePath is the single SQLite file backing every collection
	// (§6 "A single relational database file per installation").
	DatabasePath string `json:"database_path"`
	LogDir       string `json:"log_dir"`
	LogLevel     string `json:"log_level"`
	Sync         SyncCfg `json:"sync"`
}

// SyncCfg holds the default synchronize_collection_vfs knobs a CLI
// invocation falls back to when not overridden by flags (§4.5 Params).
type SyncCfg struct {
	Mode                   string `json:"mode"`                     // "always" | "modified" | "once"
	UntrackedMediaSources  string `json:"untracked_media_sources"`  // "find" | "purge"
	OrphanedMediaSources   string `json:"orphaned_media_sources"`   // "find" | "purge"
	UntrackedFiles         string `json:"untracked_files"`          // "skip" | "find"
	UnsynchronizedTracks   string `json:"unsynchronized_tracks"`    // "skip" | "find"
	MinProgressIntervalMs  int    `json:"min_progress_interval_ms"`
}

// envOverrides names the environment variables that take priority over the
// file config, grounded on kirbs-btw-spotify-playlist-dataset's .env
// loading pattern — secrets/paths that should not be committed.
const (
	envDatabasePath = "CRATELINE_DATABASE_PATH"
	envLogDir       = "CRATELINE_LOG_DIR"
	envLogLevel     = "CRATELINE_LOG_LEVEL"
)

// Load reads path (or DefaultCfgPath), then loads a .env file from the
// working directory if present and applies any CRATELINE_* overrides.
func Load(path string) (Cfg, error) {
	if path == "" {
		path = DefaultCfgPath
	}
	var cfg Cfg
	raw, err := os.ReadFile(path)
	if err != nil {
		return Cfg{}, errors.Wrapf(err, "config file %q couldn't be read", path)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Cfg{}, errors.Wrapf(err, "config file %q couldn't be parsed", path)
	}

	// godotenv.Load returns an error when .env is absent; it is discarded,
	// so the .env overlay applies only when the file is present.
	_ = godotenv.Load()

	if v := os.Getenv(envDatabasePath); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv(envLogDir); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

// Validate checks the configuration is complete and internally consistent.
func (c *Cfg) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	switch c.Sync.Mode {
	case "", "always", "modified", "once":
	default:
		return fmt.Errorf("sync.mode %q is not one of always|modified|once", c.Sync.Mode)
	}
	for _, pair := range []struct{ name, val string }{
		{"sync.untracked_media_sources", c.Sync.UntrackedMediaSources},
		{"sync.orphaned_media_sources", c.Sync.OrphanedMediaSources},
	} {
		switch pair.val {
		case "", "find", "purge":
		default:
			return fmt.Errorf("%s %q is not one of find|purge", pair.name, pair.val)
		}
	}
	for _, pair := range []struct{ name, val string }{
		{"sync.untracked_files", c.Sync.UntrackedFiles},
		{"sync.unsynchronized_tracks", c.Sync.UnsynchronizedTracks},
	} {
		switch pair.val {
		case "", "skip", "find":
		default:
			return fmt.Errorf("%s %q is not one of skip|find", pair.name, pair.val)
		}
	}
	return nil
}

// Test loads and validates the configuration at path, printing a summary —
// the config package's half of the `cratelinectl test` subcommand.
func Test(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("configuration %q is complete and consistent\n", path)
	return nil
}
