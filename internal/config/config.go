// Package config loads the paneterm user configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// UserConfigFileName is the config file inside the paneterm directory.
const UserConfigFileName = "config.toml"

// ShellSettings controls how pane shells are spawned.
type ShellSettings struct {
	// Program overrides the shell executable. Empty means $SHELL, then
	// the platform default.
	Program string `toml:"program"`
}

// HistorySettings controls the transcript archive.
type HistorySettings struct {
	// OutputFlushSecs is the output pipeline flush period (default: 5).
	OutputFlushSecs int `toml:"output_flush_secs"`

	// HistoryFlushSecs is the history write-buffer flush period (default: 30).
	HistoryFlushSecs int `toml:"history_flush_secs"`

	// SessionGapMins is the inactivity threshold after which a new
	// session header is written into a day file (default: 30).
	SessionGapMins int `toml:"session_gap_mins"`

	// SearchLimit is the default search result budget (default: 50).
	SearchLimit int `toml:"search_limit"`
}

// LogSettings mirrors the logging package configuration.
type LogSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Debug  bool   `toml:"debug"`
}

// UserConfig is the full ~/.paneterm/config.toml contents.
type UserConfig struct {
	Shell   ShellSettings   `toml:"shell"`
	History HistorySettings `toml:"history"`
	Log     LogSettings     `toml:"log"`
}

// GetOutputFlushSecs returns the output flush period with its default.
func (h HistorySettings) GetOutputFlushSecs() int {
	if h.OutputFlushSecs <= 0 {
		return 5
	}
	return h.OutputFlushSecs
}

// GetHistoryFlushSecs returns the history flush period with its default.
func (h HistorySettings) GetHistoryFlushSecs() int {
	if h.HistoryFlushSecs <= 0 {
		return 30
	}
	return h.HistoryFlushSecs
}

// GetSessionGapMins returns the session gap with its default.
func (h HistorySettings) GetSessionGapMins() int {
	if h.SessionGapMins <= 0 {
		return 30
	}
	return h.SessionGapMins
}

// GetSearchLimit returns the search budget with its default.
func (h HistorySettings) GetSearchLimit() int {
	if h.SearchLimit <= 0 {
		return 50
	}
	return h.SearchLimit
}

// PanetermDir returns the base paneterm directory (~/.paneterm).
// PANETERM_DIR overrides it, which tests rely on for isolation.
func PanetermDir() (string, error) {
	if dir := os.Getenv("PANETERM_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".paneterm"), nil
}

// HistoryDir returns the transcript archive root.
func HistoryDir() (string, error) {
	dir, err := PanetermDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

var (
	cache   *UserConfig
	cacheMu sync.RWMutex
)

// Load reads the user configuration, returning a cached copy after the
// first call. A missing file yields defaults; a malformed file yields
// defaults plus the parse error so the caller can surface it.
func Load() (*UserConfig, error) {
	cacheMu.RLock()
	if cache != nil {
		defer cacheMu.RUnlock()
		return cache, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cache != nil {
		return cache, nil
	}

	dir, err := PanetermDir()
	if err != nil {
		cache = &UserConfig{}
		return cache, nil
	}

	path := filepath.Join(dir, UserConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cache = &UserConfig{}
		return cache, nil
	}

	var cfg UserConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		cache = &UserConfig{}
		return cache, fmt.Errorf("config.toml parse error: %w", err)
	}

	cache = &cfg
	return cache, nil
}

// Reload drops the cache and loads fresh values.
func Reload() (*UserConfig, error) {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
	return Load()
}

// Save writes the config atomically and drops the cache so the next Load
// reads fresh values.
func Save(cfg *UserConfig) error {
	dir, err := PanetermDir()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, UserConfigFileName)
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace config: %w", err)
	}

	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
	return nil
}
