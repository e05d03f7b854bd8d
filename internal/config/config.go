// Copyright (c) 2025 Mark Delaney
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for nutri.
//
// Configuration is read from ~/.nutri/config.toml with built-in defaults and
// environment variable overrides (NUTRI_SERVER_URL, NUTRI_LOG_LEVEL). The
// file can be hot-reloaded, see Watcher.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mdelaney/nutri-tui/internal/util"
)

// Defaults.
const (
	DefaultServerURL   = "http://localhost:9000"
	DefaultTimeoutSecs = 30

	// Poll cadence and budget for deferred chat completions.
	DefaultPollIntervalSecs = 1
	DefaultPollBudget       = 30
)

// Config represents the complete nutri configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Chat   ChatConfig   `toml:"chat"`
	UI     UIConfig     `toml:"ui"`
	Log    LogConfig    `toml:"log"`
}

// ServerConfig holds connection settings for the nutrition service.
type ServerConfig struct {
	// BaseURL is the root URL of the nutrition service API.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
}

// ChatConfig holds tunables for the chat subsystem.
type ChatConfig struct {
	// PollIntervalSecs is the delay between deferred-task polls.
	PollIntervalSecs int `toml:"poll_interval_secs"`
	// PollBudget is the total number of poll attempts before timing out.
	// Failed attempts and still-pending responses draw from the same budget.
	PollBudget int `toml:"poll_budget"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	// Markdown renders assistant replies through glamour when true.
	Markdown bool `toml:"markdown"`
}

// LogConfig holds diagnostic logging settings.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error", "disabled".
	Level string `toml:"level"`
	// Path is the log file location (empty = ~/.nutri/nutri.log).
	Path string `toml:"path"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:     DefaultServerURL,
			TimeoutSecs: DefaultTimeoutSecs,
		},
		Chat: ChatConfig{
			PollIntervalSecs: DefaultPollIntervalSecs,
			PollBudget:       DefaultPollBudget,
		},
		UI: UIConfig{
			Markdown: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Timeout returns the per-request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// PollInterval returns the deferred-task poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Chat.PollIntervalSecs) * time.Second
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	if c.Server.TimeoutSecs <= 0 {
		return errors.New("server.timeout_secs must be positive")
	}
	if c.Chat.PollIntervalSecs <= 0 {
		return errors.New("chat.poll_interval_secs must be positive")
	}
	if c.Chat.PollBudget <= 0 {
		return errors.New("chat.poll_budget must be positive")
	}
	return nil
}

// =============================================================================
// PATHS
// =============================================================================

var (
	configDirOverride string
	configDirMu       sync.Mutex
)

// SetConfigDir overrides the config directory, used by tests.
func SetConfigDir(dir string) {
	configDirMu.Lock()
	defer configDirMu.Unlock()
	configDirOverride = dir
}

// ConfigDir returns the nutri configuration directory (~/.nutri).
func ConfigDir() (string, error) {
	configDirMu.Lock()
	override := configDirOverride
	configDirMu.Unlock()
	if override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".nutri"), nil
}

// EnsureConfigDir creates the configuration directory if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// Path returns the config file path.
func Path() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the configuration file, applies environment overrides, and falls
// back to defaults when the file does not exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads a configuration file from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies NUTRI_* environment variables over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NUTRI_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("NUTRI_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Save writes the configuration to the config file atomically.
func (c *Config) Save() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to an explicit path atomically.
func (c *Config) SaveTo(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0o600)
}
