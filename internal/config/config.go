// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/forgemind/forgemind-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete forgemind configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend is the ForgeMind chat service.
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Auth holds the signed-in identity.
	Auth AuthConfig `toml:"auth" json:"auth"`

	// Plugin controls the companion CAD plugin status poller.
	Plugin PluginConfig `toml:"plugin" json:"plugin"`

	CAD CADConfig `toml:"cad" json:"cad"`

	UI UIConfig `toml:"ui" json:"ui"`

	// DevServer configures "forgemind serve-dev".
	DevServer DevServerConfig `toml:"devserver" json:"devserver"`

	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// BackendConfig contains the chat backend connection settings.
type BackendConfig struct {
	// URL is the base URL of the backend, e.g. http://localhost:5000
	URL string `toml:"url" json:"url"`
	// TimeoutSecs bounds every backend request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// LoadConcurrency caps parallel message fetches when loading chats.
	LoadConcurrency int `toml:"load_concurrency" json:"load_concurrency"`
}

// AuthConfig holds the identity handed out by the external identity
// provider. An empty UserID means signed out.
type AuthConfig struct {
	UserID string `toml:"user_id" json:"user_id"`
	Email  string `toml:"email" json:"email"`
}

// PluginConfig controls plugin status polling.
type PluginConfig struct {
	// PollIntervalSecs is the poll cadence. Default 120.
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs"`
	// RefreshMinIntervalMs throttles manual refreshes.
	RefreshMinIntervalMs int `toml:"refresh_min_interval_ms" json:"refresh_min_interval_ms"`
	// RequireOnline refuses to send prompts while the plugin is offline.
	RequireOnline bool `toml:"require_online" json:"require_online"`
}

// CADConfig preselects a CAD connection at startup.
type CADConfig struct {
	// Default is one of the CAD option names, or empty for none.
	Default string `toml:"default" json:"default"`
	// Custom is the free text used when Default is "Other".
	Custom string `toml:"custom" json:"custom"`
}

// UIConfig contains display preferences.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant replies through glamour.
	Markdown bool `toml:"markdown" json:"markdown"`
	// SidebarWidth in columns.
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width"`
	// AltScreen runs the TUI in the alternate screen buffer.
	AltScreen bool `toml:"alt_screen" json:"alt_screen"`
}

// DevServerConfig configures the local development backend.
type DevServerConfig struct {
	Addr   string `toml:"addr" json:"addr"`
	DBPath string `toml:"db_path" json:"db_path"`
}

// LoggingConfig controls where log output goes.
type LoggingConfig struct {
	// Path of the log file. Empty means ~/.forgemind/forgemind.log
	Path    string `toml:"path" json:"path"`
	Verbose bool   `toml:"verbose" json:"verbose"`
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSecs) * time.Second
}

// PollInterval returns the plugin poll cadence.
func (p PluginConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSecs) * time.Second
}

// RefreshMinInterval returns the minimum spacing of manual refreshes.
func (p PluginConfig) RefreshMinInterval() time.Duration {
	return time.Duration(p.RefreshMinIntervalMs) * time.Millisecond
}

// SignedIn reports whether an identity is configured.
func (a AuthConfig) SignedIn() bool {
	return strings.TrimSpace(a.UserID) != ""
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",

		Backend: BackendConfig{
			URL:             "http://localhost:5000",
			TimeoutSecs:     60,
			LoadConcurrency: 4,
		},

		Plugin: PluginConfig{
			PollIntervalSecs:     120,
			RefreshMinIntervalMs: 1000,
			RequireOnline:        false,
		},

		UI: UIConfig{
			Theme:        "dark",
			Markdown:     true,
			SidebarWidth: 28,
			AltScreen:    true,
		},

		DevServer: DevServerConfig{
			Addr: "127.0.0.1:5000",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the forgemind configuration directory. FORGEMIND_HOME
// overrides the default ~/.forgemind.
func ConfigDir() (string, error) {
	if dir := os.Getenv("FORGEMIND_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".forgemind"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath resolves the log file location.
func (c *Config) LogPath() (string, error) {
	if c.Logging.Path != "" {
		return c.Logging.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "forgemind.log"), nil
}

// DevDBPath resolves the dev server database location.
func (c *Config) DevDBPath() (string, error) {
	if c.DevServer.DBPath != "" {
		return c.DevServer.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "devserver.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600. The file carries
// the user id.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
//
// A file that exists but cannot be decoded does not stop startup: the
// defaults are returned together with the decode error.
func Load() (*Config, error) {
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			cfg := Default()
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg := Default()
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finish applies env overrides, fills gaps and validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full
// validation. Unlike Load, a decode failure is returned as an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// fillDefaults fills zero values that have no meaningful zero.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = defaults.Backend.URL
	}
	if cfg.Backend.TimeoutSecs <= 0 {
		cfg.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if cfg.Backend.LoadConcurrency <= 0 {
		cfg.Backend.LoadConcurrency = defaults.Backend.LoadConcurrency
	}
	if cfg.Plugin.PollIntervalSecs <= 0 {
		cfg.Plugin.PollIntervalSecs = defaults.Plugin.PollIntervalSecs
	}
	if cfg.Plugin.RefreshMinIntervalMs <= 0 {
		cfg.Plugin.RefreshMinIntervalMs = defaults.Plugin.RefreshMinIntervalMs
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.SidebarWidth <= 0 {
		cfg.UI.SidebarWidth = defaults.UI.SidebarWidth
	}
	if cfg.DevServer.Addr == "" {
		cfg.DevServer.Addr = defaults.DevServer.Addr
	}
	cfg.Backend.URL = strings.TrimSuffix(cfg.Backend.URL, "/")
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# forgemind configuration file\n")
	buf.WriteString("# Generated by forgemind - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validThemes = map[string]bool{"dark": true, "light": true, "auto": true}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.URL != "" {
		u, err := url.Parse(c.Backend.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, ValidationError{
				Field:   "backend.url",
				Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Backend.URL),
			})
		}
	}
	if c.Backend.TimeoutSecs < 0 || c.Backend.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: "must be between 0 and 600",
		})
	}
	if c.Backend.LoadConcurrency > 64 {
		errs = append(errs, ValidationError{
			Field:   "backend.load_concurrency",
			Message: "must be at most 64",
		})
	}
	if c.Plugin.PollIntervalSecs != 0 && c.Plugin.PollIntervalSecs < 5 {
		errs = append(errs, ValidationError{
			Field:   "plugin.poll_interval_secs",
			Message: "must be at least 5",
		})
	}
	if c.UI.Theme != "" && !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be dark, light or auto, got %q", c.UI.Theme),
		})
	}
	if c.UI.SidebarWidth < 0 || c.UI.SidebarWidth > 80 {
		errs = append(errs, ValidationError{
			Field:   "ui.sidebar_width",
			Message: "must be between 0 and 80",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FORGEMIND_BACKEND_URL: overrides backend.url
//   - FORGEMIND_USER_ID: overrides auth.user_id
//   - FORGEMIND_REQUIRE_PLUGIN: "1" or "true" enables plugin.require_online
//   - FORGEMIND_POLL_INTERVAL: overrides plugin.poll_interval_secs
//   - FORGEMIND_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("FORGEMIND_BACKEND_URL"); u != "" {
		c.Backend.URL = u
	}
	if id := os.Getenv("FORGEMIND_USER_ID"); id != "" {
		c.Auth.UserID = id
	}
	if v := os.Getenv("FORGEMIND_REQUIRE_PLUGIN"); v != "" {
		c.Plugin.RequireOnline = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("FORGEMIND_POLL_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Plugin.PollIntervalSecs = secs
		}
	}
	if theme := os.Getenv("FORGEMIND_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// Clone returns a copy of the configuration. Config holds no reference
// types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// UpdateAuth stores auth on a copy of the current global config, installs
// the copy and passes it to save. Fields installed by a reload since
// startup are kept.
func UpdateAuth(auth AuthConfig, save func(*Config) error) error {
	cfg := Global().Clone()
	cfg.Auth = auth
	SetGlobal(cfg)
	return save(cfg)
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
