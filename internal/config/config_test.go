// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FORGEMIND_HOME", dir)
	for _, k := range []string{
		"FORGEMIND_BACKEND_URL", "FORGEMIND_USER_ID", "FORGEMIND_REQUIRE_PLUGIN",
		"FORGEMIND_POLL_INTERVAL", "FORGEMIND_THEME",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:5000", cfg.Backend.URL)
	assert.Equal(t, 120*time.Second, cfg.Plugin.PollInterval())
	assert.Equal(t, time.Second, cfg.Plugin.RefreshMinInterval())
	assert.False(t, cfg.Plugin.RequireOnline)
	assert.False(t, cfg.Auth.SignedIn())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Backend, cfg.Backend)
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	content := `
[backend]
url = "https://forge.example.com/"

[auth]
user_id = "u-42"

[plugin]
require_online = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://forge.example.com", cfg.Backend.URL, "trailing slash trimmed")
	assert.Equal(t, "u-42", cfg.Auth.UserID)
	assert.True(t, cfg.Plugin.RequireOnline)
	assert.Equal(t, 120, cfg.Plugin.PollIntervalSecs, "unset values keep defaults")

	info, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"auth":{"user_id":"json-user"}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json-user", cfg.Auth.UserID)
}

func TestLoad_BrokenFileFallsBackWithError(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[backend\nurl="), 0600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Default().Backend.URL, cfg.Backend.URL)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FORGEMIND_BACKEND_URL", "http://10.0.0.5:5000")
	t.Setenv("FORGEMIND_USER_ID", "env-user")
	t.Setenv("FORGEMIND_REQUIRE_PLUGIN", "true")
	t.Setenv("FORGEMIND_POLL_INTERVAL", "30")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "http://10.0.0.5:5000", cfg.Backend.URL)
	assert.Equal(t, "env-user", cfg.Auth.UserID)
	assert.True(t, cfg.Plugin.RequireOnline)
	assert.Equal(t, 30, cfg.Plugin.PollIntervalSecs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Backend.URL = "ftp://host" }, "backend.url"},
		{"no host", func(c *Config) { c.Backend.URL = "http://" }, "backend.url"},
		{"poll too fast", func(c *Config) { c.Plugin.PollIntervalSecs = 1 }, "plugin.poll_interval_secs"},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"huge sidebar", func(c *Config) { c.UI.SidebarWidth = 200 }, "ui.sidebar_width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestSaveAndLoadFromPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Auth.UserID = "saved-user"
	cfg.CAD.Default = "CATIA"
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-user", loaded.Auth.UserID)
	assert.Equal(t, "CATIA", loaded.CAD.Default)
}

func TestLoadFromPath_InvalidIsError(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestUpdateAuth_KeepsReloadedFields(t *testing.T) {
	dir := isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	path := filepath.Join(dir, "config.toml")
	startup := Default()
	SetGlobal(startup)

	edited := Default()
	edited.UI.Theme = "light"
	require.NoError(t, SaveTOML(edited, path))
	reloaded, err := LoadFromPath(path)
	require.NoError(t, err)
	SetGlobal(reloaded)

	err = UpdateAuth(AuthConfig{UserID: "u2"}, func(c *Config) error { return SaveTOML(c, path) })
	require.NoError(t, err)

	onDisk, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "light", onDisk.UI.Theme)
	assert.Equal(t, "u2", onDisk.Auth.UserID)
	assert.Equal(t, "u2", Global().Auth.UserID)
	assert.Empty(t, startup.Auth.UserID, "the startup config is not mutated")
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	})
	require.NoError(t, err)
	w.WithDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Close()

	cfg := Default()
	cfg.UI.Theme = "light"
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case got := <-reloaded:
		assert.Equal(t, "light", got.UI.Theme)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not reload the config")
	}
}
