// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
	require.Equal(t, 60, cfg.Server.TimeoutSecs)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	require.Equal(t, Default().Server.BaseURL, cfg.Server.BaseURL)
}

func TestLoadFromPath_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
base_url = "https://chat.example.com"
timeout_secs = 30
chat_per_minute = 10

[log]
level = "debug"
`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "https://chat.example.com", cfg.Server.BaseURL)
	require.Equal(t, 30, cfg.Server.TimeoutSecs)
	require.Equal(t, 10, cfg.Server.ChatPerMinute)
	require.Equal(t, "debug", cfg.Log.Level)
	// Unset sections keep defaults.
	require.Equal(t, ".", cfg.Export.Dir)
}

func TestLoadFromPath_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
base_url = "not a url"
`), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
}

func TestLoadFromPath_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \"1.0.0\"\n"), 0644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHATTERM_SERVER_URL", "https://override.example.com")
	t.Setenv("CHATTERM_TIMEOUT_SECS", "15")
	t.Setenv("CHATTERM_LOG_LEVEL", "warn")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, "https://override.example.com", cfg.Server.BaseURL)
	require.Equal(t, 15, cfg.Server.TimeoutSecs)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnvOverrides_IgnoresBadTimeout(t *testing.T) {
	t.Setenv("CHATTERM_TIMEOUT_SECS", "not-a-number")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, 60, cfg.Server.TimeoutSecs)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"https url", func(c *Config) { c.Server.BaseURL = "https://example.com" }, false},
		{"relative url", func(c *Config) { c.Server.BaseURL = "example.com" }, true},
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://example.com" }, true},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSecs = 0 }, true},
		{"negative rate", func(c *Config) { c.Server.ChatPerMinute = -1 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSaveToPathRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "https://chat.example.com"
	require.NoError(t, SaveToPath(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "https://chat.example.com", loaded.Server.BaseURL)
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveToPath(Default(), path))

	var mu sync.Mutex
	var got *Config
	stop, err := Watch(path, func(cfg *Config) {
		mu.Lock()
		got = cfg
		mu.Unlock()
	})
	require.NoError(t, err)
	defer stop()

	updated := Default()
	updated.Server.BaseURL = "https://reloaded.example.com"
	require.NoError(t, SaveToPath(updated, path))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil && got.Server.BaseURL == "https://reloaded.example.com"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatchIgnoresInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveToPath(Default(), path))

	var mu sync.Mutex
	calls := 0
	stop, err := Watch(path, func(cfg *Config) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("[server]\nbase_url = \"nope\"\n"), 0600))
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Zero(t, calls, "invalid config must not be delivered")
}
