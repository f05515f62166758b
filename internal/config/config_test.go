// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv isolates a test from FLYBUDDY_* variables set in the environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FLYBUDDY_ENDPOINT", "FLYBUDDY_TIMEOUT", "FLYBUDDY_OFFLINE",
		"FLYBUDDY_STORAGE", "FLYBUDDY_DATA_DIR", "FLYBUDDY_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("FLYBUDDY_HOME", t.TempDir())
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:5000", cfg.Endpoint.URL)
	assert.Equal(t, 30*time.Second, cfg.Endpoint.Timeout())
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Session.AutoSaveSecs)
	assert.True(t, cfg.Session.SendFeedback)
	assert.Equal(t, "auto", cfg.UI.Theme)
	assert.True(t, cfg.UI.Markdown)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		field   string
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, "", false},
		{"https endpoint", func(c *Config) { c.Endpoint.URL = "https://api.example.com" }, "", false},
		{"bad scheme", func(c *Config) { c.Endpoint.URL = "ftp://example.com" }, "endpoint.url", true},
		{"no host", func(c *Config) { c.Endpoint.URL = "not a url" }, "endpoint.url", true},
		{"zero timeout", func(c *Config) { c.Endpoint.TimeoutSecs = 0 }, "endpoint.timeout_secs", true},
		{"huge timeout", func(c *Config) { c.Endpoint.TimeoutSecs = 601 }, "endpoint.timeout_secs", true},
		{"negative rate", func(c *Config) { c.Endpoint.RateLimit = -1 }, "endpoint.rate_limit", true},
		{"zero burst", func(c *Config) { c.Endpoint.Burst = 0 }, "endpoint.burst", true},
		{"sqlite backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "", false},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, "storage.backend", true},
		{"negative quota", func(c *Config) { c.Storage.QuotaBytes = -1 }, "storage.quota_bytes", true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level", true},
		{"zero autosave", func(c *Config) { c.Session.AutoSaveSecs = 0 }, "session.autosave_secs", true},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme", true},
		{"negative width", func(c *Config) { c.UI.Width = -5 }, "ui.width", true},
		{"negative latency", func(c *Config) { c.Server.LatencyMs = -1 }, "server.latency_ms", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestLoadFromPath_FillsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[endpoint]
url = "http://127.0.0.1:8080"

[ui]
markdown = false
`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:8080", cfg.Endpoint.URL)
	assert.Equal(t, 30, cfg.Endpoint.TimeoutSecs)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.False(t, cfg.UI.Markdown, "explicit false must survive defaulting")
	assert.True(t, cfg.Session.SendFeedback, "absent bool takes its default")
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	garbled := filepath.Join(dir, "garbled.toml")
	require.NoError(t, os.WriteFile(garbled, []byte("[endpoint\nurl ="), 0600))
	_, err := LoadFromPath(garbled)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("[storage]\nbackend = \"tape\"\n"), 0600))
	_, err = LoadFromPath(invalid)
	var verrs ValidateErrors
	assert.ErrorAs(t, err, &verrs)

	_, err = LoadFromPath(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Endpoint, cfg.Endpoint)
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLYBUDDY_ENDPOINT", "https://travel.example.com")
	t.Setenv("FLYBUDDY_TIMEOUT", "45")
	t.Setenv("FLYBUDDY_OFFLINE", "yes")
	t.Setenv("FLYBUDDY_STORAGE", "sqlite")
	t.Setenv("FLYBUDDY_DATA_DIR", "/tmp/flybuddy-data")
	t.Setenv("FLYBUDDY_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "https://travel.example.com", cfg.Endpoint.URL)
	assert.Equal(t, 45, cfg.Endpoint.TimeoutSecs)
	assert.True(t, cfg.Endpoint.Offline)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/flybuddy-data", cfg.Storage.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvOverrides_DurationTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("FLYBUDDY_TIMEOUT", "2m")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 120, cfg.Endpoint.TimeoutSecs)

	t.Setenv("FLYBUDDY_TIMEOUT", "soon")
	cfg = Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 30, cfg.Endpoint.TimeoutSecs, "unparseable values are ignored")
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Endpoint.URL = "http://localhost:9000"
	cfg.Storage.Backend = "sqlite"
	cfg.UI.Markdown = false
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.True(t, cfg.Equal(loaded), "saved and loaded config differ:\n%s\n%s", cfg, loaded)
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("endpoint.url")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", v)

	require.NoError(t, cfg.Set("endpoint.timeout_secs", "12"))
	assert.Equal(t, 12, cfg.Endpoint.TimeoutSecs)

	require.NoError(t, cfg.Set("endpoint.rate_limit", "2.5"))
	assert.Equal(t, 2.5, cfg.Endpoint.RateLimit)

	require.NoError(t, cfg.Set("ui.markdown", "false"))
	assert.False(t, cfg.UI.Markdown)

	require.NoError(t, cfg.Set("server.allowed_origins", "http://a.test, http://b.test"))
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)

	require.NoError(t, cfg.Set("storage.quota_bytes", int64(2048)))
	assert.Equal(t, int64(2048), cfg.Storage.QuotaBytes)

	assert.Error(t, cfg.Set("endpoint.timeout_secs", "abc"))
	assert.Error(t, cfg.Set("endpoint.nope", "x"))
	assert.Error(t, cfg.Set("version.sub", "x"))
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	assert.Contains(t, keys, "version")
	assert.Contains(t, keys, "endpoint.url")
	assert.Contains(t, keys, "storage.backend")
	assert.Contains(t, keys, "ui.theme")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	require.True(t, cfg.Equal(clone))

	clone.Server.AllowedOrigins[0] = "http://changed.test"
	clone.Endpoint.URL = "http://other:1"
	assert.Equal(t, "*", cfg.Server.AllowedOrigins[0])
	assert.Equal(t, "http://localhost:5000", cfg.Endpoint.URL)
}

func TestConfig_Paths(t *testing.T) {
	clearEnv(t)
	home := os.Getenv("FLYBUDDY_HOME")
	cfg := Default()

	dataDir, err := cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data"), dataDir)

	logPath, err := cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "flybuddy.log"), logPath)

	cfg.Log.File = "stderr"
	logPath, err = cfg.LogPath()
	require.NoError(t, err)
	assert.Equal(t, "stderr", logPath)

	cfg.Storage.DataDir = "/srv/flybuddy"
	dataDir, err = cfg.DataDir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/flybuddy", dataDir)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.toml"), path)
}
