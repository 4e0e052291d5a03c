// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the override variables for the duration of a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvURL, EnvAPIKey, EnvModel, EnvLogLevel, EnvConfigPath} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:4000", cfg.Gateway.URL)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout.Duration)
	assert.Equal(t, 2.0, cfg.Gateway.RateLimit)
	assert.Equal(t, 4, cfg.Gateway.Burst)
	assert.Empty(t, cfg.Playground.Model)
	assert.Equal(t, "You are a helpful AI assistant.", cfg.Playground.SystemPrompt)
	assert.Equal(t, "Hello! How can I help you today?", cfg.Playground.Greeting)
	assert.Equal(t, "balanced", cfg.Playground.Preset)
	assert.Equal(t, 16, cfg.Playground.MaxMalformedFrames)
	assert.Equal(t, 300*time.Millisecond, cfg.Playground.ProgressInterval.Duration)
	assert.True(t, cfg.UI.Markdown)
	assert.Equal(t, "auto", cfg.UI.GlamourStyle)
	assert.Equal(t, 100, cfg.UI.WordWrap)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromPath_TOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[gateway]
url = "https://gateway.example.com/"
timeout = "5s"
rate_limit = 0.0

[playground]
model = "gpt-4o"
preset = "Precise"
progress_interval = "1s"

[ui]
markdown = false
word_wrap = 80

[log]
level = "DEBUG"
format = "json"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example.com", cfg.Gateway.URL)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout.Duration)
	assert.Zero(t, cfg.Gateway.RateLimit)
	assert.Equal(t, "gpt-4o", cfg.Playground.Model)
	assert.Equal(t, "precise", cfg.Playground.Preset)
	assert.Equal(t, time.Second, cfg.Playground.ProgressInterval.Duration)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, 80, cfg.UI.WordWrap)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Unset keys keep their defaults.
	assert.Equal(t, "You are a helpful AI assistant.", cfg.Playground.SystemPrompt)
	assert.Equal(t, 16, cfg.Playground.MaxMalformedFrames)
}

func TestLoadFromPath_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[gateway\nurl = 1", "failed to parse"},
		{"unknown key", "[gateway]\nurll = \"http://x\"", "unknown keys"},
		{"bad duration", "[gateway]\ntimeout = \"soon\"", "invalid duration"},
		{"invalid level", "[log]\nlevel = \"loud\"", "log.level"},
		{"negative wrap", "[ui]\nword_wrap = -1", "ui.word_wrap"},
		{"unknown preset", "[playground]\npreset = \"wild\"", "playground.preset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := filepath.Join(t.TempDir(), "config.toml")
			writeFile(t, path, tt.content)

			_, err := LoadFromPath(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromPath_TightensPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[gateway]\napi_key = \"sk-secret\"\n"), 0o644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_HonorsConfigPathEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, "[playground]\nmodel = \"claude-3\"\n")
	t.Setenv(EnvConfigPath, path)

	got, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, path, got)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "claude-3", cfg.Playground.Model)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[gateway]\nurl = \"http://file:4000\"\n[playground]\nmodel = \"from-file\"\n")

	t.Setenv(EnvURL, "http://env:9000/")
	t.Setenv(EnvAPIKey, " sk-env ")
	t.Setenv(EnvModel, "from-env")
	t.Setenv(EnvLogLevel, "WARN")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env:9000", cfg.Gateway.URL)
	assert.Equal(t, "sk-env", cfg.Gateway.APIKey)
	assert.Equal(t, "from-env", cfg.Playground.Model)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnvOverrides_InvalidLevelFailsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "chatty")

	_, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{"log.level"}, verrs.Fields())
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{"empty url", func(c *Config) { c.Gateway.URL = "" }, []string{"gateway.url"}},
		{"bad url", func(c *Config) { c.Gateway.URL = "not a url" }, []string{"gateway.url"}},
		{"negative rate", func(c *Config) { c.Gateway.RateLimit = -1 }, []string{"gateway.rate_limit"}},
		{"rate without burst", func(c *Config) { c.Gateway.Burst = 0 }, []string{"gateway.burst"}},
		{"negative timeout", func(c *Config) { c.Gateway.Timeout.Duration = -time.Second }, []string{"gateway.timeout"}},
		{"negative malformed", func(c *Config) { c.Playground.MaxMalformedFrames = -1 }, []string{"playground.max_malformed_frames"}},
		{"tiny interval", func(c *Config) { c.Playground.ProgressInterval.Duration = time.Millisecond }, []string{"playground.progress_interval"}},
		{"style", func(c *Config) { c.UI.GlamourStyle = "neon" }, []string{"ui.glamour_style"}},
		{"format", func(c *Config) { c.Log.Format = "xml" }, []string{"log.format"}},
		{
			"several",
			func(c *Config) {
				c.Log.Level = "x"
				c.Log.Format = "y"
			},
			[]string{"log.level", "log.format"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			assert.ElementsMatch(t, tt.fields, verrs.Fields())
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	errs := ValidateErrors{
		{Field: "log.level", Message: "bad"},
		{Field: "ui.word_wrap", Message: "worse"},
	}
	assert.Equal(t, "log.level: bad; ui.word_wrap: worse", errs.Error())
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
}

// =============================================================================
// SAVE
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Gateway.APIKey = "sk-saved"
	cfg.Playground.Model = "gemini-pro"
	cfg.Playground.ProgressInterval.Duration = 250 * time.Millisecond
	cfg.UI.Markdown = false

	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# aihub configuration file"))
	assert.Contains(t, string(data), `progress_interval = "250ms"`)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

// =============================================================================
// GET/SET
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("gateway.url", "http://other:1234/"))
	require.NoError(t, cfg.Set("gateway.timeout", "45s"))
	require.NoError(t, cfg.Set("ui.markdown", "false"))
	require.NoError(t, cfg.Set("Playground.Preset", "Creative"))
	require.NoError(t, cfg.Set("gateway.api_key", "sk-1"))

	for key, want := range map[string]string{
		"gateway.url":       "http://other:1234",
		"gateway.timeout":   "45s",
		"ui.markdown":       "false",
		"playground.preset": "creative",
		"gateway.api_key":   "[REDACTED]",
	} {
		got, err := cfg.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	assert.Error(t, cfg.Set("gateway.burst", "many"))
	assert.Error(t, cfg.Set("nope.key", "1"))
	_, err := cfg.Get("nope.key")
	assert.Error(t, err)
}

func TestKeys_AllGettable(t *testing.T) {
	cfg := Default()
	for _, k := range Keys() {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

// =============================================================================
// UTILITY
// =============================================================================

func TestString_RedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Gateway.APIKey = "sk-very-secret"

	out := cfg.String()
	assert.NotContains(t, out, "sk-very-secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "sk-very-secret", cfg.Gateway.APIKey)
}

func TestClone_Independent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Playground.Model = "changed"
	assert.Empty(t, cfg.Playground.Model)
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnChange(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[playground]\nmodel = \"first\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloads := make(chan *Config, 8)
	done := make(chan error, 1)
	go func() {
		done <- WatchWithDebounce(ctx, path, 20*time.Millisecond, func(cfg *Config, err error) {
			if err == nil {
				reloads <- cfg
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	cfg := Default()
	cfg.Playground.Model = "second"
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case got := <-reloads:
		assert.Equal(t, "second", got.Playground.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_ReportsInvalidFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs := make(chan error, 8)
	go WatchWithDebounce(ctx, path, 20*time.Millisecond, func(_ *Config, err error) {
		if err != nil {
			errs <- err
		}
	})

	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "[log]\nlevel = \"loud\"\n")

	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "log.level")
	case <-time.After(5 * time.Second):
		t.Fatal("no error observed")
	}
}
