// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/gateway"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/playground"
	"github.com/jeranaias/aihub-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the full application configuration.
type Config struct {
	Gateway    GatewayConfig    `toml:"gateway"`
	Playground PlaygroundConfig `toml:"playground"`
	UI         UIConfig         `toml:"ui"`
	Log        LogConfig        `toml:"log"`
}

// GatewayConfig describes how to reach the LLM gateway.
type GatewayConfig struct {
	// URL is the gateway base URL, without the /v1 suffix.
	URL string `toml:"url" validate:"required,url"`

	// APIKey is sent as a bearer token. Prefer AIHUB_API_KEY over storing it here.
	APIKey string `toml:"api_key"`

	// Timeout bounds non-streaming calls such as model listing.
	Timeout Duration `toml:"timeout"`

	// RateLimit is the client-side request rate in requests per second. 0 disables it.
	RateLimit float64 `toml:"rate_limit" validate:"gte=0"`
	Burst     int     `toml:"burst" validate:"gte=0"`
}

// PlaygroundConfig holds the starting state of a playground session.
type PlaygroundConfig struct {
	// Model is the initial model. Empty selects the first listed model.
	Model        string `toml:"model"`
	SystemPrompt string `toml:"system_prompt"`
	Greeting     string `toml:"greeting"`
	Preset       string `toml:"preset"`

	// MaxMalformedFrames fails a session after this many undecodable
	// frames. 0 disables the limit.
	MaxMalformedFrames int      `toml:"max_malformed_frames" validate:"gte=0"`
	ProgressInterval   Duration `toml:"progress_interval"`
}

// UIConfig holds TUI rendering options.
type UIConfig struct {
	Markdown     bool   `toml:"markdown"`
	GlamourStyle string `toml:"glamour_style" validate:"oneof=auto dark light notty ascii dracula pink tokyo-night"`
	WordWrap     int    `toml:"word_wrap" validate:"gte=0,lte=1000"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`

	// File is the log destination. Empty means ~/.aihub/aihub.log in the
	// TUI and stderr in CLI modes.
	File string `toml:"file"`
}

// Duration is a time.Duration stored as a string such as "30s" or "300ms".
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default values not owned by another package.
const (
	DefaultRateLimit    = 2.0
	DefaultBurst        = 4
	DefaultGlamourStyle = "auto"
	DefaultWordWrap     = 100
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			URL:       gateway.DefaultBaseURL,
			Timeout:   Duration{gateway.DefaultTimeout},
			RateLimit: DefaultRateLimit,
			Burst:     DefaultBurst,
		},
		Playground: PlaygroundConfig{
			SystemPrompt:       conversation.DefaultSystemPrompt,
			Greeting:           conversation.DefaultGreeting,
			Preset:             genconfig.DefaultPreset,
			MaxMalformedFrames: playground.DefaultMaxMalformedFrames,
			ProgressInterval:   Duration{playground.DefaultProgressInterval},
		},
		UI: UIConfig{
			Markdown:     true,
			GlamourStyle: DefaultGlamourStyle,
			WordWrap:     DefaultWordWrap,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "AIHUB_CONFIG"

// ConfigDir returns the aihub configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aihub"), nil
}

// ConfigPath returns the config file path, honoring AIHUB_CONFIG.
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogPath returns the default log file used by the TUI.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "aihub.log"), nil
}

// ensureSecurePermissions tightens a config file holding an API key to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the config file at ConfigPath. A missing file yields the
// defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config file at path, then applies defaults for
// unset fields, environment overrides and validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg.SetDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return cfg, nil
}

// LoadTOML decodes the TOML file at path over cfg. Unknown keys are an
// error so typos do not silently fall back to defaults.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if cfg.Gateway.APIKey != "" {
		if err := ensureSecurePermissions(path); err != nil {
			return err
		}
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero setting.
func (c *Config) SetDefaults() {
	def := Default()
	if strings.TrimSpace(c.Gateway.URL) == "" {
		c.Gateway.URL = def.Gateway.URL
	}
	if c.Gateway.Timeout.Duration == 0 {
		c.Gateway.Timeout = def.Gateway.Timeout
	}
	if c.Playground.SystemPrompt == "" {
		c.Playground.SystemPrompt = def.Playground.SystemPrompt
	}
	if c.Playground.Greeting == "" {
		c.Playground.Greeting = def.Playground.Greeting
	}
	if c.Playground.Preset == "" {
		c.Playground.Preset = def.Playground.Preset
	}
	if c.Playground.ProgressInterval.Duration == 0 {
		c.Playground.ProgressInterval = def.Playground.ProgressInterval
	}
	if c.UI.GlamourStyle == "" {
		c.UI.GlamourStyle = def.UI.GlamourStyle
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
	c.Playground.Preset = strings.ToLower(strings.TrimSpace(c.Playground.Preset))
	c.Gateway.URL = strings.TrimRight(strings.TrimSpace(c.Gateway.URL), "/")
}

// =============================================================================
// SAVE
// =============================================================================

const fileHeader = `# aihub configuration file
# Environment overrides: AIHUB_URL, AIHUB_API_KEY, AIHUB_MODEL, AIHUB_LOG_LEVEL

`

// Encode renders cfg as TOML with the file header.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes cfg to ConfigPath.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	data, err := Encode(cfg)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0o600, 0o700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// Environment variables read by ApplyEnvOverrides.
const (
	EnvURL      = "AIHUB_URL"
	EnvAPIKey   = "AIHUB_API_KEY"
	EnvModel    = "AIHUB_MODEL"
	EnvLogLevel = "AIHUB_LOG_LEVEL"
)

// ApplyEnvOverrides applies environment variable overrides to the config.
//
//   - AIHUB_URL: gateway.url
//   - AIHUB_API_KEY: gateway.api_key
//   - AIHUB_MODEL: playground.model
//   - AIHUB_LOG_LEVEL: log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvURL); v != "" {
		c.Gateway.URL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Gateway.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Playground.Model = strings.TrimSpace(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
}

// =============================================================================
// GET/SET (DOT NOTATION)
// =============================================================================

// Keys lists the settable keys in file order.
func Keys() []string {
	return []string{
		"gateway.url", "gateway.api_key", "gateway.timeout", "gateway.rate_limit", "gateway.burst",
		"playground.model", "playground.system_prompt", "playground.greeting", "playground.preset",
		"playground.max_malformed_frames", "playground.progress_interval",
		"ui.markdown", "ui.glamour_style", "ui.word_wrap",
		"log.level", "log.format", "log.file",
	}
}

// Get returns the value at a dot-notation key such as "gateway.url".
// The API key is returned masked.
func (c *Config) Get(key string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "gateway.url":
		return c.Gateway.URL, nil
	case "gateway.api_key":
		if c.Gateway.APIKey == "" {
			return "", nil
		}
		return "[REDACTED]", nil
	case "gateway.timeout":
		return c.Gateway.Timeout.String(), nil
	case "gateway.rate_limit":
		return strconv.FormatFloat(c.Gateway.RateLimit, 'g', -1, 64), nil
	case "gateway.burst":
		return strconv.Itoa(c.Gateway.Burst), nil
	case "playground.model":
		return c.Playground.Model, nil
	case "playground.system_prompt":
		return c.Playground.SystemPrompt, nil
	case "playground.greeting":
		return c.Playground.Greeting, nil
	case "playground.preset":
		return c.Playground.Preset, nil
	case "playground.max_malformed_frames":
		return strconv.Itoa(c.Playground.MaxMalformedFrames), nil
	case "playground.progress_interval":
		return c.Playground.ProgressInterval.String(), nil
	case "ui.markdown":
		return strconv.FormatBool(c.UI.Markdown), nil
	case "ui.glamour_style":
		return c.UI.GlamourStyle, nil
	case "ui.word_wrap":
		return strconv.Itoa(c.UI.WordWrap), nil
	case "log.level":
		return c.Log.Level, nil
	case "log.format":
		return c.Log.Format, nil
	case "log.file":
		return c.Log.File, nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Set parses value and stores it at key. The result is not validated;
// call Validate before saving.
func (c *Config) Set(key, value string) error {
	var err error
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "gateway.url":
		c.Gateway.URL = strings.TrimRight(strings.TrimSpace(value), "/")
	case "gateway.api_key":
		c.Gateway.APIKey = strings.TrimSpace(value)
	case "gateway.timeout":
		err = c.Gateway.Timeout.UnmarshalText([]byte(value))
	case "gateway.rate_limit":
		c.Gateway.RateLimit, err = strconv.ParseFloat(value, 64)
	case "gateway.burst":
		c.Gateway.Burst, err = strconv.Atoi(value)
	case "playground.model":
		c.Playground.Model = strings.TrimSpace(value)
	case "playground.system_prompt":
		c.Playground.SystemPrompt = value
	case "playground.greeting":
		c.Playground.Greeting = value
	case "playground.preset":
		c.Playground.Preset = strings.ToLower(strings.TrimSpace(value))
	case "playground.max_malformed_frames":
		c.Playground.MaxMalformedFrames, err = strconv.Atoi(value)
	case "playground.progress_interval":
		err = c.Playground.ProgressInterval.UnmarshalText([]byte(value))
	case "ui.markdown":
		c.UI.Markdown, err = strconv.ParseBool(value)
	case "ui.glamour_style":
		c.UI.GlamourStyle = strings.TrimSpace(value)
	case "ui.word_wrap":
		c.UI.WordWrap, err = strconv.Atoi(value)
	case "log.level":
		c.Log.Level = strings.ToLower(strings.TrimSpace(value))
	case "log.format":
		c.Log.Format = strings.ToLower(strings.TrimSpace(value))
	case "log.file":
		c.Log.File = strings.TrimSpace(value)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// =============================================================================
// UTILITY
// =============================================================================

// Clone returns a copy of the configuration. Config holds no reference
// types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as TOML with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Gateway.APIKey != "" {
		safe.Gateway.APIKey = "[REDACTED]"
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(safe); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
