// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Setup shared by the commands that talk to the gateway.

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/gateway"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/logging"
	"github.com/jeranaias/aihub-tui/internal/model"
)

// Catalog lists the models a gateway offers.
type Catalog interface {
	Catalog(ctx context.Context) ([]model.ModelInfo, error)
}

// LoadConfig reads the config file and applies the command-line overrides.
// It returns the path that was read.
func LoadConfig(args Args) (*config.Config, string, error) {
	path, err := config.ConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, path, err
	}
	if err := ApplyOverrides(cfg, args); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// ApplyOverrides copies flag values over cfg and validates the result.
// A preset given without --system keeps the preset's own system prompt.
func ApplyOverrides(cfg *config.Config, args Args) error {
	if args.URL != "" {
		cfg.Gateway.URL = strings.TrimRight(strings.TrimSpace(args.URL), "/")
	}
	if args.APIKey != "" {
		cfg.Gateway.APIKey = strings.TrimSpace(args.APIKey)
	}
	if args.Model != "" {
		cfg.Playground.Model = strings.TrimSpace(args.Model)
	}
	if args.Preset != "" {
		cfg.Playground.Preset = args.Preset
		if args.System == "" {
			cfg.Playground.SystemPrompt = ""
		}
	}
	if args.System != "" {
		cfg.Playground.SystemPrompt = args.System
	}
	if args.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// OpenLogger opens the CLI logger. Without --verbose only warnings reach
// stderr so they do not mix with replies.
func OpenLogger(cfg *config.Config, args Args, mode logging.Mode) (*slog.Logger, func() error, error) {
	logCfg := cfg.Log
	if mode == logging.ModeCLI && !args.Verbose && logCfg.File == "" {
		logCfg.Level = "warn"
	}
	return logging.Open(logCfg, mode)
}

// Connect builds a gateway client from configuration.
func Connect(cfg *config.Config, logger *slog.Logger) *gateway.Client {
	return gateway.NewClient(cfg.Gateway.APIKey).
		WithBaseURL(cfg.Gateway.URL).
		WithTimeout(cfg.Gateway.Timeout.Duration).
		WithRateLimit(cfg.Gateway.RateLimit, cfg.Gateway.Burst).
		WithLogger(logger)
}

// NewSettings builds the generation settings from configuration and the
// --temperature and --params flags.
func NewSettings(cfg *config.Config, args Args) (*genconfig.Manager, error) {
	m := genconfig.NewManager()
	if cfg.Playground.Preset != "" {
		if _, err := m.ApplyPreset(cfg.Playground.Preset); err != nil {
			return nil, NewValidationError("preset", cfg.Playground.Preset, err.Error())
		}
	}
	if cfg.Playground.SystemPrompt != "" {
		m.SetSystemPrompt(cfg.Playground.SystemPrompt)
	}
	if args.Params != "" {
		if err := m.SetFromText(args.Params); err != nil {
			return nil, fmt.Errorf("--params: %w", err)
		}
	}
	if args.Temperature != nil {
		if err := m.SetField(genconfig.FieldTemperature, *args.Temperature); err != nil {
			return nil, fmt.Errorf("--temperature: %w", err)
		}
	}
	m.SetModel(cfg.Playground.Model)
	return m, nil
}

// resolveModel selects the first catalog model when none is configured.
func resolveModel(ctx context.Context, m *genconfig.Manager, catalog Catalog) error {
	if m.Model() != "" {
		return nil
	}
	if catalog == nil {
		return gateway.ErrNoModel
	}
	models, err := catalog.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("no model configured and listing models failed: %w", err)
	}
	if len(models) == 0 {
		return &NotFoundError{Resource: "models on the gateway"}
	}
	m.SetModel(models[0].ID)
	return nil
}
