// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/logging"
	"github.com/jeranaias/aihub-tui/internal/ui/chat"
)

// HandleTUI starts the playground. Logs go to a file while it runs and
// the config file is watched for changes.
func HandleTUI(ctx context.Context, args Args) error {
	if err := RequiresTTY("run the playground"); err != nil {
		return err
	}
	cfg, path, err := LoadConfig(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := OpenLogger(cfg, args, logging.ModeTUI)
	if err != nil {
		return err
	}
	defer closeLog()

	settings, err := NewSettings(cfg, args)
	if err != nil {
		return err
	}

	logger.Info("starting playground", "gateway", cfg.Gateway.URL, "model", settings.Model(), "config", path)
	err = chat.Run(ctx, chat.Options{
		Config:   cfg,
		Gateway:  Connect(cfg, logger),
		Settings: settings,
		Logger:   logger,
		Connect: func(c *config.Config) chat.Gateway {
			return Connect(c, logger)
		},
	}, path)
	if err != nil {
		logger.Error("playground exited", "error", err)
	}
	return err
}
