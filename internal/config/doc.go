// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and saves the aihub configuration file.
//
// # Configuration Precedence
//
// Values are resolved in this order, later entries winning:
//   - Built-in defaults
//   - ~/.aihub/config.toml (or the file named by AIHUB_CONFIG)
//   - Environment variables (AIHUB_URL, AIHUB_API_KEY, AIHUB_MODEL, AIHUB_LOG_LEVEL)
//
// Command-line flags are applied by the caller on top of the result.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := gateway.NewClient(cfg.Gateway.APIKey).WithBaseURL(cfg.Gateway.URL)
//
// Watch reloads the file on change:
//
//	go config.Watch(ctx, path, func(cfg *config.Config, err error) { ... })
package config
