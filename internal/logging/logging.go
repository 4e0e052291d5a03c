// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the slog loggers used by the CLI and the TUI.
//
// While the TUI runs, the terminal belongs to Bubble Tea, so logs go to a
// file (~/.aihub/aihub.log unless log.file says otherwise). CLI commands
// log to stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/config"
)

// Mode selects where logs go when no file is configured.
type Mode int

const (
	// ModeCLI logs to stderr.
	ModeCLI Mode = iota
	// ModeTUI logs to the default log file.
	ModeTUI
)

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to w in the configured format and level.
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Open resolves the destination for mode and returns the logger together
// with a close function for any file it opened.
func Open(cfg config.LogConfig, mode Mode) (*slog.Logger, func() error, error) {
	path := cfg.File
	if path == "" && mode == ModeTUI {
		p, err := config.LogPath()
		if err != nil {
			return nil, nil, err
		}
		path = p
	}
	if path == "" {
		return New(os.Stderr, cfg), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(f, cfg), f.Close, nil
}
