// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aihub-tui/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Level: "warn", Format: "text"})

	logger.Info("hidden")
	logger.Warn("shown", "status", 503)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "status=503")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Level: "debug", Format: "json"})

	logger.Debug("session started", "model", "gpt-4o")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "session started", rec["msg"])
	assert.Equal(t, "gpt-4o", rec["model"])
	assert.Equal(t, "DEBUG", rec["level"])
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "aihub.log")

	logger, closeFn, err := Open(config.LogConfig{Level: "info", Format: "text", File: path}, ModeCLI)
	require.NoError(t, err)
	logger.Info("written to file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestOpen_CLIDefaultsToStderr(t *testing.T) {
	logger, closeFn, err := Open(config.LogConfig{Level: "info"}, ModeCLI)
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closeFn())
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(t.Context(), slog.LevelError))
}
