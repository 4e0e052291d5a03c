// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - Machine-readable output for --json.
//
// Every command answers with the same envelope so scripts can check
// "success" before looking at "data".
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/aihub-tui/internal/model"
)

// JSONResponse is the envelope printed in JSON mode.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response to w, indented.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// =============================================================================
// COMMAND DATA
// =============================================================================

// VersionData is the payload of "aihub version --json".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// ModelsData is the payload of "aihub models --json".
type ModelsData struct {
	Gateway string            `json:"gateway"`
	Count   int               `json:"count"`
	Models  []model.ModelInfo `json:"models"`
}

// PresetData is one entry of "aihub presets --json".
type PresetData struct {
	Key          string  `json:"key"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Temperature  float64 `json:"temperature"`
	SystemPrompt string  `json:"system_prompt"`
}

// AskData is the payload of "aihub ask --json".
type AskData struct {
	Model     string            `json:"model"`
	Prompt    string            `json:"prompt"`
	Content   string            `json:"content"`
	Status    string            `json:"status"`
	Malformed int               `json:"malformed_frames,omitempty"`
	Stats     *model.Statistics `json:"stats,omitempty"`
}

// ConfigData is the payload of "aihub config show --json".
type ConfigData struct {
	Path     string            `json:"path"`
	Exists   bool              `json:"exists"`
	Settings map[string]string `json:"settings"`
}
