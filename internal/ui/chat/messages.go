// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/playground"
)

// =============================================================================
// ORCHESTRATOR MESSAGES
// =============================================================================

// EventMsg carries one orchestrator event onto the Update goroutine.
type EventMsg struct {
	Event playground.Event
}

// =============================================================================
// GATEWAY MESSAGES
// =============================================================================

// ModelsLoadedMsg is sent when the model catalog request finishes.
type ModelsLoadedMsg struct {
	Models []model.ModelInfo
	Err    error
}

// catalogTimeout bounds the model catalog request started by Init.
const catalogTimeout = 30 * time.Second

// loadModelsCmd fetches the model catalog.
func loadModelsCmd(ctx context.Context, gw Gateway) tea.Cmd {
	return func() tea.Msg {
		if gw == nil {
			return ModelsLoadedMsg{}
		}
		ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
		defer cancel()
		models, err := gw.Catalog(ctx)
		return ModelsLoadedMsg{Models: models, Err: err}
	}
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigReloadedMsg is sent by the config watcher after the file changed.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// =============================================================================
// RESULT MESSAGES
// =============================================================================

// exportDoneMsg reports the result of an export to file.
type exportDoneMsg struct {
	Path string
	Err  error
}
