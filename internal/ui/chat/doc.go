// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the playground view for the aihub TUI.

The package implements a Bubble Tea model around a playground.Orchestrator.
The orchestrator's request goroutine never touches the model directly: its
events are posted to the program with Program.Send and folded into the
conversation on the Update goroutine, together with key presses, model
listings and configuration reloads.

# Layout

  - Header with the selected model, its provider and the session state
  - Transcript viewport with markdown-rendered replies and stream statistics
  - Settings pane with model, preset, temperature, system prompt and the
    generation parameters as editable JSON
  - Composer with a character count and token estimate
  - Status bar with short help

On wide terminals the settings pane sits beside the transcript. Narrower
terminals show one of the two, switched with Tab.

# Usage

	m := chat.New(chat.Options{Config: cfg, Gateway: client})
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.Orchestrator().SetDispatcher(chat.NewDispatcher(p))
	_, err := p.Run()

Run does the same and also starts the configuration watcher.
*/
package chat
