// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/playground"
)

// Sender posts a message to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// programDispatcher forwards orchestrator events to the program so they
// are applied on the Update goroutine.
type programDispatcher struct {
	sender Sender
}

// NewDispatcher returns a dispatcher that wraps each event in an EventMsg
// and sends it to s.
func NewDispatcher(s Sender) playground.Dispatcher {
	return programDispatcher{sender: s}
}

// Dispatch implements playground.Dispatcher.
func (d programDispatcher) Dispatch(ev playground.Event) {
	d.sender.Send(EventMsg{Event: ev})
}

// WatchConfig reloads path on change and posts a ConfigReloadedMsg to s.
// It blocks until ctx is done.
func WatchConfig(ctx context.Context, s Sender, path string) error {
	return config.Watch(ctx, path, func(cfg *config.Config, err error) {
		s.Send(ConfigReloadedMsg{Config: cfg, Err: err})
	})
}
