// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the playground in the alternate screen and blocks until the
// user quits. When configPath is not empty the file is watched and changes
// are applied while running.
func Run(ctx context.Context, opts Options, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts.Context = ctx
	m := New(opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	m.Orchestrator().SetDispatcher(NewDispatcher(p))
	defer m.Orchestrator().Close()

	if configPath != "" {
		go func() {
			if err := WatchConfig(ctx, p, configPath); err != nil {
				m.logger.Warn("config watcher stopped", "error", err)
			}
		}()
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("running playground: %w", err)
	}
	return nil
}
