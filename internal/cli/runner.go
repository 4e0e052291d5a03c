// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"log/slog"

	"github.com/jeranaias/aihub-tui/internal/config"
	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/playground"
)

// eventBuffer absorbs bursts of deltas while stdout is slow.
const eventBuffer = 64

// runner drives an orchestrator from a single goroutine. Request events
// are queued on a channel and applied by turn, so the machine is only
// changed by the caller.
type runner struct {
	orch   *playground.Orchestrator
	events chan playground.Event
}

func newRunner(cfg *config.Config, settings *genconfig.Manager, client playground.Streamer, logger *slog.Logger) *runner {
	events := make(chan playground.Event, eventBuffer)
	machine := conversation.New(settings.SystemPrompt(), cfg.Playground.Greeting)
	orch := playground.New(machine, settings, client,
		playground.WithDispatcher(playground.DispatchFunc(func(ev playground.Event) {
			events <- ev
		})),
		playground.WithLogger(logger),
		playground.WithMaxMalformedFrames(cfg.Playground.MaxMalformedFrames),
		playground.WithProgressInterval(cfg.Playground.ProgressInterval.Duration),
	)
	return &runner{orch: orch, events: events}
}

// turn sends text and applies events until the reply ends. onDelta sees
// each fragment of the reply as it arrives. Cancelling ctx stops the
// request; the session then reports StatusCancelled.
func (r *runner) turn(ctx context.Context, text string, onDelta func(string)) (playground.Session, error) {
	tok, err := r.orch.Send(ctx, text)
	if err != nil {
		return playground.Session{}, err
	}

	for ev := range r.events {
		r.orch.Apply(ev)
		if ev.Token != tok {
			continue
		}
		if ev.Kind == playground.EventDelta && onDelta != nil {
			onDelta(ev.Fragment)
		}
		if ev.Kind.Terminal() {
			break
		}
	}
	r.orch.Wait()

	sess, _ := r.orch.Session()
	return sess, nil
}

// transcript snapshots the conversation for export.
func (r *runner) transcript() *model.Transcript {
	snap := r.orch.Machine().Snapshot()
	t := model.NewTranscript(r.orch.Settings().Model(), snap.Messages)
	t.Params = r.orch.Settings().Params().Fields()
	return t
}

func (r *runner) close() {
	r.orch.Close()
}
