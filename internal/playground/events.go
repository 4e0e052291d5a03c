// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package playground

import (
	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/model"
)

// EventKind tags an Event.
type EventKind int

const (
	// EventStarted means the gateway accepted the request.
	EventStarted EventKind = iota + 1
	// EventDelta carries one content fragment.
	EventDelta
	// EventProgress carries an updated progress estimate.
	EventProgress
	// EventCompleted ends the session normally.
	EventCompleted
	// EventFailed ends the session with Err.
	EventFailed
	// EventCancelled ends the session after its context was cancelled.
	EventCancelled
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventDelta:
		return "delta"
	case EventProgress:
		return "progress"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the kind ends a session.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventFailed || k == EventCancelled
}

// Event is produced by the request goroutine and applied with
// Orchestrator.Apply. Every event carries the token of the send that
// produced it.
type Event struct {
	Kind     EventKind
	Token    conversation.Token
	Fragment string
	Progress float64
	Stats    *model.Statistics
	Err      error

	// Malformed is the count of dropped frames, set on terminal events.
	Malformed int
}

// Dispatcher receives events from the request goroutine. Implementations
// must eventually call Orchestrator.Apply with each event, in order.
type Dispatcher interface {
	Dispatch(Event)
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(Event)

// Dispatch calls f(ev).
func (f DispatchFunc) Dispatch(ev Event) {
	f(ev)
}
