// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package playground

import (
	"time"

	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle position of a stream session.
type Status int

const (
	StatusPending Status = iota
	StatusStreaming
	StatusDone
	StatusErrored
	StatusCancelled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusDone:
		return "done"
	case StatusErrored:
		return "errored"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can no longer change.
func (s Status) Terminal() bool {
	return s >= StatusDone
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one in-flight or finished request.
type Session struct {
	ID        string
	Token     conversation.Token
	Model     string
	Status    Status
	Progress  float64
	Text      string
	Malformed int
	Stats     *model.Statistics
	Err       error
	StartedAt time.Time
}

// clone returns a copy safe to hand out.
func (s *Session) clone() Session {
	out := *s
	if s.Stats != nil {
		stats := *s.Stats
		out.Stats = &stats
	}
	return out
}

// =============================================================================
// PROGRESS
// =============================================================================

// ProgressCap is the highest value the estimator reaches before a terminal
// event.
const ProgressCap = 95.0

// Progress estimates completion for a stream of unknown length. Each Step
// closes a tenth of the remaining distance to 100, never passing the cap.
type Progress struct {
	value float64
}

// Step advances the estimate and returns it.
func (p *Progress) Step() float64 {
	p.value = min(ProgressCap, p.value+(100-p.value)*0.1)
	return p.value
}

// Value returns the current estimate.
func (p *Progress) Value() float64 {
	return p.value
}
