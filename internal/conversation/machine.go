// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultSystemPrompt seeds a new conversation.
	DefaultSystemPrompt = "You are a helpful AI assistant."

	// DefaultGreeting is the assistant message shown after the system prompt.
	DefaultGreeting = "Hello! How can I help you today?"

	// ErrorPrefix starts the assistant content of a failed turn.
	ErrorPrefix = "Error: "
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput is returned by Send for blank input.
	ErrEmptyInput = errors.New("message is empty")

	// ErrBusy is returned by Send while a reply is in flight.
	ErrBusy = errors.New("a response is already in progress")
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle position of the machine.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Token identifies one send. Zero means no session is live.
type Token uint64

// Turn is what Send hands the caller to build the outbound request.
type Turn struct {
	Token Token
	// History is every message up to and including the new user message.
	History []model.Message
}

// Snapshot is a detached view of the machine.
type Snapshot struct {
	Messages  []model.Message
	State     State
	Live      Token
	LastError string
}

// Last returns the final message of the snapshot.
func (s Snapshot) Last() model.Message {
	return s.Messages[len(s.Messages)-1]
}

// =============================================================================
// MACHINE
// =============================================================================

// Machine owns the message log. Every transition takes the lock, so the
// log is only ever changed by one call at a time, and token-bearing calls
// for anything but the live token are no-ops.
type Machine struct {
	mu        sync.Mutex
	log       []model.Message
	state     State
	live      Token
	next      Token
	greeting  string
	lastError string
}

// New creates a machine seeded with [system(systemPrompt), assistant(greeting)].
// Empty arguments fall back to the defaults.
func New(systemPrompt, greeting string) *Machine {
	if greeting == "" {
		greeting = DefaultGreeting
	}
	m := &Machine{greeting: greeting}
	m.log = m.seed(systemPrompt)
	return m
}

func (m *Machine) seed(systemPrompt string) []model.Message {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return []model.Message{
		model.NewSystemMessage(systemPrompt),
		model.NewAssistantMessage(m.greeting),
	}
}

// Send appends the user message and an empty assistant placeholder, then
// moves to sending. It fails without changing anything when the input is
// blank or another send is in flight.
func (m *Machine) Send(text string) (Turn, error) {
	text = norm.NFC.String(strings.TrimSpace(text))

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return Turn{}, ErrBusy
	}
	if text == "" {
		return Turn{}, ErrEmptyInput
	}

	m.log = append(m.log, model.NewUserMessage(text))
	history := cloneMessages(m.log)
	m.log = append(m.log, model.NewPlaceholder())

	m.next++
	m.live = m.next
	m.state = StateSending
	m.lastError = ""

	return Turn{Token: m.live, History: history}, nil
}

// BeginStream records that the gateway accepted the request.
func (m *Machine) BeginStream(tok Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isLive(tok) || m.state != StateSending {
		return false
	}
	m.state = StateStreaming
	return true
}

// ApplyDelta appends fragment to the placeholder. The first delta also
// moves a sending machine to streaming.
func (m *Machine) ApplyDelta(tok Token, fragment string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isLive(tok) {
		return false
	}
	if m.state == StateSending {
		m.state = StateStreaming
	}
	last := &m.log[len(m.log)-1]
	last.Content += fragment
	return true
}

// Complete finishes the live turn. stats may be nil.
func (m *Machine) Complete(tok Token, stats *model.Statistics) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isLive(tok) {
		return false
	}
	last := &m.log[len(m.log)-1]
	last.Streaming = false
	if stats != nil {
		s := *stats
		last.Stats = &s
	}
	m.finish()
	return true
}

// Fail writes the error into the placeholder and finishes the turn. Text
// that already streamed is kept and the error follows it.
func (m *Machine) Fail(tok Token, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isLive(tok) {
		return false
	}
	last := &m.log[len(m.log)-1]
	if last.Content == "" {
		last.Content = ErrorPrefix + msg
	} else {
		last.Content += "\n\n" + ErrorPrefix + msg
	}
	last.Streaming = false
	m.lastError = msg
	m.finish()
	return true
}

// Reset replaces the log with a fresh [system, greeting] pair. Any live
// session is orphaned.
func (m *Machine) Reset(systemPrompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log = m.seed(systemPrompt)
	m.lastError = ""
	m.finish()
}

// ApplySystemPrompt rewrites the system message in place.
func (m *Machine) ApplySystemPrompt(text string) {
	if strings.TrimSpace(text) == "" {
		text = DefaultSystemPrompt
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.log[0].Content = text
}

// Snapshot returns a deep copy of the machine.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Messages:  cloneMessages(m.log),
		State:     m.state,
		Live:      m.live,
		LastError: m.lastError,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Live returns the live token, or zero.
func (m *Machine) Live() Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// SystemPrompt returns the content of the system message.
func (m *Machine) SystemPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log[0].Content
}

// =============================================================================
// HELPERS
// =============================================================================

// isLive must be called with the lock held.
func (m *Machine) isLive(tok Token) bool {
	return tok != 0 && tok == m.live && m.state != StateIdle
}

// finish must be called with the lock held.
func (m *Machine) finish() {
	m.state = StateIdle
	m.live = 0
}

func cloneMessages(msgs []model.Message) []model.Message {
	out := make([]model.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Clone()
	}
	return out
}
