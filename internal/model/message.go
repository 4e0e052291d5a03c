// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the roles the gateway accepts.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Streaming is true while this is the live assistant placeholder.
	Streaming bool `json:"-"`

	// Stats is set on assistant messages once their stream finishes.
	Stats *Statistics `json:"stats,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a finished assistant message, such as the
// greeting that seeds a conversation.
func NewAssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}

// NewPlaceholder creates the empty assistant message that a stream fills.
func NewPlaceholder() Message {
	msg := NewMessage(RoleAssistant, "")
	msg.Streaming = true
	return msg
}

// Clone returns a copy that shares no mutable state with m.
func (m Message) Clone() Message {
	if m.Stats != nil {
		stats := *m.Stats
		m.Stats = &stats
	}
	return m
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return m.Content == ""
}

// EstimateTokens gives a rough estimate of the message token count.
func (m Message) EstimateTokens() int {
	return EstimateTokens(m.Content)
}

// EstimateTokens approximates a token count as one token per four
// characters, rounded up.
func EstimateTokens(text string) int {
	chars := utf8.RuneCountInString(text)
	return (chars + 3) / 4
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds timing and chunk information for one streamed reply.
type Statistics struct {
	StartTime      time.Time `json:"start_time"`
	FirstTokenTime time.Time `json:"first_token_time,omitempty"`
	EndTime        time.Time `json:"end_time,omitempty"`

	// Chunks counts delta frames received.
	Chunks int `json:"chunks"`
	// CompletionTokens is estimated from the final content.
	CompletionTokens int `json:"completion_tokens"`

	TTFT            time.Duration `json:"ttft_ns"`
	TotalDuration   time.Duration `json:"total_duration_ns"`
	TokensPerSecond float64       `json:"tokens_per_sec"`

	// FinishReason is the last finish_reason the gateway reported.
	FinishReason string `json:"finish_reason,omitempty"`
}

// NewStatistics creates a new Statistics with the start time set.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordChunk counts a delta and records the time to first token.
func (s *Statistics) RecordChunk() {
	s.Chunks++
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = time.Now()
		s.TTFT = s.FirstTokenTime.Sub(s.StartTime)
	}
}

// Finalize computes the final statistics.
func (s *Statistics) Finalize(tokenCount int) {
	s.EndTime = time.Now()
	s.CompletionTokens = tokenCount
	s.TotalDuration = s.EndTime.Sub(s.StartTime)

	if s.TotalDuration > 0 {
		s.TokensPerSecond = float64(tokenCount) / s.TotalDuration.Seconds()
	}
}

// Format returns a one-line summary such as
// "2.5s | 128 tokens | 51.2 tok/s | TTFT 234ms".
func (s *Statistics) Format() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%s | %d tokens | %.1f tok/s | TTFT %dms",
		formatDuration(s.TotalDuration), s.CompletionTokens, s.TokensPerSecond, s.TTFT.Milliseconds())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
