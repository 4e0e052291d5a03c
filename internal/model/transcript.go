// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Transcript is a detached copy of a conversation, taken for export or
// display. Mutating it never affects the live conversation.
type Transcript struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	SystemPrompt string    `json:"system_prompt"`
	Messages     []Message `json:"messages"`

	// Params holds the generation parameters in effect when taken.
	Params map[string]any `json:"params,omitempty"`
}

// NewTranscript copies msgs into a new transcript.
func NewTranscript(modelID string, msgs []Message) *Transcript {
	t := &Transcript{
		ID:        generateTranscriptID(),
		Model:     modelID,
		CreatedAt: time.Now(),
		Messages:  make([]Message, len(msgs)),
	}
	for i, msg := range msgs {
		t.Messages[i] = msg.Clone()
	}
	if len(msgs) > 0 && msgs[0].Role == RoleSystem {
		t.SystemPrompt = msgs[0].Content
	}
	t.Title = t.deriveTitle()
	return t
}

// Visible returns the messages shown to the user (everything but the
// system prompt).
func (t *Transcript) Visible() []Message {
	out := make([]Message, 0, len(t.Messages))
	for _, msg := range t.Messages {
		if msg.Role != RoleSystem {
			out = append(out, msg)
		}
	}
	return out
}

// EstimateTokens sums the token estimates of every message.
func (t *Transcript) EstimateTokens() int {
	total := 0
	for _, msg := range t.Messages {
		total += msg.EstimateTokens()
	}
	return total
}

// deriveTitle uses the first user message, or a default.
func (t *Transcript) deriveTitle() string {
	for _, msg := range t.Messages {
		if msg.Role == RoleUser {
			return msg.Preview(50)
		}
	}
	return "New Conversation"
}

// generateTranscriptID creates a unique transcript ID.
func generateTranscriptID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}
