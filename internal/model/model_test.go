// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// PROVIDER TESTS
// =============================================================================

func TestInferProvider(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		reported string
		want     string
	}{
		{"reported wins", "gpt-4o", "azure", "Azure"},
		{"reported trimmed", "x", "  bedrock ", "Bedrock"},
		{"gpt", "gpt-4o-mini", "", "OpenAI"},
		{"davinci", "text-davinci-003", "", "OpenAI"},
		{"claude", "claude-3-5-sonnet", "", "Anthropic"},
		{"gemini case", "Gemini-1.5-Pro", "", "Google"},
		{"llama", "meta-llama/Llama-3-8b", "", "Meta"},
		{"qwen", "qwen2.5:7b", "", "Alibaba"},
		{"deepseek", "deepseek-chat", "", "DeepSeek AI"},
		{"e5", "intfloat/multilingual-e5-large", "", "Microsoft"},
		{"unknown", "mistral-large", "", ProviderOther},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := InferProvider(tc.id, tc.reported); got != tc.want {
				t.Errorf("InferProvider(%q, %q) = %q, want %q", tc.id, tc.reported, got, tc.want)
			}
		})
	}
}

func TestModelInfo_ContextString(t *testing.T) {
	tests := []struct {
		tokens int
		want   string
	}{
		{0, "unknown"},
		{512, "512 tokens"},
		{128000, "128K tokens"},
		{2000000, "2.0M tokens"},
	}
	for _, tc := range tests {
		if got := (ModelInfo{MaxTokens: tc.tokens}).ContextString(); got != tc.want {
			t.Errorf("ContextString(%d) = %q, want %q", tc.tokens, got, tc.want)
		}
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"héllo wörld", 3},
	}
	for _, tc := range tests {
		if got := EstimateTokens(tc.text); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("line one\nline   two and a long tail")
	got := msg.Preview(15)
	if got != "line one lin..." {
		t.Errorf("Preview() = %q", got)
	}
	if msg.Preview(100) != "line one line two and a long tail" {
		t.Errorf("Preview() should collapse whitespace, got %q", msg.Preview(100))
	}
}

func TestNewPlaceholder(t *testing.T) {
	msg := NewPlaceholder()
	if msg.Role != RoleAssistant || !msg.Streaming || !msg.IsEmpty() {
		t.Errorf("unexpected placeholder %+v", msg)
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID = %q, want msg_ prefix", msg.ID)
	}
}

func TestMessage_CloneDetachesStats(t *testing.T) {
	msg := NewAssistantMessage("hi")
	msg.Stats = &Statistics{Chunks: 2}

	clone := msg.Clone()
	clone.Stats.Chunks = 9

	if msg.Stats.Chunks != 2 {
		t.Errorf("Clone shared stats: original now %d", msg.Stats.Chunks)
	}
}

func TestStatistics(t *testing.T) {
	s := NewStatistics()
	s.StartTime = time.Now().Add(-2 * time.Second)
	s.RecordChunk()
	first := s.FirstTokenTime
	s.RecordChunk()

	if s.Chunks != 2 {
		t.Errorf("Chunks = %d, want 2", s.Chunks)
	}
	if !s.FirstTokenTime.Equal(first) {
		t.Error("FirstTokenTime must only be recorded once")
	}

	s.Finalize(10)
	if s.TokensPerSecond <= 0 || s.TokensPerSecond > 10 {
		t.Errorf("TokensPerSecond = %f", s.TokensPerSecond)
	}
	if !strings.Contains(s.Format(), "10 tokens") {
		t.Errorf("Format() = %q", s.Format())
	}

	var nilStats *Statistics
	if nilStats.Format() != "" {
		t.Error("nil Format() should be empty")
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestNewTranscript(t *testing.T) {
	msgs := []Message{
		NewSystemMessage("be brief"),
		NewAssistantMessage("Hello!"),
		NewUserMessage("What is Go?"),
	}
	tr := NewTranscript("gpt-4o", msgs)

	if tr.SystemPrompt != "be brief" {
		t.Errorf("SystemPrompt = %q", tr.SystemPrompt)
	}
	if tr.Title != "What is Go?" {
		t.Errorf("Title = %q", tr.Title)
	}
	if len(tr.Visible()) != 2 {
		t.Errorf("Visible() len = %d, want 2", len(tr.Visible()))
	}

	tr.Messages[0].Content = "changed"
	if msgs[0].Content != "be brief" {
		t.Error("transcript must not alias the source slice")
	}

	empty := NewTranscript("", nil)
	if empty.Title != "New Conversation" {
		t.Errorf("empty Title = %q", empty.Title)
	}
}
