// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a model advertised by the gateway. The cost fields
// come from the gateway cost map and may be zero when it is unavailable.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`

	// Provider is inferred, see InferProvider
	Provider string `json:"provider"`

	MaxTokens          int     `json:"max_tokens,omitempty"`
	InputCostPerToken  float64 `json:"input_cost_per_token,omitempty"`
	OutputCostPerToken float64 `json:"output_cost_per_token,omitempty"`
	Mode               string  `json:"mode,omitempty"`
}

// CostString returns a formatted cost per 1K input tokens.
func (m ModelInfo) CostString() string {
	per1K := m.InputCostPerToken * 1000
	switch {
	case per1K == 0:
		return "n/a"
	case per1K < 0.001:
		return fmt.Sprintf("$%.5f/1K", per1K)
	default:
		return fmt.Sprintf("$%.4f/1K", per1K)
	}
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	switch {
	case m.MaxTokens <= 0:
		return "unknown"
	case m.MaxTokens >= 1000000:
		return fmt.Sprintf("%.1fM tokens", float64(m.MaxTokens)/1000000)
	case m.MaxTokens >= 1000:
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	default:
		return fmt.Sprintf("%d tokens", m.MaxTokens)
	}
}

// =============================================================================
// PROVIDER INFERENCE
// =============================================================================

// providerHints maps id substrings to providers. Order matters: the first
// match wins.
var providerHints = []struct {
	substr   string
	provider string
}{
	{"gpt", "OpenAI"},
	{"davinci", "OpenAI"},
	{"claude", "Anthropic"},
	{"gemini", "Google"},
	{"llama", "Meta"},
	{"qwen", "Alibaba"},
	{"deepseek", "DeepSeek AI"},
	{"multilingual-e5", "Microsoft"},
}

// ProviderOther is returned when nothing identifies the provider.
const ProviderOther = "Other"

// InferProvider names the provider of a model. A provider reported in the
// gateway cost map wins; otherwise the model ID is matched against known
// families.
func InferProvider(modelID, reported string) string {
	if reported = strings.TrimSpace(reported); reported != "" {
		return strings.ToUpper(reported[:1]) + reported[1:]
	}
	id := strings.ToLower(modelID)
	for _, hint := range providerHints {
		if strings.Contains(id, hint.substr) {
			return hint.provider
		}
	}
	return ProviderOther
}
