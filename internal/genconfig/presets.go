// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package genconfig

import (
	"fmt"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/conversation"
)

// Preset is a named pair of generation parameters and a suggested system
// prompt.
type Preset struct {
	Key          string
	Name         string
	Description  string
	Temperature  float64
	SystemPrompt string
}

// Params returns the preset's generation parameters.
func (p Preset) Params() Params {
	return Params{Temperature: p.Temperature}
}

// DefaultPreset is selected at startup.
const DefaultPreset = "balanced"

var presets = []Preset{
	{
		Key:          "balanced",
		Name:         "Balanced",
		Description:  "Good for most use cases",
		Temperature:  0.7,
		SystemPrompt: conversation.DefaultSystemPrompt,
	},
	{
		Key:          "creative",
		Name:         "Creative",
		Description:  "More random and creative outputs",
		Temperature:  0.9,
		SystemPrompt: "You are a creative AI assistant. Think outside the box and provide imaginative responses.",
	},
	{
		Key:          "precise",
		Name:         "Precise",
		Description:  "More focused and deterministic outputs",
		Temperature:  0.3,
		SystemPrompt: "You are a precise AI assistant. Provide accurate, factual, and concise responses.",
	},
}

// Presets returns the built-in presets in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// LookupPreset finds a preset by key, case-insensitively.
func LookupPreset(key string) (Preset, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, p := range presets {
		if p.Key == key {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q (want one of %s)", key, strings.Join(PresetKeys(), ", "))
}

// PresetKeys lists the preset keys.
func PresetKeys() []string {
	keys := make([]string, len(presets))
	for i, p := range presets {
		keys[i] = p.Key
	}
	return keys
}
