// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestNewThemeFor(t *testing.T) {
	theme := NewThemeFor(termenv.TrueColor, true)

	assert.True(t, theme.IsDark)
	assert.True(t, theme.HasTrueColor)
	assert.NotEmpty(t, theme.Pane.Render("x"))
	assert.NotEmpty(t, theme.UserBubble.Render("x"))
}

func TestGlamourStyle(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	dark := NewThemeFor(termenv.ANSI256, true)
	light := NewThemeFor(termenv.ANSI256, false)

	assert.Equal(t, "dark", dark.GlamourStyle("auto"))
	assert.Equal(t, "dark", dark.GlamourStyle(""))
	assert.Equal(t, "light", light.GlamourStyle("AUTO"))
	assert.Equal(t, "dracula", light.GlamourStyle("dracula"))

	ascii := NewThemeFor(termenv.Ascii, true)
	assert.Equal(t, "notty", ascii.GlamourStyle("dark"))
}

func TestGlamourStyle_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.Equal(t, "notty", NewThemeFor(termenv.TrueColor, true).GlamourStyle("auto"))
}

func TestChromaStyle(t *testing.T) {
	assert.Equal(t, "catppuccin-mocha", NewThemeFor(termenv.TrueColor, true).ChromaStyle())
	assert.Equal(t, "catppuccin-latte", NewThemeFor(termenv.TrueColor, false).ChromaStyle())
}

func TestLayoutMode(t *testing.T) {
	theme := NewThemeFor(termenv.ANSI, true)

	theme.SetSize(40, 20)
	assert.Equal(t, LayoutNarrow, theme.GetLayoutMode())
	theme.SetSize(80, 20)
	assert.Equal(t, LayoutMedium, theme.GetLayoutMode())
	theme.SetSize(140, 20)
	assert.Equal(t, LayoutWide, theme.GetLayoutMode())
}

func TestRenderHelpersCarryIndicators(t *testing.T) {
	assert.True(t, strings.Contains(RenderSuccess("saved"), "[OK] saved"))
	assert.True(t, strings.Contains(RenderError("failed"), "[X] failed"))
	assert.True(t, strings.Contains(RenderWarning("slow"), "[!] slow"))
	assert.True(t, strings.Contains(RenderInfo("note"), "[i] note"))
}
