// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aihub-tui/internal/ui/styles"
)

// =============================================================================
// TOAST TESTS
// =============================================================================

func TestToastManager_AddAndExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewToastManager()
	m.SetClock(func() time.Time { return now })

	m.Success("Settings applied")
	m.Error("Request failed")
	require.Len(t, m.Toasts(), 2)

	now = now.Add(DefaultToastDuration)
	assert.True(t, m.Sweep())
	toasts := m.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, ToastKindError, toasts[0].Kind)

	now = now.Add(ErrorToastDuration)
	assert.False(t, m.Sweep())
	assert.False(t, m.HasToasts())
}

func TestToastManager_CapsStack(t *testing.T) {
	m := NewToastManager()
	for _, msg := range []string{"one", "two", "three", "four"} {
		m.Status(msg)
	}
	toasts := m.Toasts()
	require.Len(t, toasts, 3)
	assert.Equal(t, "two", toasts[0].Message)
	assert.Equal(t, "four", toasts[2].Message)
}

func TestToastManager_Remove(t *testing.T) {
	m := NewToastManager()
	id := m.Warning("slow gateway")
	m.Status("other")

	m.Remove(id)
	toasts := m.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "other", toasts[0].Message)

	m.Clear()
	assert.False(t, m.HasToasts())
}

func TestRenderToast(t *testing.T) {
	out := RenderToast(Toast{Message: "Copied to clipboard", Kind: ToastKindSuccess}, 80)
	assert.Contains(t, out, "[OK]")
	assert.Contains(t, out, "Copied to clipboard")

	assert.Empty(t, RenderToastStack(nil, 80))
	stack := RenderToastStack([]Toast{{Message: "a"}, {Message: "b", Kind: ToastKindError}}, 80)
	assert.Contains(t, stack, "[i]")
	assert.Contains(t, stack, "[X]")
}

// =============================================================================
// HIGHLIGHT TESTS
// =============================================================================

func TestHighlighter_JSON(t *testing.T) {
	h := NewHighlighter("catppuccin-mocha", termenv.TrueColor)
	src := "{\n  \"temperature\": 0.7\n}"

	out := h.HighlightJSON(src)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "temperature")
	assert.Equal(t, 3, strings.Count(out, "\n")+1)
}

func TestHighlighter_AsciiIsPlain(t *testing.T) {
	h := NewHighlighter("monokai", termenv.Ascii)
	assert.Equal(t, `{"a": 1}`, h.HighlightJSON(`{"a": 1}`))
}

func TestHighlighter_UnknownStyleFallsBack(t *testing.T) {
	h := NewHighlighter("no-such-style", termenv.ANSI256)
	assert.Contains(t, h.HighlightJSON(`{"a": true}`), "true")
}

func TestHighlighter_Nil(t *testing.T) {
	var h *Highlighter
	assert.Equal(t, "x", h.Highlight("x", "go"))
}

func TestNewHighlighterForTheme(t *testing.T) {
	h := NewHighlighterForTheme(styles.NewThemeFor(termenv.Ascii, false))
	assert.Equal(t, "{}", h.HighlightJSON("{}"))
}

func TestCodeBlock_LineNumbers(t *testing.T) {
	h := NewHighlighter("monokai", termenv.Ascii)
	out := NewCodeBlock("json", "{\n  \"a\": 1\n}\n").Render(h)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "1")
	assert.Contains(t, lines[2], "3 }")
}
