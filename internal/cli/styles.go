// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles for CLI output.
//
// Colors follow the TUI palette and are dropped for non-TTY output and
// when NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aihub-tui/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// STYLES
// =============================================================================

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// LabelStyle is padded so values line up.
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(20)

	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(styles.OverlayDim)
)

// RenderSeparator renders a horizontal rule, 70 columns unless width is set.
func RenderSeparator(width ...int) string {
	w := 70
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("-", w))
}

// RenderKeyValue renders one "label value" line.
func RenderKeyValue(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}
