// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the playground.
// It records the terminal's color capability so renderers can adapt.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantBody  lipgloss.Style
	ErrorBody      lipgloss.Style
	SystemNote     lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputFocused     lipgloss.Style
	CharCount        lipgloss.Style
	CharCountWarning lipgloss.Style

	// ==========================================================================
	// SETTINGS PANE STYLES
	// ==========================================================================

	Pane          lipgloss.Style
	PaneFocused   lipgloss.Style
	PaneTitle     lipgloss.Style
	FieldLabel    lipgloss.Style
	FieldValue    lipgloss.Style
	FieldSelected lipgloss.Style
	EditorError   lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar     lipgloss.Style
	StatusIdle    lipgloss.Style
	StatusBusy    lipgloss.Style
	StatusFailed  lipgloss.Style
	ShortcutKey   lipgloss.Style
	ShortcutDesc  lipgloss.Style
	Spinner       lipgloss.Style
	StatsLabel    lipgloss.Style
	StatsValue    lipgloss.Style
	ModelProvider lipgloss.Style

	// ==========================================================================
	// STATUS INDICATOR STYLES
	// ==========================================================================

	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	return NewThemeFor(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeFor creates a theme for an explicit color profile and background.
func NewThemeFor(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Messages
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)

	t.AssistantBody = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)

	t.ErrorBody = lipgloss.NewStyle().
		Foreground(Rose).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Rose).
		PaddingLeft(1)

	t.SystemNote = lipgloss.NewStyle().
		Foreground(SystemBubbleFg).
		Italic(true)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OverlayDim).
		Padding(0, 1)

	t.InputFocused = t.InputContainer.
		BorderForeground(Cyan)

	t.CharCount = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.CharCountWarning = lipgloss.NewStyle().
		Foreground(Amber)

	// Settings pane
	t.Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(OverlayDim).
		Padding(0, 1)

	t.PaneFocused = t.Pane.
		BorderForeground(Purple)

	t.PaneTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true).
		MarginBottom(1)

	t.FieldLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.FieldValue = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.FieldSelected = lipgloss.NewStyle().
		Background(Purple).
		Foreground(TextInverse).
		Bold(true)

	t.EditorError = lipgloss.NewStyle().
		Foreground(Rose)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StatusIdle = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.StatusBusy = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.StatusFailed = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)

	t.StatsLabel = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatsValue = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.ModelProvider = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Status indicators
	t.SuccessStyle = lipgloss.NewStyle().Foreground(SuccessHighContrast).Bold(true)
	t.ErrorStyle = lipgloss.NewStyle().Foreground(ErrorHighContrast).Bold(true)
	t.WarningStyle = lipgloss.NewStyle().Foreground(WarningHighContrast).Bold(true)
	t.InfoStyle = lipgloss.NewStyle().Foreground(InfoHighContrast).Bold(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, settings pane hidden
	LayoutMedium                   // 60-100 columns, settings pane below
	LayoutWide                     // > 100 columns, settings pane beside
)

// GlamourStyle resolves a configured glamour style name. "auto" picks dark
// or light from the theme's background, and NO_COLOR or an ASCII profile
// select "notty".
func (t *Theme) GlamourStyle(configured string) string {
	name := strings.ToLower(strings.TrimSpace(configured))
	if os.Getenv("NO_COLOR") != "" || t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if name == "" || name == "auto" {
		if t.IsDark {
			return "dark"
		}
		return "light"
	}
	return name
}

// ChromaStyle returns the chroma style name that matches the background.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "catppuccin-mocha"
	}
	return "catppuccin-latte"
}
