// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/aihub-tui/internal/ui/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// Highlighter renders source text with ANSI syntax colors.
type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
	plain     bool
}

// NewHighlighter picks a chroma style and a formatter matching the color
// profile. An ASCII profile disables highlighting.
func NewHighlighter(styleName string, profile termenv.Profile) *Highlighter {
	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatterName := "terminal256"
	switch profile {
	case termenv.TrueColor:
		formatterName = "terminal16m"
	case termenv.ANSI:
		formatterName = "terminal16"
	}
	formatter := formatters.Get(formatterName)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	return &Highlighter{
		style:     style,
		formatter: formatter,
		plain:     profile == termenv.Ascii,
	}
}

// NewHighlighterForTheme builds a highlighter from the theme's background
// and color profile.
func NewHighlighterForTheme(theme *styles.Theme) *Highlighter {
	return NewHighlighter(theme.ChromaStyle(), theme.ColorProfile)
}

// Highlight colors code written in language. Unknown languages are
// detected from the content; on any failure the input is returned as is.
func (h *Highlighter) Highlight(code, language string) string {
	if h == nil || h.plain || code == "" {
		return code
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return code
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// HighlightJSON colors a JSON document.
func (h *Highlighter) HighlightJSON(text string) string {
	return h.Highlight(text, "json")
}

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock renders highlighted code with line numbers.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
}

// NewCodeBlock creates a new code block.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
	}
}

// Render renders the block using h for highlighting.
func (c CodeBlock) Render(h *Highlighter) string {
	code := strings.TrimRight(c.Code, "\n")
	lines := strings.Split(h.Highlight(code, c.Language), "\n")

	lineNumStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Width(3).
		Align(lipgloss.Right).
		MarginRight(1)

	rendered := make([]string, len(lines))
	for i, line := range lines {
		// Chroma already colored the line.
		rendered[i] = lineNumStyle.Render(strconv.Itoa(i+1)) + line
	}

	width := c.MaxWidth
	if width < 20 {
		width = 20
	}
	return lipgloss.NewStyle().
		MaxWidth(width).
		Render(strings.Join(rendered, "\n"))
}
