// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer caches a glamour renderer per wrap width. Building one
// parses the style sheet, so it is only rebuilt when the width or style
// changes.
type markdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	failed   bool
}

func newMarkdownRenderer(style string) *markdownRenderer {
	return &markdownRenderer{style: style}
}

func (r *markdownRenderer) setStyle(style string) {
	if style == r.style {
		return
	}
	r.style = style
	r.renderer = nil
	r.failed = false
}

// render returns text as styled markdown wrapped at width. ok is false when
// no renderer could be built or rendering failed; callers fall back to the
// plain text.
func (r *markdownRenderer) render(text string, width int) (string, bool) {
	if r.failed && r.width == width {
		return "", false
	}
	if r.renderer == nil || r.width != width {
		tr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.style),
			glamour.WithWordWrap(width),
		)
		r.width = width
		if err != nil {
			r.renderer = nil
			r.failed = true
			return "", false
		}
		r.renderer = tr
		r.failed = false
	}

	out, err := r.renderer.Render(text)
	if err != nil {
		return "", false
	}
	return strings.Trim(out, "\n"), true
}
