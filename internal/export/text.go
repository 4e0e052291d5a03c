// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/model"
)

// TextExporter renders a plain "Role: content" transcript, the form
// copied to the clipboard.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = &Options{}
	}
	return &TextExporter{options: opts}
}

// Export converts a transcript to plain text.
func (e *TextExporter) Export(t *model.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	var sb strings.Builder
	for i, msg := range e.options.messages(t) {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "[%s] ", formatShortTimestamp(msg.Timestamp))
		}
		fmt.Fprintf(&sb, "%s: %s", msg.Role.DisplayName(), strings.TrimSpace(msg.Content))
	}
	sb.WriteString("\n")
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
