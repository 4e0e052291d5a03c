// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown with YAML frontmatter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *model.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	msgs := e.options.messages(t)

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(t.Title))
		if t.Model != "" {
			fmt.Fprintf(&sb, "model: %s\n", escapeYAML(t.Model))
		}
		fmt.Fprintf(&sb, "date: %s\n", t.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(msgs))
		fmt.Fprintf(&sb, "exported: %s\n", e.options.now().Format(time.RFC3339))
		sb.WriteString("generator: aihub\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(t.Title))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if t.Model != "" {
			fmt.Fprintf(&sb, "- **Model**: %s\n", t.Model)
		}
		fmt.Fprintf(&sb, "- **Created**: %s\n", formatTimestamp(t.CreatedAt))
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(msgs))
		fmt.Fprintf(&sb, "- **Estimated Tokens**: %d\n", t.EstimateTokens())
		if len(t.Params) > 0 {
			fmt.Fprintf(&sb, "- **Parameters**: %s\n", formatParams(t.Params))
		}
		if t.SystemPrompt != "" && !e.options.IncludeSystem {
			fmt.Fprintf(&sb, "- **System Prompt**: %s\n", escapeMarkdown(strings.Join(strings.Fields(t.SystemPrompt), " ")))
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")

	for i, msg := range msgs {
		label := msg.Role.DisplayName()
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.Timestamp))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.Role == model.RoleAssistant && e.options.IncludeMetadata && msg.Stats != nil {
			if stats := msg.Stats.Format(); stats != "" {
				fmt.Fprintf(&sb, "<sub>Stats: %s</sub>\n\n", stats)
			}
		}

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from aihub on %s*\n", e.options.now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatParams renders parameters as "k=v" pairs, temperature first.
func formatParams(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "temperature" || keys[j] == "temperature" {
			return keys[i] == "temperature"
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(parts, ", ")
}

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// escapeYAML quotes a frontmatter value when it contains special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
		return `"` + r.Replace(s) + `"`
	}
	return s
}
