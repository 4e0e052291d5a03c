// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// ErrEmptyTranscript is returned when there is nothing to export.
var ErrEmptyTranscript = errors.New("transcript has no messages")

// Exporter renders a transcript in one format.
type Exporter interface {
	// Export renders the transcript.
	Export(t *model.Transcript) ([]byte, error)

	// FileExtension returns the file extension, such as ".md".
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where ExportToFile writes. Default: current directory.
	OutputDir string

	// IncludeMetadata adds a header with model, date and parameters, and
	// per-reply statistics.
	IncludeMetadata bool

	// IncludeTimestamps adds a time to each message heading.
	IncludeTimestamps bool

	// IncludeSystem includes the system prompt as a message.
	IncludeSystem bool

	// Now is used for the export time. Nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// messages returns the messages of t selected by the options.
func (o *Options) messages(t *model.Transcript) []model.Message {
	if o.IncludeSystem {
		return t.Messages
	}
	return t.Visible()
}

// =============================================================================
// FORMATS
// =============================================================================

// Formats lists the names accepted by ForFormat.
func Formats() []string {
	return []string{"markdown", "json", "text"}
}

// ForFormat returns the exporter for a format name or file extension.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), ".")) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "text", "txt":
		return NewTextExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s (want one of %s)", format, strings.Join(Formats(), ", "))
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders t with exporter and writes it into opts.OutputDir
// under a name derived from the title. It returns the written path.
func ExportToFile(t *model.Transcript, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(t.Title),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// WriteFile renders t in the format implied by path's extension and
// writes it there.
func WriteFile(t *model.Transcript, path string, opts *Options) error {
	ext := filepath.Ext(path)
	if ext == "" {
		return fmt.Errorf("cannot infer export format from %q", path)
	}
	exporter, err := ForFormat(ext, opts)
	if err != nil {
		return err
	}
	content, err := exporter.Export(t)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return util.AtomicWriteFile(path, content, 0o644)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func validate(t *model.Transcript) error {
	if t == nil {
		return errors.New("transcript is nil")
	}
	if len(t.Visible()) == 0 {
		return ErrEmptyTranscript
	}
	return nil
}

// sanitizeFilename replaces characters that are invalid in filenames on
// Windows or Unix.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)
	s = strings.TrimSuffix(s, util.Ellipsis)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
