// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the complete transcript as indented JSON. Only
// IncludeSystem is honored; the document always carries every field.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

type jsonDocument struct {
	*model.Transcript
	ExportedAt string `json:"exported_at"`
}

// Export converts a transcript to JSON.
func (e *JSONExporter) Export(t *model.Transcript) ([]byte, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	doc := *t
	doc.Messages = e.options.messages(t)
	data, err := json.MarshalIndent(jsonDocument{
		Transcript: &doc,
		ExportedAt: e.options.now().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
