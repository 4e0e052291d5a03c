// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders playground transcripts to Markdown, JSON or plain
// text, writes them to files and copies them to the clipboard.
//
//	t := model.NewTranscript(modelID, machine.Snapshot().Messages)
//	path, err := export.ExportToFile(t, export.NewMarkdownExporter(nil), nil)
package export
