// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aihub-tui/internal/model"
)

var fixedNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

func sampleTranscript() *model.Transcript {
	msgs := []model.Message{
		model.NewSystemMessage("You are helpful."),
		model.NewAssistantMessage("Hello! How can I help you today?"),
		model.NewUserMessage("Write a haiku about Go"),
		model.NewAssistantMessage("Goroutines hum\nchannels carry quiet words\nthe scheduler smiles"),
	}
	for i := range msgs {
		msgs[i].Timestamp = fixedNow.Add(time.Duration(i) * time.Second)
	}
	msgs[3].Stats = &model.Statistics{
		Chunks:           5,
		CompletionTokens: 17,
		TotalDuration:    1500 * time.Millisecond,
		TTFT:             120 * time.Millisecond,
		TokensPerSecond:  11.3,
	}
	t := model.NewTranscript("gpt-4o", msgs)
	t.CreatedAt = fixedNow
	t.Params = map[string]any{"temperature": 0.7, "max_tokens": float64(256)}
	return t
}

func testOptions() *Options {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	out, err := NewMarkdownExporter(testOptions()).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: Write a haiku about Go\nmodel: gpt-4o\n"))
	assert.Contains(t, md, "# Write a haiku about Go\n")
	assert.Contains(t, md, "- **Parameters**: temperature=0.7, max_tokens=256\n")
	assert.Contains(t, md, "- **System Prompt**: You are helpful.\n")
	assert.Contains(t, md, "### You <sub>15:09:28</sub>")
	assert.Contains(t, md, "### Assistant <sub>15:09:29</sub>")
	assert.Contains(t, md, "channels carry quiet words")
	assert.Contains(t, md, "<sub>Stats: ")
	assert.Contains(t, md, "17 tokens")
	assert.NotContains(t, md, "### System")
	assert.Contains(t, md, "*Exported from aihub on March 14, 2025 at 3:09 PM*")
}

func TestMarkdownExporter_WithoutMetadata(t *testing.T) {
	opts := &Options{Now: func() time.Time { return fixedNow }, IncludeSystem: true}
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Write a haiku about Go"))
	assert.NotContains(t, md, "Session Information")
	assert.NotContains(t, md, "<sub>")
	assert.Contains(t, md, "### System\n\nYou are helpful.")
}

func TestEscapeYAML(t *testing.T) {
	assert.Equal(t, "plain", escapeYAML("plain"))
	assert.Equal(t, `"Test\nInjection: bad"`, escapeYAML("Test\nInjection: bad"))
	assert.Equal(t, `"say \"hi\""`, escapeYAML(`say "hi"`))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `\# \*bold\* \[link\]`, escapeMarkdown("# *bold* [link]"))
}

// =============================================================================
// JSON
// =============================================================================

func TestJSONExporter(t *testing.T) {
	out, err := NewJSONExporter(testOptions()).Export(sampleTranscript())
	require.NoError(t, err)

	var doc struct {
		Title        string           `json:"title"`
		Model        string           `json:"model"`
		SystemPrompt string           `json:"system_prompt"`
		Messages     []map[string]any `json:"messages"`
		Params       map[string]any   `json:"params"`
		ExportedAt   string           `json:"exported_at"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))

	assert.Equal(t, "Write a haiku about Go", doc.Title)
	assert.Equal(t, "gpt-4o", doc.Model)
	assert.Equal(t, "You are helpful.", doc.SystemPrompt)
	assert.Equal(t, 0.7, doc.Params["temperature"])
	assert.Equal(t, "2025-03-14T15:09:26Z", doc.ExportedAt)
	require.Len(t, doc.Messages, 3)
	assert.Equal(t, "assistant", doc.Messages[0]["role"])
	assert.Equal(t, "user", doc.Messages[1]["role"])
	assert.NotNil(t, doc.Messages[2]["stats"])
}

func TestJSONExporter_IncludeSystemDoesNotMutateTranscript(t *testing.T) {
	tr := sampleTranscript()
	opts := testOptions()

	out, err := NewJSONExporter(opts).Export(tr)
	require.NoError(t, err)
	assert.Len(t, tr.Messages, 4)

	opts.IncludeSystem = true
	out, err = NewJSONExporter(opts).Export(tr)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"role": "system"`)
}

// =============================================================================
// TEXT
// =============================================================================

func TestTextExporter(t *testing.T) {
	out, err := NewTextExporter(nil).Export(sampleTranscript())
	require.NoError(t, err)

	want := "Assistant: Hello! How can I help you today?\n\n" +
		"You: Write a haiku about Go\n\n" +
		"Assistant: Goroutines hum\nchannels carry quiet words\nthe scheduler smiles\n"
	assert.Equal(t, want, string(out))
}

func TestExport_EmptyTranscript(t *testing.T) {
	empty := model.NewTranscript("m", []model.Message{model.NewSystemMessage("sys")})
	for _, format := range Formats() {
		exp, err := ForFormat(format, nil)
		require.NoError(t, err)
		_, err = exp.Export(empty)
		assert.True(t, errors.Is(err, ErrEmptyTranscript), format)
	}
	_, err := NewTextExporter(nil).Export(nil)
	assert.Error(t, err)
}

// =============================================================================
// FILES
// =============================================================================

func TestForFormat(t *testing.T) {
	tests := map[string]string{
		"markdown": ".md",
		"MD":       ".md",
		".json":    ".json",
		"text":     ".txt",
		"txt":      ".txt",
	}
	for in, ext := range tests {
		exp, err := ForFormat(in, nil)
		require.NoError(t, err, in)
		assert.Equal(t, ext, exp.FileExtension(), in)
	}
	_, err := ForFormat("html", nil)
	assert.Error(t, err)
}

func TestExportToFile(t *testing.T) {
	opts := testOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "exports")

	path, err := ExportToFile(sampleTranscript(), NewMarkdownExporter(opts), opts)
	require.NoError(t, err)

	assert.Equal(t, "conversation_Write_a_haiku_about_Go_20250314_150926.md", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Write a haiku about Go")
}

func TestWriteFile_InfersFormat(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "chat.json")
	require.NoError(t, WriteFile(sampleTranscript(), jsonPath, testOptions()))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	assert.Error(t, WriteFile(sampleTranscript(), filepath.Join(dir, "chat"), nil))
	assert.Error(t, WriteFile(sampleTranscript(), filepath.Join(dir, "chat.pdf"), nil))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c_d", sanitizeFilename("a/b:c d"))
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.LessOrEqual(t, len([]rune(sanitizeFilename(strings.Repeat("x", 80)))), 50)
}

// =============================================================================
// CLIPBOARD
// =============================================================================

func TestCopyTranscript(t *testing.T) {
	var got string
	restore := SetClipboardWriter(func(s string) error { got = s; return nil })
	defer restore()

	require.NoError(t, CopyTranscript(sampleTranscript()))
	assert.True(t, strings.HasPrefix(got, "Assistant: Hello!"))
	assert.False(t, strings.HasSuffix(got, "\n"))
}

func TestCopyLastReply(t *testing.T) {
	var got string
	restore := SetClipboardWriter(func(s string) error { got = s; return nil })
	defer restore()

	tr := sampleTranscript()
	require.NoError(t, CopyLastReply(tr))
	assert.True(t, strings.HasPrefix(got, "Goroutines hum"))

	onlyGreeting := model.NewTranscript("m", []model.Message{model.NewSystemMessage("s")})
	assert.ErrorIs(t, CopyLastReply(onlyGreeting), ErrEmptyTranscript)
}

func TestCopyText_WrapsBackendError(t *testing.T) {
	restore := SetClipboardWriter(func(string) error { return errors.New("xclip missing") })
	defer restore()

	err := CopyText("x")
	assert.ErrorIs(t, err, ErrClipboardUnavailable)
	assert.Contains(t, err.Error(), "xclip missing")
}
