// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/aihub-tui/internal/model"
)

// ErrClipboardUnavailable is returned when no clipboard utility exists,
// typically on a headless Linux box without xclip or xsel.
var ErrClipboardUnavailable = errors.New("clipboard not available")

var (
	clipboardMu sync.Mutex
	// clipboardWrite overrides the system clipboard when set.
	clipboardWrite func(string) error
)

// SetClipboardWriter replaces the clipboard backend and returns a restore
// function. A nil fn selects the system clipboard.
func SetClipboardWriter(fn func(string) error) (restore func()) {
	clipboardMu.Lock()
	prev := clipboardWrite
	clipboardWrite = fn
	clipboardMu.Unlock()
	return func() {
		clipboardMu.Lock()
		clipboardWrite = prev
		clipboardMu.Unlock()
	}
}

// CopyText places text on the system clipboard.
func CopyText(text string) error {
	clipboardMu.Lock()
	write := clipboardWrite
	clipboardMu.Unlock()

	if write == nil {
		if clipboard.Unsupported {
			return ErrClipboardUnavailable
		}
		write = clipboard.WriteAll
	}
	if err := write(text); err != nil {
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}
	return nil
}

// CopyTranscript copies the visible conversation as plain text.
func CopyTranscript(t *model.Transcript) error {
	data, err := NewTextExporter(nil).Export(t)
	if err != nil {
		return err
	}
	return CopyText(strings.TrimSuffix(string(data), "\n"))
}

// CopyLastReply copies the content of the last non-empty assistant
// message.
func CopyLastReply(t *model.Transcript) error {
	if t == nil {
		return ErrEmptyTranscript
	}
	for i := len(t.Messages) - 1; i >= 0; i-- {
		msg := t.Messages[i]
		if msg.Role == model.RoleAssistant && strings.TrimSpace(msg.Content) != "" {
			return CopyText(msg.Content)
		}
	}
	return ErrEmptyTranscript
}
