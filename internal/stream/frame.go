// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
)

// =============================================================================
// FRAME TYPES
// =============================================================================

// Kind tags what a decoded frame carried.
type Kind int

const (
	// FrameDelta carries an incremental text fragment.
	FrameDelta Kind = iota + 1
	// FrameFinish carries the finish_reason of the first choice.
	FrameFinish
	// FrameMalformed is a frame whose payload could not be parsed.
	FrameMalformed
	// FrameDone is the terminal [DONE] sentinel.
	FrameDone
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case FrameDelta:
		return "delta"
	case FrameFinish:
		return "finish"
	case FrameMalformed:
		return "malformed"
	case FrameDone:
		return "done"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is one decoded unit of the stream.
type Frame struct {
	Kind         Kind
	Content      string // FrameDelta
	FinishReason string // FrameFinish
	Err          error  // FrameMalformed, always a *FrameError
}

// =============================================================================
// WIRE CHUNK
// =============================================================================

// Chunk is the JSON document carried by one data frame.
type Chunk struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`

	// Error is set by gateways that report failures inside the stream.
	Error *ChunkError `json:"error,omitempty"`
}

// Choice is one entry of Chunk.Choices.
type Choice struct {
	Index int `json:"index"`
	Delta struct {
		Role    string `json:"role,omitempty"`
		Content string `json:"content"`
	} `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

// ChunkError is an error object embedded in a chunk.
type ChunkError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// GetContent returns the content from the first choice's delta.
func (c *Chunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// GetFinishReason returns the finish reason of the first choice.
func (c *Chunk) GetFinishReason() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason
	}
	return ""
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrFrameTooLarge is wrapped by a FrameError when a frame payload grows
// past the decoder's size limit without terminating.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// FrameError describes a frame that was dropped.
type FrameError struct {
	// Payload is the offending text, truncated for logging.
	Payload string
	Err     error
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", e.Payload, e.Err)
}

// Unwrap returns the underlying error.
func (e *FrameError) Unwrap() error {
	return e.Err
}

// truncatePayload keeps log lines bounded.
func truncatePayload(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
