// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"strings"
)

// =============================================================================
// DECODER CONSTANTS
// =============================================================================

const (
	// MaxFrameSize is the largest payload accepted for a single frame (64KB).
	MaxFrameSize = 64 * 1024

	// DoneSentinel is the payload of the terminal frame.
	DoneSentinel = "[DONE]"

	// ReadSize is the buffer size Frames uses per transport read.
	ReadSize = 32 * 1024

	separator = "data:"
)

// fieldPrefixes are SSE fields other than data. A line starting with one
// of them closes the open frame and is skipped.
var fieldPrefixes = []string{"event:", "id:", "retry:"}

// =============================================================================
// DECODER
// =============================================================================

// Decoder turns raw transport chunks into frames. It is stateful, single
// pass and not safe for concurrent use.
type Decoder struct {
	buf   []byte
	pos   int // scan cursor into buf
	start int // payload start of the open frame, -1 when none

	lineStart bool
	inString  bool
	escaped   bool
	skipLine  bool
	discard   bool // dropping the tail of an oversized frame

	done      bool // [DONE] seen
	closed    bool // Flush called
	malformed int

	maxFrame int
	logger   *slog.Logger
}

// NewDecoder creates a decoder with the default frame size limit and a
// discarding logger.
func NewDecoder() *Decoder {
	return &Decoder{
		start:     -1,
		lineStart: true,
		maxFrame:  MaxFrameSize,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger used for decode warnings.
func (d *Decoder) WithLogger(logger *slog.Logger) *Decoder {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Done reports whether the terminal sentinel has been decoded.
func (d *Decoder) Done() bool {
	return d.done
}

// Malformed returns how many frames were dropped so far.
func (d *Decoder) Malformed() int {
	return d.malformed
}

// Feed appends one transport chunk and returns every frame it completed.
// Input after the terminal sentinel or after Flush is ignored.
func (d *Decoder) Feed(chunk []byte) []Frame {
	if d.done || d.closed || len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)
	out := d.scan()
	out = d.closeIfDone(out)
	d.compact()
	return out
}

// Flush closes the open frame at end of stream. Held text is final at this
// point, so it is parsed as is.
func (d *Decoder) Flush() []Frame {
	if d.done || d.closed {
		return nil
	}
	d.closed = true
	out := d.closeFrame(nil, len(d.buf))
	d.buf = nil
	d.pos = 0
	return out
}

// Frames reads r to exhaustion and yields frames lazily. Iteration stops
// after the terminal sentinel, at end of stream, or on the first read
// error, which is yielded with a zero Frame.
func (d *Decoder) Frames(r io.Reader) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		buf := make([]byte, ReadSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, f := range d.Feed(buf[:n]) {
					if !yield(f, nil) {
						return
					}
				}
				if d.done {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				for _, f := range d.Flush() {
					if !yield(f, nil) {
						return
					}
				}
				return
			}
			if err != nil {
				yield(Frame{}, err)
				return
			}
		}
	}
}

// =============================================================================
// SCANNER
// =============================================================================

// scan advances the cursor as far as the buffered text is decidable.
func (d *Decoder) scan() []Frame {
	var out []Frame

scan:
	for d.pos < len(d.buf) && !d.done {
		if d.start >= 0 && d.pos-d.start > d.maxFrame {
			out = d.dropOversized(out)
		}
		c := d.buf[d.pos]

		if d.skipLine {
			if c == '\n' {
				d.skipLine = false
				d.lineStart = true
			}
			d.pos++
			continue
		}

		if d.inString {
			switch {
			case c == '\n':
				// JSON strings cannot hold a raw newline; treat it as a line end.
				d.inString, d.escaped = false, false
			case d.escaped:
				d.escaped = false
				d.pos++
				continue
			case c == '\\':
				d.escaped = true
				d.pos++
				continue
			case c == '"':
				d.inString = false
				d.pos++
				continue
			default:
				d.pos++
				continue
			}
		}

		switch c {
		case '\r':
			d.pos++
			continue
		case '\n':
			if d.lineStart {
				out = d.closeFrame(out, d.pos)
				d.discard = false
			}
			d.lineStart = true
			d.pos++
			continue
		case '"':
			if d.start >= 0 || d.discard {
				d.inString = true
			}
			d.lineStart = false
			d.pos++
			continue
		}

		rest := d.buf[d.pos:]
		match, partial := hasToken(rest, separator)
		if partial {
			break scan
		}
		if match {
			out = d.closeFrame(out, d.pos)
			d.discard = false
			d.pos += len(separator)
			d.start = d.pos
			d.lineStart = false
			continue
		}

		if d.lineStart {
			isField := c == ':'
			for _, prefix := range fieldPrefixes {
				m, p := hasToken(rest, prefix)
				if p {
					break scan
				}
				isField = isField || m
			}
			if isField {
				out = d.closeFrame(out, d.pos)
				d.discard = false
				d.skipLine = true
				d.pos++
				continue
			}
		}

		d.lineStart = false
		d.pos++
	}

	return out
}

// closeIfDone closes an open frame whose payload is already the sentinel,
// so callers can stop reading without waiting for a terminator.
func (d *Decoder) closeIfDone(out []Frame) []Frame {
	if d.done || d.start < 0 || d.inString {
		return out
	}
	end := d.pos
	if bytes.Equal(bytes.TrimSpace(d.buf[d.start:end]), []byte(DoneSentinel)) {
		out = d.closeFrame(out, end)
	}
	return out
}

// closeFrame parses buf[start:end] as the payload of the open frame.
func (d *Decoder) closeFrame(out []Frame, end int) []Frame {
	if d.start < 0 {
		return out
	}
	if end > len(d.buf) {
		end = len(d.buf)
	}
	payload := strings.TrimSpace(string(d.buf[d.start:end]))
	d.start = -1
	d.inString, d.escaped = false, false
	return append(out, d.parse(payload)...)
}

// dropOversized abandons the open frame once it passes the size limit.
// Text up to the next separator is then ignored. String state is kept, so
// a separator quoted inside the dropped tail does not open a frame.
func (d *Decoder) dropOversized(out []Frame) []Frame {
	head := string(d.buf[d.start:min(len(d.buf), d.start+120)])
	d.start = -1
	d.discard = true
	return append(out, d.malformedFrame(head, ErrFrameTooLarge))
}

// compact discards text the scanner no longer needs.
func (d *Decoder) compact() {
	keep := d.pos
	if d.start >= 0 && d.start < keep {
		keep = d.start
	}
	if keep == 0 {
		return
	}
	n := copy(d.buf, d.buf[keep:])
	d.buf = d.buf[:n]
	d.pos -= keep
	if d.start >= 0 {
		d.start -= keep
	}
}

// parse classifies one complete, trimmed payload.
func (d *Decoder) parse(payload string) []Frame {
	switch payload {
	case "":
		return nil
	case DoneSentinel:
		d.done = true
		return []Frame{{Kind: FrameDone}}
	}

	var chunk Chunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return []Frame{d.malformedFrame(payload, err)}
	}

	if chunk.Error != nil {
		d.logger.Warn("gateway reported an error inside the stream",
			"message", chunk.Error.Message, "type", chunk.Error.Type)
	}

	var out []Frame
	if content := chunk.GetContent(); content != "" {
		out = append(out, Frame{Kind: FrameDelta, Content: content})
	}
	if reason := chunk.GetFinishReason(); reason != "" {
		out = append(out, Frame{Kind: FrameFinish, FinishReason: reason})
	}
	return out
}

func (d *Decoder) malformedFrame(payload string, err error) Frame {
	d.malformed++
	fe := &FrameError{Payload: truncatePayload(payload), Err: err}
	d.logger.Warn("dropping malformed stream frame", "error", fe, "dropped", d.malformed)
	return Frame{Kind: FrameMalformed, Err: fe}
}

// hasToken reports whether rest starts with tok, or whether rest is too
// short to tell and could still become tok.
func hasToken(rest []byte, tok string) (match, partial bool) {
	if len(rest) >= len(tok) {
		return bytes.HasPrefix(rest, []byte(tok)), false
	}
	return false, strings.HasPrefix(tok, string(rest))
}
