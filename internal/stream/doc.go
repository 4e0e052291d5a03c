// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the server-sent-event body of a streaming
// chat-completion response into typed frames.
//
// The gateway writes one JSON chunk per `data:` frame and finishes with the
// literal sentinel `data: [DONE]`. Transport chunks arrive with no alignment
// to frames, so the Decoder buffers any frame whose payload is not yet
// terminated and only parses complete text.
//
// # Frame boundaries
//
// A frame starts at a `data:` token that is not inside a JSON string and
// ends at the next such token, at a blank line, or at a non-data field line
// (`event:`, `id:`, `retry:` or a `:` comment). Flush closes whatever frame
// is still open once the transport reports end of stream.
//
// # Usage
//
//	dec := stream.NewDecoder().WithLogger(logger)
//	for frame, err := range dec.Frames(resp.Body) {
//	    if err != nil {
//	        return err
//	    }
//	    if frame.Kind == stream.FrameDelta {
//	        fmt.Print(frame.Content)
//	    }
//	}
//
// Malformed frames are reported as FrameMalformed and never stop the
// sequence; deciding when too many is too many belongs to the caller.
package stream
