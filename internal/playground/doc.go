// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package playground drives one send-to-completion cycle at a time.
//
// Send records the user turn in the conversation machine, snapshots the
// generation settings and starts a goroutine that posts the request, feeds
// the response through the stream decoder and emits Events. Events reach
// the machine only through Apply, either inline (headless use) or via a
// Dispatcher such as the Bubble Tea program, which serializes them with
// every other state change.
//
// While a reply streams, a progress estimate climbs toward 95 and jumps to
// 100 when the session ends. Reset aborts the live request; its late events
// carry a token the machine no longer accepts.
package playground
