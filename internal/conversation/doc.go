// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation implements the playground conversation state machine.
//
// The Machine owns the ordered message log. Index 0 is always the single
// system message; a new conversation is seeded with the system prompt and
// an assistant greeting.
//
// # States
//
//	idle --Send--> sending --BeginStream/ApplyDelta--> streaming --Complete--> idle
//	sending|streaming --Fail--> idle (placeholder shows "Error: ...")
//	any --Reset--> idle (fresh log, live token orphaned)
//
// Send mints a Token. Every later transition for that turn carries the
// token and is a no-op once it is no longer live, which is how a response
// that outlives a Reset is kept out of the new conversation.
package conversation
