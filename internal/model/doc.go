// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for messages, transcripts and
// gateway models.
//
// # Key Types
//
//   - Message: single chat message with role, content, timestamp and stats
//   - Role: message role enumeration (system, user, assistant)
//   - Statistics: streaming timing and chunk counts for one assistant turn
//   - Transcript: read-only copy of a conversation used for export
//   - ModelInfo: a model advertised by the gateway, with inferred provider
//
// # Usage
//
//	msg := model.NewUserMessage("Hello!")
//	fmt.Println(msg.Role.DisplayName(), model.EstimateTokens(msg.Content))
//
//	info := model.ModelInfo{ID: "gpt-4o-mini"}
//	fmt.Println(model.InferProvider(info.ID, "")) // OpenAI
package model
