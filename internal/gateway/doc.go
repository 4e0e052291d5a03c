// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway is the HTTP client for an OpenAI-compatible model hub.
//
// StreamChat opens a streaming chat completion and hands back the raw
// body; decoding is left to package stream. ListModels, CostMap and
// Catalog read the model list and the LiteLLM cost map.
//
// Usage:
//
//	client := gateway.NewClient(key).
//		WithBaseURL("http://localhost:4000").
//		WithRateLimit(2, 4)
//
//	body, err := client.StreamChat(ctx, &gateway.ChatRequest{
//		Model:    "gpt-4o",
//		Messages: gateway.MessagesFrom(history),
//		Params:   params.Fields(),
//	})
package gateway
