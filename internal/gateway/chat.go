// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/jeranaias/aihub-tui/internal/model"
)

// ChatPath is the streaming chat completions endpoint.
const ChatPath = "/v1/chat/completions"

// ChatMessage is one message on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesFrom converts conversation messages to wire messages.
func MessagesFrom(msgs []model.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{Role: m.Role.String(), Content: m.Content})
	}
	return out
}

// ChatRequest is a streaming chat completion request. Params are spread
// into the top level of the body next to model and messages.
type ChatRequest struct {
	Model    string
	Messages []ChatMessage
	Params   map[string]any
}

// MarshalJSON writes {model, messages, ...params, stream: true}. The
// request's own fields win over params of the same name.
func (r ChatRequest) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(r.Params)+3)
	maps.Copy(body, r.Params)
	body["model"] = r.Model
	body["messages"] = r.Messages
	body["stream"] = true
	return json.Marshal(body)
}

// Validate checks the request before it is sent.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return ErrNoModel
	}
	if len(r.Messages) == 0 {
		return ErrNoMessages
	}
	return nil
}

// Stream is an accepted streaming response. The caller must Close it.
type Stream struct {
	io.ReadCloser
	RequestID string
	Status    int
}

// StreamChat posts the request and returns the body once the gateway
// answers 2xx. Any other status is returned as *APIError with the body
// consumed and closed. Cancelling ctx aborts the transfer.
func (c *Client) StreamChat(ctx context.Context, req *ChatRequest) (*Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	httpReq, requestID, err := c.newRequest(ctx, http.MethodPost, ChatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.send(c.streamClient, httpReq, requestID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := newAPIError(resp, requestID)
		c.logger.Warn("chat request rejected",
			"model", req.Model, "status", apiErr.Status, "request_id", requestID, "error", apiErr.Message)
		return nil, apiErr
	}

	return &Stream{ReadCloser: resp.Body, RequestID: requestID, Status: resp.StatusCode}, nil
}
