// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aihub-tui/internal/model"
)

func newTestClient(url string) *Client {
	return NewClient("sk-test-key").WithBaseURL(url).WithMaxRetries(0)
}

// =============================================================================
// STREAM CHAT
// =============================================================================

func TestStreamChat_SendsRequest(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ChatPath, r.URL.Path)
		assert.Equal(t, "Bearer sk-test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	stream, err := client.StreamChat(context.Background(), &ChatRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{{Role: "system", Content: "sys"}, {Role: "user", Content: "hello"}},
		Params:   map[string]any{"temperature": 0.7, "top_p": 0.9},
	})
	require.NoError(t, err)
	defer stream.Close()

	raw, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[DONE]")
	assert.NotEmpty(t, stream.RequestID)
	assert.Equal(t, http.StatusOK, stream.Status)

	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, true, body["stream"])
	assert.Equal(t, 0.7, body["temperature"])
	assert.Equal(t, 0.9, body["top_p"])
	assert.Len(t, body["messages"], 2)
}

func TestStreamChat_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		message  string
		sentinel error
	}{
		{"openai envelope", http.StatusUnauthorized, `{"error":{"message":"bad key","code":"401"}}`, "bad key", ErrAuthFailed},
		{"plain text", http.StatusInternalServerError, "upstream exploded", "upstream exploded", nil},
		{"empty body", http.StatusBadGateway, "", "", nil},
		{"detail", http.StatusNotFound, `{"detail":"no such model"}`, "no such model", ErrModelNotFound},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, "slow down", ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).StreamChat(context.Background(), &ChatRequest{
				Model:    "m",
				Messages: []ChatMessage{{Role: "user", Content: "x"}},
			})

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Contains(t, err.Error(), "HTTP error")
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestStreamChat_Validation(t *testing.T) {
	client := NewClient("")

	_, err := client.StreamChat(context.Background(), &ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "x"}}})
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = client.StreamChat(context.Background(), &ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestStreamChat_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(server.URL).StreamChat(ctx, &ChatRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: "user", Content: "x"}},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamChat_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).StreamChat(context.Background(), &ChatRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: "user", Content: "x"}},
	})
	var tErr *TransportError
	assert.ErrorAs(t, err, &tErr)
}

func TestChatRequest_MarshalJSON(t *testing.T) {
	req := ChatRequest{
		Model:    "m",
		Messages: []ChatMessage{{Role: "user", Content: "x"}},
		Params:   map[string]any{"temperature": 0.1, "stream": false, "model": "other"},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "m", got["model"], "request fields win over params")
	assert.Equal(t, true, got["stream"])
	assert.Equal(t, 0.1, got["temperature"])
}

func TestMessagesFrom(t *testing.T) {
	msgs := []model.Message{model.NewSystemMessage("s"), model.NewUserMessage("u")}
	assert.Equal(t, []ChatMessage{{Role: "system", Content: "s"}, {Role: "user", Content: "u"}}, MessagesFrom(msgs))
}

// =============================================================================
// MODELS
// =============================================================================

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("return_wildcard_routes"))
		assert.Equal(t, "application/json", r.Header.Get("accept"))
		assert.Equal(t, "sk-test-key", r.Header.Get("x-goog-api-key"))
		_, _ = io.WriteString(w, `{"data":[
			{"id":"gpt-4o","object":"model","created":1,"owned_by":"openai"},
			{"id":"claude-3-5-sonnet","object":"model"},
			{"id":""},
			{"id":"mystery"}
		]}`)
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 3)
	assert.Equal(t, "OpenAI", models[0].Provider)
	assert.Equal(t, "Anthropic", models[1].Provider)
	assert.Equal(t, model.ProviderOther, models[2].Provider)
}

func TestListModels_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"id":"gpt-4o"}]}`)
	}))
	defer server.Close()

	models, err := NewClient("").WithBaseURL(server.URL).WithMaxRetries(1).ListModels(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListModels_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient("").WithBaseURL(server.URL).WithMaxRetries(3).ListModels(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCatalog_MergesCostMap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/models":
			_, _ = io.WriteString(w, `{"data":[{"id":"azure/my-deploy"},{"id":"llama3"}]}`)
		case "/get/litellm_model_cost_map":
			_, _ = io.WriteString(w, `{
				"sample_spec": {"max_tokens": "set to max_output_tokens"},
				"my-deploy": {"litellm_provider":"azure","max_input_tokens":128000,"input_cost_per_token":0.000005,"mode":"chat"}
			}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "Azure", models[0].Provider)
	assert.Equal(t, 128000, models[0].MaxTokens)
	assert.Equal(t, "chat", models[0].Mode)
	assert.Equal(t, "Meta", models[1].Provider)
}

func TestCatalog_CostMapFailureIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			_, _ = io.WriteString(w, `{"data":[{"id":"qwen-72b"}]}`)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).Catalog(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "Alibaba", models[0].Provider)
}

// =============================================================================
// CLIENT
// =============================================================================

func TestClientMethodChaining(t *testing.T) {
	c := NewClient(" key ").
		WithBaseURL("http://hub:4000/").
		WithTimeout(5 * time.Second).
		WithRateLimit(10, 0).
		WithMaxRetries(-1)

	assert.Equal(t, "http://hub:4000", c.BaseURL())
	assert.True(t, c.IsConfigured())
	assert.Equal(t, 0, c.maxRetries)
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())

	assert.Nil(t, c.WithRateLimit(0, 1).limiter)
	assert.Equal(t, DefaultBaseURL, c.WithBaseURL("  ").BaseURL())
}

func TestAPIKeyMasked(t *testing.T) {
	assert.Equal(t, "[not set]", NewClient("").APIKeyMasked())

	masked := NewClient("sk-secret-value").APIKeyMasked()
	assert.NotContains(t, masked, "secret")
	assert.Contains(t, masked, "length=15")
	assert.Len(t, NewClient("k").KeyFingerprint(), 8)
}

func TestRateLimit_ContextCancelled(t *testing.T) {
	c := NewClient("").WithRateLimit(0.001, 1)
	require.NoError(t, c.wait(context.Background()), "first token is free")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.wait(ctx), ErrRateLimited)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&APIError{Status: 500}))
	assert.True(t, isRetryable(&APIError{Status: 429}))
	assert.False(t, isRetryable(&APIError{Status: 400}))
	assert.True(t, isRetryable(&TransportError{Op: "GET", Err: errors.New("reset")}))
	assert.False(t, isRetryable(context.Canceled))
	assert.False(t, isRetryable(errors.New("parse")))
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, calculateBackoff(1))
	assert.Equal(t, time.Second, calculateBackoff(2))
	assert.Equal(t, 2*time.Second, calculateBackoff(3))
	assert.Equal(t, retryMaxDelay, calculateBackoff(10))
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "HTTP error 500", (&APIError{Status: 500}).Error())
	assert.Equal(t, "HTTP error 400 [bad_request]: nope", (&APIError{Status: 400, Code: "bad_request", Message: "nope"}).Error())
}
