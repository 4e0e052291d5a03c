// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package playground

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/gateway"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// HELPERS
// =============================================================================

func deltaFrame(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": content}}},
	})
	return "data: " + string(payload) + "\n\n"
}

// sseServer streams each frame in its own flushed write.
func sseServer(t *testing.T, frames ...string) (*httptest.Server, func() []byte) {
	t.Helper()
	var body []byte
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = raw
		mu.Unlock()

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, f := range frames {
			_, _ = io.WriteString(w, f)
			flusher.Flush()
		}
	}))
	t.Cleanup(server.Close)
	return server, func() []byte {
		mu.Lock()
		defer mu.Unlock()
		return body
	}
}

func newTestSettings() *genconfig.Manager {
	s := genconfig.NewManager()
	s.SetModel("test-model")
	s.SetSystemPrompt("You are helpful.")
	return s
}

func newTestOrchestrator(client Streamer, opts ...Option) *Orchestrator {
	machine := conversation.New("You are helpful.", "")
	return New(machine, newTestSettings(), client, opts...)
}

func contents(msgs []model.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

// pipeStreamer hands each accepted request's body writer to the test.
type pipeStreamer struct {
	writers chan *io.PipeWriter
	err     error
}

func newPipeStreamer() *pipeStreamer {
	return &pipeStreamer{writers: make(chan *io.PipeWriter, 1)}
}

func (p *pipeStreamer) StreamChat(ctx context.Context, req *gateway.ChatRequest) (*gateway.Stream, error) {
	if p.err != nil {
		return nil, p.err
	}
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		_ = pw.CloseWithError(ctx.Err())
	}()
	p.writers <- pw
	return &gateway.Stream{ReadCloser: pr, RequestID: "test"}, nil
}

func (p *pipeStreamer) next(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-p.writers:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the streamer")
		return nil
	}
}

func lastContent(o *Orchestrator) string {
	return o.Machine().Snapshot().Last().Content
}

// =============================================================================
// END TO END
// =============================================================================

func TestEndToEnd_HTTP(t *testing.T) {
	server, body := sseServer(t, deltaFrame("Hi"), deltaFrame(" there"), "data: [DONE]\n\n")
	client := gateway.NewClient("key").WithBaseURL(server.URL)
	o := newTestOrchestrator(client)

	tok, err := o.Send(context.Background(), "Hi")
	require.NoError(t, err)
	assert.NotZero(t, tok)
	o.Wait()

	snap := o.Machine().Snapshot()
	assert.Equal(t, []string{"You are helpful.", conversation.DefaultGreeting, "Hi", "Hi there"}, contents(snap.Messages))
	assert.Equal(t, []model.Role{model.RoleSystem, model.RoleAssistant, model.RoleUser, model.RoleAssistant},
		[]model.Role{snap.Messages[0].Role, snap.Messages[1].Role, snap.Messages[2].Role, snap.Messages[3].Role})
	assert.Equal(t, conversation.StateIdle, snap.State)
	assert.False(t, snap.Last().Streaming)

	sess, ok := o.Session()
	require.True(t, ok)
	assert.Equal(t, StatusDone, sess.Status)
	assert.Equal(t, 100.0, sess.Progress)
	assert.Equal(t, "Hi there", sess.Text)
	require.NotNil(t, sess.Stats)
	assert.Equal(t, 2, sess.Stats.Chunks)
	assert.Len(t, sess.ID, 36)
	assert.False(t, o.Active())

	var req map[string]any
	require.NoError(t, json.Unmarshal(body(), &req))
	assert.Equal(t, "test-model", req["model"])
	assert.Equal(t, true, req["stream"])
	assert.Equal(t, 0.7, req["temperature"])
	assert.Len(t, req["messages"], 3, "placeholder is not sent")
}

func TestEndToEnd_EOFWithoutDone(t *testing.T) {
	server, _ := sseServer(t, deltaFrame("a"), "data: {\"choices\":[{\"delta\":{\"content\":\"b\"},\"finish_reason\":\"stop\"}]}")
	o := newTestOrchestrator(gateway.NewClient("").WithBaseURL(server.URL))

	_, err := o.Send(context.Background(), "x")
	require.NoError(t, err)
	o.Wait()

	assert.Equal(t, "ab", lastContent(o), "the unterminated last frame is flushed at EOF")
	sess, _ := o.Session()
	assert.Equal(t, "stop", sess.Stats.FinishReason)
}

func TestNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream down"}}`)
	}))
	defer server.Close()

	o := newTestOrchestrator(gateway.NewClient("").WithBaseURL(server.URL))
	_, err := o.Send(context.Background(), "Hi")
	require.NoError(t, err)
	o.Wait()

	snap := o.Machine().Snapshot()
	require.Len(t, snap.Messages, 4)
	assert.Equal(t, "Hi", snap.Messages[2].Content, "history is kept")
	assert.Equal(t, "Error: HTTP error 500: upstream down", snap.Last().Content)
	assert.Equal(t, conversation.StateIdle, snap.State)

	sess, _ := o.Session()
	assert.Equal(t, StatusErrored, sess.Status)
	var apiErr *gateway.APIError
	assert.ErrorAs(t, sess.Err, &apiErr)
	assert.Empty(t, sess.Text)
}

// =============================================================================
// GUARDS
// =============================================================================

func TestSend_Guards(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		o := newTestOrchestrator(newPipeStreamer())
		_, err := o.Send(context.Background(), "   ")
		assert.ErrorIs(t, err, conversation.ErrEmptyInput)
		assert.Len(t, o.Machine().Snapshot().Messages, 2)
	})

	t.Run("no model", func(t *testing.T) {
		o := New(conversation.New("", ""), genconfig.NewManager(), newPipeStreamer())
		_, err := o.Send(context.Background(), "hello")
		assert.ErrorIs(t, err, ErrNoModel)
		assert.Len(t, o.Machine().Snapshot().Messages, 2)
		_, ok := o.Session()
		assert.False(t, ok)
	})

	t.Run("idempotent while busy", func(t *testing.T) {
		p := newPipeStreamer()
		o := newTestOrchestrator(p)

		_, err := o.Send(context.Background(), "a")
		require.NoError(t, err)
		_, err = o.Send(context.Background(), "a")
		assert.ErrorIs(t, err, conversation.ErrBusy)

		snap := o.Machine().Snapshot()
		assert.Len(t, snap.Messages, 4, "one user message and one placeholder")

		w := p.next(t)
		_ = w.Close()
		o.Wait()
	})
}

// =============================================================================
// FAILURES
// =============================================================================

func TestMidStreamReadError(t *testing.T) {
	p := newPipeStreamer()
	o := newTestOrchestrator(p)

	_, err := o.Send(context.Background(), "Hi")
	require.NoError(t, err)

	w := p.next(t)
	_, _ = io.WriteString(w, deltaFrame("partial"))
	_ = w.CloseWithError(errors.New("connection reset"))
	o.Wait()

	snap := o.Machine().Snapshot()
	assert.Equal(t, "partial\n\nError: stream read failed: connection reset", snap.Last().Content)
	assert.Equal(t, "Hi", snap.Messages[2].Content)

	sess, _ := o.Session()
	assert.Equal(t, StatusErrored, sess.Status)
	assert.Equal(t, "partial", sess.Text)
}

func TestStreamChatError(t *testing.T) {
	p := newPipeStreamer()
	p.err = &gateway.TransportError{Op: "POST /v1/chat/completions", Err: errors.New("dial tcp: refused")}
	o := newTestOrchestrator(p)

	_, err := o.Send(context.Background(), "Hi")
	require.NoError(t, err)
	o.Wait()

	assert.True(t, strings.HasPrefix(lastContent(o), "Error: POST /v1/chat/completions: dial tcp"))
}

func TestMalformedBudget(t *testing.T) {
	frames := []string{"data: not-json\n\n", "data: {bad\n\n", "data: [1,\n\n", deltaFrame("ok"), "data: [DONE]\n\n"}

	t.Run("exceeded", func(t *testing.T) {
		server, _ := sseServer(t, frames...)
		o := newTestOrchestrator(gateway.NewClient("").WithBaseURL(server.URL), WithMaxMalformedFrames(2))

		_, err := o.Send(context.Background(), "x")
		require.NoError(t, err)
		o.Wait()

		sess, _ := o.Session()
		assert.Equal(t, StatusErrored, sess.Status)
		assert.ErrorIs(t, sess.Err, ErrTooManyMalformed)
		assert.Equal(t, 3, sess.Malformed)
		assert.Contains(t, lastContent(o), "too many malformed frames")
	})

	t.Run("disabled", func(t *testing.T) {
		server, _ := sseServer(t, frames...)
		o := newTestOrchestrator(gateway.NewClient("").WithBaseURL(server.URL), WithMaxMalformedFrames(0))

		_, err := o.Send(context.Background(), "x")
		require.NoError(t, err)
		o.Wait()

		sess, _ := o.Session()
		assert.Equal(t, StatusDone, sess.Status)
		assert.Equal(t, 3, sess.Malformed)
		assert.Equal(t, "ok", lastContent(o))
	})
}

// =============================================================================
// RESET AND CANCEL
// =============================================================================

func TestReset_DuringStreaming(t *testing.T) {
	p := newPipeStreamer()
	o := newTestOrchestrator(p)

	tok, err := o.Send(context.Background(), "Hi")
	require.NoError(t, err)

	w := p.next(t)
	_, _ = io.WriteString(w, deltaFrame("partial"))
	require.Eventually(t, func() bool { return lastContent(o) == "partial" }, 2*time.Second, 5*time.Millisecond)

	o.Reset()

	// A delta that was already buffered for the old session arrives late.
	o.Apply(Event{Kind: EventDelta, Token: tok, Fragment: " late"})
	o.Apply(Event{Kind: EventCompleted, Token: tok})
	o.Wait()

	snap := o.Machine().Snapshot()
	assert.Equal(t, []string{"You are helpful.", conversation.DefaultGreeting}, contents(snap.Messages))
	assert.Equal(t, conversation.StateIdle, snap.State)

	sess, _ := o.Session()
	assert.Equal(t, StatusCancelled, sess.Status)
	assert.Equal(t, 100.0, sess.Progress)
}

func TestReset_UsesPendingSystemPrompt(t *testing.T) {
	o := newTestOrchestrator(newPipeStreamer())
	_, err := o.Settings().ApplyPreset("precise")
	require.NoError(t, err)

	o.Reset()
	assert.Contains(t, o.Machine().SystemPrompt(), "precise AI assistant")
	assert.Len(t, o.Machine().Snapshot().Messages, 2)
}

func TestApplySettings_KeepsConversation(t *testing.T) {
	server, _ := sseServer(t, deltaFrame("hey"), "data: [DONE]\n\n")
	o := newTestOrchestrator(gateway.NewClient("").WithBaseURL(server.URL))
	_, err := o.Send(context.Background(), "Hi")
	require.NoError(t, err)
	o.Wait()

	o.Settings().SetSystemPrompt("Be terse.")
	o.ApplySettings()

	snap := o.Machine().Snapshot()
	assert.Equal(t, []string{"Be terse.", conversation.DefaultGreeting, "Hi", "hey"}, contents(snap.Messages))
}

func TestCancel(t *testing.T) {
	t.Run("keeps partial text", func(t *testing.T) {
		p := newPipeStreamer()
		o := newTestOrchestrator(p)
		_, err := o.Send(context.Background(), "Hi")
		require.NoError(t, err)

		w := p.next(t)
		_, _ = io.WriteString(w, deltaFrame("half"))
		require.Eventually(t, func() bool { return lastContent(o) == "half" }, 2*time.Second, 5*time.Millisecond)

		o.Cancel()
		o.Wait()

		assert.Equal(t, "half", lastContent(o))
		assert.Equal(t, conversation.StateIdle, o.Machine().State())
		sess, _ := o.Session()
		assert.Equal(t, StatusCancelled, sess.Status)
	})

	t.Run("before any text", func(t *testing.T) {
		p := newPipeStreamer()
		o := newTestOrchestrator(p)
		_, err := o.Send(context.Background(), "Hi")
		require.NoError(t, err)
		p.next(t)

		o.Close()
		assert.Equal(t, "Error: request cancelled", lastContent(o))
	})

	t.Run("parent context", func(t *testing.T) {
		p := newPipeStreamer()
		o := newTestOrchestrator(p)
		ctx, cancel := context.WithCancel(context.Background())
		_, err := o.Send(ctx, "Hi")
		require.NoError(t, err)
		p.next(t)

		cancel()
		o.Wait()
		assert.Equal(t, conversation.StateIdle, o.Machine().State())
	})
}

// =============================================================================
// EVENTS AND PROGRESS
// =============================================================================

func TestDispatcher_ReceivesOrderedEvents(t *testing.T) {
	server, _ := sseServer(t, deltaFrame("a"), deltaFrame("b"), deltaFrame("c"), "data: [DONE]\n\n")

	var mu sync.Mutex
	var kinds []EventKind
	var o *Orchestrator
	o = newTestOrchestrator(gateway.NewClient("").WithBaseURL(server.URL),
		WithProgressInterval(time.Hour),
		WithDispatcher(DispatchFunc(func(ev Event) {
			mu.Lock()
			kinds = append(kinds, ev.Kind)
			mu.Unlock()
			o.Apply(ev)
		})))

	tok, err := o.Send(context.Background(), "x")
	require.NoError(t, err)
	o.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{EventStarted, EventDelta, EventDelta, EventDelta, EventCompleted}, kinds)
	assert.Equal(t, tok, conversation.Token(1))
	assert.Equal(t, "abc", lastContent(o))
}

func TestProgressEvents(t *testing.T) {
	p := newPipeStreamer()
	o := newTestOrchestrator(p, WithProgressInterval(5*time.Millisecond))

	_, err := o.Send(context.Background(), "x")
	require.NoError(t, err)
	w := p.next(t)

	require.Eventually(t, func() bool {
		s, _ := o.Session()
		return s.Progress > 20
	}, 2*time.Second, 5*time.Millisecond)

	sess, _ := o.Session()
	assert.LessOrEqual(t, sess.Progress, ProgressCap)

	_ = w.Close()
	o.Wait()
	sess, _ = o.Session()
	assert.Equal(t, 100.0, sess.Progress)
}

func TestProgress_Estimator(t *testing.T) {
	var p Progress
	assert.InDelta(t, 10.0, p.Step(), 1e-9)
	assert.InDelta(t, 19.0, p.Step(), 1e-9)

	prev := p.Value()
	for i := 0; i < 200; i++ {
		v := p.Step()
		assert.GreaterOrEqual(t, v, prev)
		assert.LessOrEqual(t, v, ProgressCap)
		prev = v
	}
	assert.Equal(t, ProgressCap, p.Value())
}

func TestStatusAndKindStrings(t *testing.T) {
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.True(t, StatusErrored.Terminal())
	assert.False(t, StatusStreaming.Terminal())
	assert.Equal(t, "delta", EventDelta.String())
	assert.True(t, EventCancelled.Terminal())
	assert.False(t, EventProgress.Terminal())
}

func TestExamples(t *testing.T) {
	assert.Len(t, ExamplePrompts(), 4)

	first, err := Example(1)
	require.NoError(t, err)
	assert.Equal(t, "Explain quantum computing in simple terms", first)

	for _, n := range []int{0, 5} {
		_, err := Example(n)
		assert.Error(t, err, fmt.Sprint(n))
	}
}
