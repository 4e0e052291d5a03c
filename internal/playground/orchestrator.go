// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package playground

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/aihub-tui/internal/conversation"
	"github.com/jeranaias/aihub-tui/internal/gateway"
	"github.com/jeranaias/aihub-tui/internal/genconfig"
	"github.com/jeranaias/aihub-tui/internal/model"
	"github.com/jeranaias/aihub-tui/internal/stream"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

const (
	// DefaultMaxMalformedFrames is how many undecodable frames one session
	// tolerates. Zero disables the limit.
	DefaultMaxMalformedFrames = 16

	// DefaultProgressInterval is the progress estimator tick.
	DefaultProgressInterval = 300 * time.Millisecond
)

var (
	// ErrNoModel is returned by Send when no model is selected.
	ErrNoModel = gateway.ErrNoModel

	// ErrTooManyMalformed fails a session that exceeded the malformed budget.
	ErrTooManyMalformed = errors.New("too many malformed frames")

	// ErrCancelled is shown when a request is stopped before any text arrived.
	ErrCancelled = errors.New("request cancelled")
)

// Streamer opens streaming chat completions. *gateway.Client implements it.
type Streamer interface {
	StreamChat(ctx context.Context, req *gateway.ChatRequest) (*gateway.Stream, error)
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs send-to-completion cycles against a conversation
// machine. Each Send starts one goroutine that produces Events; Apply is the
// only place those events change the machine or the session.
type Orchestrator struct {
	machine  *conversation.Machine
	settings *genconfig.Manager

	mu               sync.Mutex
	client           Streamer
	dispatcher       Dispatcher
	session          *Session
	maxMalformed     int
	progressInterval time.Duration

	cancels *cancelManager
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDispatcher routes events through d instead of applying them inline.
func WithDispatcher(d Dispatcher) Option {
	return func(o *Orchestrator) {
		o.dispatcher = d
	}
}

// WithLogger sets the logger for session lifecycle and decode warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxMalformedFrames sets the malformed frame budget. Zero disables it.
func WithMaxMalformedFrames(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxMalformed = n
		}
	}
}

// WithProgressInterval sets the progress tick.
func WithProgressInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.progressInterval = d
		}
	}
}

// New creates an orchestrator. Without WithDispatcher, events are applied
// on the request goroutine as they are produced.
func New(machine *conversation.Machine, settings *genconfig.Manager, client Streamer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		machine:          machine,
		settings:         settings,
		client:           client,
		maxMalformed:     DefaultMaxMalformedFrames,
		progressInterval: DefaultProgressInterval,
		cancels:          newCancelManager(),
		logger:           slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.dispatcher == nil {
		o.dispatcher = DispatchFunc(o.Apply)
	}
	return o
}

// SetDispatcher replaces the dispatcher. It affects requests started after
// the call.
func (o *Orchestrator) SetDispatcher(d Dispatcher) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if d == nil {
		d = DispatchFunc(o.Apply)
	}
	o.dispatcher = d
}

// SetClient swaps the gateway client, for example after a config reload.
func (o *Orchestrator) SetClient(client Streamer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.client = client
}

// SetMaxMalformedFrames changes the malformed budget for later requests.
func (o *Orchestrator) SetMaxMalformedFrames(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if n >= 0 {
		o.maxMalformed = n
	}
}

// Machine returns the conversation machine.
func (o *Orchestrator) Machine() *conversation.Machine {
	return o.machine
}

// Settings returns the configuration manager.
func (o *Orchestrator) Settings() *genconfig.Manager {
	return o.settings
}

// Session returns a copy of the current or most recent session.
func (o *Orchestrator) Session() (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return Session{}, false
	}
	return o.session.clone(), true
}

// Active reports whether a session is still running.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session != nil && !o.session.Status.Terminal()
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Send validates the input, records the user turn and starts the request.
// It returns as soon as the request goroutine is running. ctx bounds the
// whole request and must outlive the call.
func (o *Orchestrator) Send(ctx context.Context, text string) (conversation.Token, error) {
	settings := o.settings.Snapshot()
	if settings.Model == "" {
		// Busy and empty input still take precedence.
		if o.machine.State() != conversation.StateIdle {
			return 0, conversation.ErrBusy
		}
		if strings.TrimSpace(text) == "" {
			return 0, conversation.ErrEmptyInput
		}
		return 0, ErrNoModel
	}

	turn, err := o.machine.Send(text)
	if err != nil {
		return 0, err
	}

	reqCtx, cancel := context.WithCancel(ctx)
	o.cancels.set(turn.Token, cancel)

	sess := &Session{
		ID:        uuid.NewString(),
		Token:     turn.Token,
		Model:     settings.Model,
		Status:    StatusPending,
		StartedAt: time.Now(),
	}

	o.mu.Lock()
	o.session = sess
	client := o.client
	dispatcher := o.dispatcher
	maxMalformed := o.maxMalformed
	interval := o.progressInterval
	o.mu.Unlock()

	req := &gateway.ChatRequest{
		Model:    settings.Model,
		Messages: gateway.MessagesFrom(turn.History),
		Params:   settings.Params.Fields(),
	}

	r := &run{
		ctx:          reqCtx,
		token:        turn.Token,
		client:       client,
		dispatcher:   dispatcher,
		maxMalformed: maxMalformed,
		interval:     interval,
		stats:        model.NewStatistics(),
		logger:       o.logger.With("session_id", sess.ID, "model", settings.Model),
	}

	r.logger.Info("session started", "messages", len(req.Messages))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.cancels.release(turn.Token)
		r.execute(req)
	}()

	return turn.Token, nil
}

// Apply folds one event into the machine and the session. Events whose
// token is no longer live change nothing.
func (o *Orchestrator) Apply(ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess := o.session
	current := sess != nil && sess.Token == ev.Token && !sess.Status.Terminal()

	switch ev.Kind {
	case EventStarted:
		if o.machine.BeginStream(ev.Token) && current {
			sess.Status = StatusStreaming
		}

	case EventDelta:
		if o.machine.ApplyDelta(ev.Token, ev.Fragment) && current {
			sess.Status = StatusStreaming
			sess.Text += ev.Fragment
		}

	case EventProgress:
		if current && ev.Progress > sess.Progress {
			sess.Progress = ev.Progress
		}

	case EventCompleted:
		o.machine.Complete(ev.Token, ev.Stats)
		if current {
			sess.Status = StatusDone
		}

	case EventFailed:
		o.machine.Fail(ev.Token, failureMessage(ev.Err))
		if current {
			sess.Status = StatusErrored
			sess.Err = ev.Err
		}

	case EventCancelled:
		if current && sess.Text == "" {
			o.machine.Fail(ev.Token, ErrCancelled.Error())
		} else {
			o.machine.Complete(ev.Token, ev.Stats)
		}
		if current {
			sess.Status = StatusCancelled
		}
	}

	if ev.Kind.Terminal() && current {
		sess.Progress = 100
		sess.Malformed = ev.Malformed
		if ev.Stats != nil {
			stats := *ev.Stats
			sess.Stats = &stats
		}
	}
}

// Cancel stops the live request. Text that already streamed is kept.
func (o *Orchestrator) Cancel() {
	o.cancels.cancelAll()
}

// Reset starts a new conversation with the pending system prompt and
// aborts any live request. Late events from that request are ignored.
func (o *Orchestrator) Reset() {
	prompt := o.settings.SystemPrompt()

	o.mu.Lock()
	o.machine.Reset(prompt)
	if o.session != nil && !o.session.Status.Terminal() {
		o.session.Status = StatusCancelled
		o.session.Progress = 100
		o.logger.Info("session cancelled by reset", "session_id", o.session.ID)
	}
	o.mu.Unlock()

	o.cancels.cancelAll()
}

// ApplySettings rewrites the system message with the pending system prompt.
// The rest of the conversation is kept.
func (o *Orchestrator) ApplySettings() {
	o.machine.ApplySystemPrompt(o.settings.SystemPrompt())
}

// Wait blocks until every request goroutine has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels the live request and waits for it to finish.
func (o *Orchestrator) Close() {
	o.Cancel()
	o.Wait()
}

// failureMessage is what the user sees after "Error: ".
func failureMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// =============================================================================
// REQUEST GOROUTINE
// =============================================================================

// run is the state of one request goroutine.
type run struct {
	ctx          context.Context
	token        conversation.Token
	client       Streamer
	dispatcher   Dispatcher
	maxMalformed int
	interval     time.Duration
	stats        *model.Statistics
	malformed    int
	logger       *slog.Logger
}

func (r *run) dispatch(ev Event) {
	ev.Token = r.token
	r.dispatcher.Dispatch(ev)
}

func (r *run) execute(req *gateway.ChatRequest) {
	if r.client == nil {
		r.finish(errors.New("no gateway client configured"))
		return
	}

	body, err := r.client.StreamChat(r.ctx, req)
	if err != nil {
		r.finish(err)
		return
	}
	defer body.Close()

	r.logger.Debug("stream accepted", "request_id", body.RequestID)
	r.dispatch(Event{Kind: EventStarted})

	stopProgress := r.startProgress()

	var text strings.Builder
	dec := stream.NewDecoder().WithLogger(r.logger)
	for frame, err := range dec.Frames(body) {
		if err != nil {
			stopProgress()
			r.finish(fmt.Errorf("stream read failed: %w", err))
			return
		}
		switch frame.Kind {
		case stream.FrameDelta:
			r.stats.RecordChunk()
			text.WriteString(frame.Content)
			r.dispatch(Event{Kind: EventDelta, Fragment: frame.Content})
		case stream.FrameFinish:
			r.stats.FinishReason = frame.FinishReason
		case stream.FrameMalformed:
			r.malformed = dec.Malformed()
			if r.maxMalformed > 0 && r.malformed > r.maxMalformed {
				stopProgress()
				r.finish(fmt.Errorf("%w (%d)", ErrTooManyMalformed, r.malformed))
				return
			}
		}
	}
	stopProgress()

	r.stats.Finalize(model.EstimateTokens(text.String()))
	if r.ctx.Err() != nil {
		r.finish(r.ctx.Err())
		return
	}

	r.logger.Info("session completed",
		"chunks", r.stats.Chunks, "malformed", r.malformed,
		"duration", r.stats.TotalDuration, "finish_reason", r.stats.FinishReason)
	r.dispatch(Event{Kind: EventCompleted, Stats: r.snapshotStats(), Malformed: r.malformed})
}

// finish ends the session with err. A cancelled context turns the failure
// into a cancellation.
func (r *run) finish(err error) {
	if r.stats.EndTime.IsZero() {
		r.stats.Finalize(0)
	}
	if r.ctx.Err() != nil {
		r.logger.Info("session cancelled", "chunks", r.stats.Chunks)
		r.dispatch(Event{Kind: EventCancelled, Stats: r.snapshotStats(), Malformed: r.malformed})
		return
	}
	r.logger.Warn("session failed", "error", err, "chunks", r.stats.Chunks, "malformed", r.malformed)
	r.dispatch(Event{Kind: EventFailed, Err: err, Stats: r.snapshotStats(), Malformed: r.malformed})
}

func (r *run) snapshotStats() *model.Statistics {
	s := *r.stats
	return &s
}

// startProgress ticks the progress estimator until the returned function
// is called. The function waits for the ticker goroutine to exit, so no
// progress event follows it.
func (r *run) startProgress() func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		var p Progress
		for {
			select {
			case <-stop:
				return
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.dispatch(Event{Kind: EventProgress, Progress: p.Step()})
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}
