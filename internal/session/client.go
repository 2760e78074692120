// Package session owns one recognition task: it tracks lifecycle state,
// turns inbound signals into events, and gates outbound audio.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/nlsstream/internal/audio"
	"github.com/rbright/nlsstream/internal/event"
	"github.com/rbright/nlsstream/internal/fsm"
	"github.com/rbright/nlsstream/internal/results"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	MinStopGrace          = 500 * time.Millisecond
)

type Options struct {
	// ConnectTimeout bounds the wait for TranscriptionStarted.
	ConnectTimeout time.Duration
	// StopGrace bounds the wait for in-flight acknowledgments on Stop. It
	// is never shorter than MinStopGrace.
	StopGrace time.Duration
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.StopGrace < MinStopGrace {
		o.StopGrace = MinStopGrace
	}
	return o
}

// Snapshot is a consistent read of the session flags.
type Snapshot struct {
	State     fsm.State
	Connected bool
	Recording bool
}

// Client is one recognition session. It implements nls.Handler; inbound
// callbacks push events onto the results channel before updating state.
type Client struct {
	opts    Options
	dialer  Dialer
	results *results.Channel
	logger  *slog.Logger
	now     func() time.Time

	mu            sync.RWMutex
	state         fsm.State
	connected     bool
	recording     bool
	started       bool
	stopped       bool
	connectCalled bool
	transport     Transport
	warning       string
	failure       *ServiceError

	signaled   chan struct{}
	signalOnce sync.Once
	finished   chan struct{}
	finishOnce sync.Once
	closed     chan struct{}
	closeOnce  sync.Once
	stopOnce   sync.Once

	sendFailures atomic.Int64
}

// New constructs a Client. A nil results channel or logger is replaced
// with a private one.
func New(opts Options, dialer Dialer, ch *results.Channel, logger *slog.Logger) *Client {
	if ch == nil {
		ch = results.New()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		opts:     opts.withDefaults(),
		dialer:   dialer,
		results:  ch,
		logger:   logger,
		now:      time.Now,
		state:    fsm.StateDisconnected,
		signaled: make(chan struct{}),
		finished: make(chan struct{}),
		closed:   make(chan struct{}),
	}
}

// Connect opens the transport and waits for the start confirmation. It
// returns false with a *ServiceError when the service reports a failure
// first. When the deadline passes with neither signal it proceeds
// optimistically: true is returned and Warning reports the timeout.
func (c *Client) Connect(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.connectCalled {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: session already used", ErrConnect)
	}
	c.connectCalled = true
	c.apply(fsm.EventConnect)
	c.mu.Unlock()

	if c.dialer == nil {
		c.markFailed(&ServiceError{Message: "no dialer configured"})
		return false, fmt.Errorf("%w: no dialer configured", ErrConnect)
	}

	transport, err := c.dialer.Dial(ctx, c)
	if err != nil && ctx.Err() != nil {
		c.logger.Info("connect recognition session cancelled")
		return false, fmt.Errorf("%w: %w", ErrConnect, ctx.Err())
	}
	if err != nil {
		c.logger.Error("connect recognition session failed", "error", err.Error())
		c.mu.Lock()
		c.apply(fsm.EventFail)
		c.recording = false
		c.mu.Unlock()
		return false, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		_ = transport.Close()
		return false, fmt.Errorf("%w: stopped while connecting", ErrConnect)
	}
	c.transport = transport
	c.mu.Unlock()

	timer := time.NewTimer(c.opts.ConnectTimeout)
	defer timer.Stop()

	timedOut := false
	select {
	case <-c.signaled:
	case <-c.closed:
	case <-timer.C:
		timedOut = true
	case <-ctx.Done():
		c.logger.Info("connect recognition session cancelled")
		return false, fmt.Errorf("%w: %w", ErrConnect, ctx.Err())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.started:
		c.logger.Info("recognition session started")
		return true, nil
	case c.failure != nil:
		return false, c.failure
	case timedOut:
		c.warning = fmt.Sprintf("%v (%s); proceeding", ErrConnectTimeout, c.opts.ConnectTimeout)
		c.logger.Warn("recognition session start unconfirmed", "timeout", c.opts.ConnectTimeout.String())
		return true, nil
	default:
		return false, fmt.Errorf("%w: connection closed before start", ErrConnect)
	}
}

// SendAudio forwards one frame while recording. It returns false without
// touching the transport in any other state.
func (c *Client) SendAudio(frame audio.Frame) bool {
	c.mu.RLock()
	transport := c.transport
	ok := c.recording && c.state == fsm.StateRecording
	c.mu.RUnlock()

	if !ok || transport == nil {
		return false
	}
	if err := transport.SendAudio(frame.PCM); err != nil {
		if c.sendFailures.Add(1) == 1 {
			c.logger.Warn("send audio frame failed", "error", err.Error())
		}
		return false
	}
	return true
}

// Stop ends recording, requests a graceful close, waits up to the stop
// grace for acknowledgments and tears the transport down. Errors are
// logged, never returned. Calls after the first do nothing.
func (c *Client) Stop() {
	c.stopOnce.Do(c.stop)
}

func (c *Client) stop() {
	c.mu.Lock()
	c.stopped = true
	c.recording = false
	c.apply(fsm.EventStop)
	transport := c.transport
	c.mu.Unlock()

	if transport != nil {
		if err := transport.Stop(); err != nil {
			c.logger.Debug("request session stop failed", "error", err.Error())
		}

		grace := time.NewTimer(c.opts.StopGrace)
		select {
		case <-c.finished:
		case <-grace.C:
		}
		grace.Stop()

		if err := transport.Close(); err != nil {
			c.logger.Warn("close recognition transport failed", "error", err.Error())
		}
	}

	c.mu.Lock()
	c.connected = false
	c.apply(fsm.EventClose)
	c.mu.Unlock()
	c.logger.Info("recognition session stopped", "send_failures", c.sendFailures.Load())
}

func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{State: c.state, Connected: c.connected, Recording: c.recording}
}

func (c *Client) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Recording reports whether frames are currently accepted.
func (c *Client) Recording() bool {
	return c.Snapshot().Recording
}

// Warning describes a soft connect failure, or is empty.
func (c *Client) Warning() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warning
}

// Err returns the first service failure, if any.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.failure == nil {
		return nil
	}
	return c.failure
}

func (c *Client) OnStart(raw []byte) {
	c.push(event.Parse(event.KindStart, raw, c.now()))

	c.mu.Lock()
	if c.apply(fsm.EventStarted) {
		c.started = true
		c.connected = true
		c.recording = true
	}
	c.mu.Unlock()
	c.signal()
}

func (c *Client) OnSentenceBegin(raw []byte) {
	c.push(event.Parse(event.KindSentenceBegin, raw, c.now()))
}

func (c *Client) OnResultChanged(raw []byte) {
	c.push(event.Parse(event.KindResultChanged, raw, c.now()))
}

func (c *Client) OnSentenceEnd(raw []byte) {
	c.push(event.Parse(event.KindSentenceEnd, raw, c.now()))
}

func (c *Client) OnCompleted(raw []byte) {
	c.push(event.Parse(event.KindCompleted, raw, c.now()))

	c.mu.Lock()
	c.apply(fsm.EventCompleted)
	c.recording = false
	c.mu.Unlock()
	c.finish()
}

func (c *Client) OnError(raw []byte) {
	ev := event.NewError(raw, c.now())
	c.push(ev)

	c.logger.Error("recognition session failed",
		"status", ev.Header.Status,
		"status_text", ev.Header.StatusText,
	)
	c.markFailed(&ServiceError{
		Status:     ev.Header.Status,
		StatusText: ev.Header.StatusText,
		Message:    ev.Message,
	})
	c.finish()
}

func (c *Client) OnClose() {
	c.push(event.NewClosed(c.now()))

	c.mu.Lock()
	c.apply(fsm.EventClose)
	c.connected = false
	c.recording = false
	c.mu.Unlock()

	c.finish()
	c.closeOnce.Do(func() { close(c.closed) })
}

func (c *Client) OnUnparsed(raw []byte) {
	c.push(event.Unparsed("", raw, c.now()))
}

func (c *Client) markFailed(failure *ServiceError) {
	c.mu.Lock()
	c.apply(fsm.EventFail)
	c.recording = false
	if c.failure == nil {
		c.failure = failure
	}
	c.mu.Unlock()
	c.signal()
}

// apply runs one FSM transition. Callers hold c.mu.
func (c *Client) apply(ev fsm.Event) bool {
	next, err := fsm.Transition(c.state, ev)
	if err != nil {
		c.logger.Debug("ignored session transition", "error", err.Error())
		return false
	}
	c.state = next
	return true
}

func (c *Client) push(ev event.Event) {
	if !c.results.Push(ev) {
		c.logger.Debug("dropped event after results closed", "kind", string(ev.Kind))
	}
}

func (c *Client) signal() {
	c.signalOnce.Do(func() { close(c.signaled) })
}

func (c *Client) finish() {
	c.finishOnce.Do(func() { close(c.finished) })
}
