// Package nls speaks the NLS real-time transcription protocol over a
// websocket and fans inbound messages out to a Handler.
package nls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrSendClosed is returned when writing to a connection that has been
// closed locally.
var ErrSendClosed = errors.New("nls connection closed for sending")

// Handler receives inbound session signals. All methods are invoked from
// a single goroutine in arrival order. OnClose is called exactly once,
// last.
type Handler interface {
	OnStart(raw []byte)
	OnSentenceBegin(raw []byte)
	OnResultChanged(raw []byte)
	OnSentenceEnd(raw []byte)
	OnCompleted(raw []byte)
	OnError(raw []byte)
	OnClose()
	OnUnparsed(raw []byte)
}

// Config controls the handshake and StartTranscription request.
type Config struct {
	URL    string
	Token  string
	AppKey string

	Format     string
	SampleRate int

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	UserAgent        string

	// DebugSink receives every inbound text message followed by a newline.
	DebugSink io.Writer
	Logger    *slog.Logger
}

// DefaultConfig returns 16 kHz PCM. StartTranscription always enables
// interim results, punctuation and inverse text normalization.
func DefaultConfig() Config {
	return Config{
		Format:           "pcm",
		SampleRate:       16000,
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(c.Format) == "" {
		c.Format = defaults.Format
	}
	if c.SampleRate <= 0 {
		c.SampleRate = defaults.SampleRate
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Conn is one transcription task on one websocket.
type Conn struct {
	cfg    Config
	ws     *websocket.Conn
	taskID string

	handler Handler

	writeMu   sync.Mutex
	stopOnce  sync.Once
	closeOnce sync.Once
	closing   atomic.Bool

	// finished is set once the gateway reported the task's outcome.
	finished atomic.Bool
	done     chan struct{}
}

// closeWait bounds how long Close waits for the read loop to drain.
const closeWait = 2 * time.Second

// Dial opens the websocket, sends StartTranscription and starts the read
// loop. Handler callbacks may fire before Dial returns.
func Dial(ctx context.Context, cfg Config, handler Handler) (*Conn, error) {
	if handler == nil {
		return nil, errors.New("nls handler is nil")
	}
	cfg = cfg.withDefaults()
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, errors.New("nls url is empty")
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.HandshakeTimeout,
	}
	header := http.Header{}
	header.Set(TokenHeader, cfg.Token)
	if cfg.UserAgent != "" {
		header.Set("User-Agent", cfg.UserAgent)
	}

	ws, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial nls gateway %q: %w (HTTP %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial nls gateway %q: %w", endpoint, err)
	}

	c := &Conn{
		cfg:     cfg,
		ws:      ws,
		taskID:  newID(),
		handler: handler,
		done:    make(chan struct{}),
	}
	if err := c.writeJSON(startRequest(cfg, c.taskID)); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("send start request: %w", err)
	}

	cfg.Logger.Debug("nls task started", "task_id", c.taskID)
	go c.readLoop()
	return c, nil
}

// TaskID returns the transcription task identifier.
func (c *Conn) TaskID() string {
	return c.taskID
}

// Done is closed once the read loop has exited and OnClose has run.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// SendAudio writes one binary audio frame.
func (c *Conn) SendAudio(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	if c.closing.Load() {
		return ErrSendClosed
	}
	return c.write(websocket.BinaryMessage, frame)
}

// Stop requests a graceful end of the task. Only the first call writes.
func (c *Conn) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		if c.closing.Load() {
			err = ErrSendClosed
			return
		}
		err = c.writeJSON(stopRequest(c.cfg, c.taskID))
	})
	return err
}

// Close sends a close frame, tears down the socket and waits briefly for
// the read loop to deliver OnClose.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		deadline := time.Now().Add(c.cfg.WriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if writeErr := c.ws.WriteControl(websocket.CloseMessage, msg, deadline); writeErr != nil && !isClosedConn(writeErr) {
			c.cfg.Logger.Debug("write nls close frame failed", "error", writeErr.Error())
		}
		if closeErr := c.ws.Close(); closeErr != nil && !isClosedConn(closeErr) {
			err = fmt.Errorf("close nls connection: %w", closeErr)
		}
	})

	timer := time.NewTimer(closeWait)
	defer timer.Stop()
	select {
	case <-c.done:
	case <-timer.C:
		c.cfg.Logger.Warn("nls read loop did not exit after close", "task_id", c.taskID)
	}
	return err
}

func (c *Conn) readLoop() {
	defer close(c.done)
	defer c.handler.OnClose()
	defer func() { _ = c.ws.Close() }()

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			switch {
			case c.closing.Load() || isNormalClose(err):
			case c.finished.Load():
				c.cfg.Logger.Debug("nls connection dropped after task finished", "task_id", c.taskID, "error", err.Error())
			default:
				c.cfg.Logger.Warn("nls read failed", "task_id", c.taskID, "error", err.Error())
				c.handler.OnError(transportFailure(c.taskID, err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if sink := c.cfg.DebugSink; sink != nil {
			_, _ = sink.Write(append(data, '\n'))
		}
		c.dispatch(data)
	}
}

func (c *Conn) dispatch(data []byte) {
	name, ok := messageName(data)
	if !ok {
		c.handler.OnUnparsed(data)
		return
	}

	switch name {
	case NameTranscriptionStarted:
		c.handler.OnStart(data)
	case NameSentenceBegin:
		c.handler.OnSentenceBegin(data)
	case NameTranscriptionResultChanged:
		c.handler.OnResultChanged(data)
	case NameSentenceEnd:
		c.handler.OnSentenceEnd(data)
	case NameTranscriptionCompleted:
		c.finished.Store(true)
		c.handler.OnCompleted(data)
	case NameTaskFailed:
		c.finished.Store(true)
		c.handler.OnError(data)
	default:
		c.handler.OnUnparsed(data)
	}
}

func (c *Conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

func (c *Conn) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent)
}
