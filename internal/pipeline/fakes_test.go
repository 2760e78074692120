package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbright/nlsstream/internal/audio"
)

// fakeStream yields a fixed number of frames, then ErrNoFrame or a
// terminal error.
type fakeStream struct {
	mu       sync.Mutex
	frames   int
	failWith error
	calls    *callLog

	reads atomic.Int32
}

func (s *fakeStream) Read(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	s.reads.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frames > 0 {
		s.frames--
		return audio.Frame{PCM: make([]byte, audio.FrameBytes)}, nil
	}
	if s.failWith != nil {
		return audio.Frame{}, s.failWith
	}
	time.Sleep(time.Millisecond)
	return audio.Frame{}, audio.ErrNoFrame
}

func (s *fakeStream) Dropped() int64 { return 2 }
func (s *fakeStream) Stop() error    { s.calls.add("stream.stop"); return nil }
func (s *fakeStream) Close() error   { s.calls.add("stream.close"); return nil }
func (s *fakeStream) Release() error { s.calls.add("stream.release"); return nil }

// fakeSession records recording until sendLimit frames were sent.
type fakeSession struct {
	connectOK  bool
	connectErr error
	warning    string
	sendLimit  int32
	calls      *callLog
	onConnect  func()

	recording atomic.Bool
	sends     atomic.Int32
	stops     atomic.Int32
}

func (s *fakeSession) Connect(context.Context) (bool, error) {
	s.calls.add("session.connect")
	if s.onConnect != nil {
		s.onConnect()
	}
	if s.connectOK {
		s.recording.Store(true)
	}
	return s.connectOK, s.connectErr
}

func (s *fakeSession) SendAudio(audio.Frame) bool {
	if !s.recording.Load() {
		return false
	}
	n := s.sends.Add(1)
	if s.sendLimit > 0 && n >= s.sendLimit {
		s.recording.Store(false)
	}
	return true
}

func (s *fakeSession) Recording() bool { return s.recording.Load() }
func (s *fakeSession) Warning() string { return s.warning }

func (s *fakeSession) Stop() {
	s.stops.Add(1)
	s.recording.Store(false)
	s.calls.add("session.stop")
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type recordingDisplay struct {
	mu    sync.Mutex
	lines []string
}

func (d *recordingDisplay) add(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, line)
}

func (d *recordingDisplay) Interim(text string) { d.add("interim:" + text) }
func (d *recordingDisplay) Final(text string, confidence float64) {
	d.add(fmt.Sprintf("final:%s:%.2f", text, confidence))
}
func (d *recordingDisplay) Notice(message string) { d.add("notice:" + message) }
func (d *recordingDisplay) Error(message string)  { d.add("error:" + message) }

func (d *recordingDisplay) snapshot() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

var errUnplugged = errors.New("device unplugged")
