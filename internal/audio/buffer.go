package audio

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// frameBuffer assembles backend PCM callbacks into fixed-size frames.
// Writers never block; frames are dropped when the reader falls behind.
type frameBuffer struct {
	frames chan Frame
	stopCh chan struct{}
	failCh chan struct{}

	// health, when set, is consulted whenever a read times out so a
	// backend that went silent can report why.
	health func() error

	mu      sync.Mutex
	pending []byte
	stopped bool
	failure error

	bytes   atomic.Int64
	dropped atomic.Int64
}

func newFrameBuffer(capacity int) *frameBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &frameBuffer{
		frames: make(chan Frame, capacity),
		stopCh: make(chan struct{}),
		failCh: make(chan struct{}),
	}
}

// Write accepts raw PCM and emits every complete frame.
func (b *frameBuffer) Write(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return 0, io.EOF
	}
	b.pending = append(b.pending, buffer...)

	var ready []Frame
	for len(b.pending) >= FrameBytes {
		pcm := make([]byte, FrameBytes)
		copy(pcm, b.pending[:FrameBytes])
		b.pending = b.pending[FrameBytes:]
		ready = append(ready, Frame{PCM: pcm})
	}
	if len(b.pending) == 0 {
		b.pending = nil
	}
	b.mu.Unlock()

	b.bytes.Add(int64(len(buffer)))

	for _, frame := range ready {
		select {
		case b.frames <- frame:
		default:
			b.dropped.Add(1)
		}
	}
	return len(buffer), nil
}

func (b *frameBuffer) Read(ctx context.Context) (Frame, error) {
	select {
	case frame := <-b.frames:
		return frame, nil
	default:
	}

	timer := time.NewTimer(FrameDuration)
	defer timer.Stop()

	select {
	case frame := <-b.frames:
		return frame, nil
	case <-b.stopCh:
		return Frame{}, ErrStreamClosed
	case <-b.failCh:
		return Frame{}, b.err()
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timer.C:
		if b.health != nil {
			if err := b.health(); err != nil {
				b.fail(err)
				return Frame{}, b.err()
			}
		}
		return Frame{}, ErrNoFrame
	}
}

// fail records a backend failure. Queued frames are still delivered, after
// which Read returns the failure. Ignored once stopped.
func (b *frameBuffer) fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || b.failure != nil {
		return
	}
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		err = &DeviceError{Op: "read frame", Err: err}
	}
	b.failure = err
	close(b.failCh)
}

func (b *frameBuffer) err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrStreamClosed
	}
	return b.failure
}

func (b *frameBuffer) Dropped() int64 {
	return b.dropped.Load()
}

// BytesCaptured reports total bytes accepted from the backend.
func (b *frameBuffer) BytesCaptured() int64 {
	return b.bytes.Load()
}

// stop discards any partial frame and wakes blocked readers. Safe to call
// more than once.
func (b *frameBuffer) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	b.pending = nil
	close(b.stopCh)
}
