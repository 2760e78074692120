package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/nlsstream/internal/audio"
)

// DefaultProgressEvery is the frame interval between progress reports.
const DefaultProgressEvery = 100

// FrameSource yields captured frames.
type FrameSource interface {
	Read(ctx context.Context) (audio.Frame, error)
}

// FrameSink accepts frames while it reports recording.
type FrameSink interface {
	SendAudio(frame audio.Frame) bool
	Recording() bool
}

// CaptureStats counts frames observed by one capture loop.
type CaptureStats struct {
	Frames  int64
	Sent    int64
	Skipped int64
	Elapsed time.Duration
}

// CaptureLoop moves frames from the audio device to the session until the
// session stops recording, the stop flag is raised or ctx is done.
type CaptureLoop struct {
	Source FrameSource
	Sink   FrameSink
	Stop   *StopFlag
	Logger *slog.Logger

	// Progress, when set, is called every ProgressEvery frames.
	Progress      func(CaptureStats)
	ProgressEvery int
	// OnFrame, when set, observes every captured frame.
	OnFrame func(audio.Frame)
}

// Run returns nil on any cooperative stop. Device failures are returned as
// *audio.DeviceError.
func (l *CaptureLoop) Run(ctx context.Context) (CaptureStats, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	every := l.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	var stats CaptureStats
	started := time.Now()
	defer func() {
		logger.Debug("capture loop finished",
			"frames", stats.Frames,
			"sent", stats.Sent,
			"skipped", stats.Skipped,
		)
	}()

	for {
		stats.Elapsed = time.Since(started)
		if ctx.Err() != nil || (l.Stop != nil && l.Stop.IsSet()) || !l.Sink.Recording() {
			return stats, nil
		}

		frame, err := l.Source.Read(ctx)
		switch {
		case err == nil:
		case errors.Is(err, audio.ErrNoFrame):
			continue
		case ctx.Err() != nil:
			return stats, nil
		default:
			var devErr *audio.DeviceError
			if !errors.As(err, &devErr) {
				err = &audio.DeviceError{Op: "read frame", Err: err}
			}
			logger.Error("audio capture failed", "error", err.Error())
			return stats, err
		}

		stats.Frames++
		if l.OnFrame != nil {
			l.OnFrame(frame)
		}
		if l.Sink.SendAudio(frame) {
			stats.Sent++
		} else {
			stats.Skipped++
		}

		if l.Progress != nil && stats.Frames%int64(every) == 0 {
			stats.Elapsed = time.Since(started)
			l.Progress(stats)
		}
	}
}
