// Package pipeline wires audio capture, the recognition session and result
// display into one listen run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/nlsstream/internal/audio"
	"github.com/rbright/nlsstream/internal/results"
	"github.com/rbright/nlsstream/internal/transcript"
)

// Session is the recognition session surface the pipeline drives.
type Session interface {
	Connect(ctx context.Context) (bool, error)
	SendAudio(frame audio.Frame) bool
	Recording() bool
	Stop()
	Warning() string
}

// Deps carries the collaborators of one Run. Session, Results and Stop are
// required.
type Deps struct {
	Session Session
	Results *results.Channel
	Stop    *StopFlag
	Display Display
	Logger  *slog.Logger

	// Input is the audio.input preference passed to audio.SelectInput.
	Input       string
	ListDevices func(context.Context) ([]audio.Device, error)
	OpenStream  func(context.Context, audio.Device) (audio.Stream, error)

	PollInterval  time.Duration
	DrainTimeout  time.Duration
	ProgressEvery int
	Progress      func(CaptureStats)
	// OnStarted, when set, runs once the session has connected.
	OnStarted func()

	AudioDump bool
}

func (d Deps) withDefaults() (Deps, error) {
	switch {
	case d.Session == nil:
		return d, errors.New("pipeline session is nil")
	case d.Results == nil:
		return d, errors.New("pipeline results channel is nil")
	case d.Stop == nil:
		return d, errors.New("pipeline stop flag is nil")
	}
	if d.Display == nil {
		d.Display = noopDisplay{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.ListDevices == nil {
		d.ListDevices = audio.ListDevices
	}
	if d.OpenStream == nil {
		d.OpenStream = audio.Open
	}
	return d, nil
}

// Summary is the outcome of one Run.
type Summary struct {
	Connected     bool
	Warning       string
	Device        audio.Device
	Capture       CaptureStats
	Results       Stats
	Dropped       int64
	Transcript    string
	AudioDumpPath string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Run connects the session, opens the selected input and streams audio
// until the session stops recording or the stop flag is raised. The
// result consumer runs for the whole call so start and failure events are
// displayed. Teardown order is: capture loop, audio stream stop, stream
// close, device release, session stop.
func Run(ctx context.Context, deps Deps) (Summary, error) {
	summary := Summary{StartedAt: time.Now()}
	deps, err := deps.withDefaults()
	if err != nil {
		summary.FinishedAt = time.Now()
		return summary, err
	}
	logger := deps.Logger

	consumer := &ResultConsumer{
		Results:      deps.Results,
		Stop:         deps.Stop,
		Display:      deps.Display,
		Logger:       logger,
		PollInterval: deps.PollInterval,
		DrainTimeout: deps.DrainTimeout,
	}

	var group errgroup.Group
	group.Go(func() error {
		summary.Results = consumer.Run(ctx)
		return nil
	})

	finish := func(runErr error) (Summary, error) {
		deps.Stop.Set()
		deps.Session.Stop()
		deps.Results.Close()
		_ = group.Wait()
		summary.Transcript = transcript.Assemble(summary.Results.Finals)
		summary.FinishedAt = time.Now()
		return summary, runErr
	}

	ok, err := deps.Session.Connect(ctx)
	summary.Warning = deps.Session.Warning()
	if !ok {
		if err == nil {
			err = errors.New("session did not start")
		}
		return finish(fmt.Errorf("start recognition: %w", err))
	}
	summary.Connected = true
	if summary.Warning != "" {
		deps.Display.Notice(summary.Warning)
	}
	if deps.OnStarted != nil {
		deps.OnStarted()
	}

	devices, err := deps.ListDevices(ctx)
	if err != nil {
		return finish(err)
	}
	device, err := audio.SelectInput(devices, deps.Input)
	if err != nil {
		return finish(err)
	}
	summary.Device = device
	logger.Info("audio input selected", "device", device.ID, "description", device.Description)

	stream, err := deps.OpenStream(ctx, device)
	if err != nil {
		return finish(err)
	}

	var recorder *pcmRecorder
	loop := &CaptureLoop{
		Source:        stream,
		Sink:          deps.Session,
		Stop:          deps.Stop,
		Logger:        logger,
		Progress:      deps.Progress,
		ProgressEvery: deps.ProgressEvery,
	}
	if deps.AudioDump {
		recorder = &pcmRecorder{}
		loop.OnFrame = recorder.add
	}

	summary.Capture, err = loop.Run(ctx)
	deps.Stop.Set()
	summary.Dropped = stream.Dropped()
	teardownStream(logger, stream)

	if recorder != nil {
		path, dumpErr := recorder.writeFile()
		if dumpErr != nil {
			logger.Warn("unable to write debug audio dump", "error", dumpErr.Error())
		}
		summary.AudioDumpPath = path
	}

	return finish(err)
}

func teardownStream(logger *slog.Logger, stream audio.Stream) {
	if err := stream.Stop(); err != nil {
		logger.Warn("stop audio stream failed", "error", err.Error())
	}
	if err := stream.Close(); err != nil {
		logger.Warn("close audio stream failed", "error", err.Error())
	}
	if err := stream.Release(); err != nil {
		logger.Warn("release audio device failed", "error", err.Error())
	}
}
