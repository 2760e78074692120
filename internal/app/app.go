// Package app dispatches nlsstream commands and wires one listen run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rbright/nlsstream/internal/audio"
	"github.com/rbright/nlsstream/internal/cli"
	"github.com/rbright/nlsstream/internal/config"
	"github.com/rbright/nlsstream/internal/cue"
	"github.com/rbright/nlsstream/internal/doctor"
	"github.com/rbright/nlsstream/internal/ipc"
	"github.com/rbright/nlsstream/internal/logging"
	"github.com/rbright/nlsstream/internal/nls"
	"github.com/rbright/nlsstream/internal/output"
	"github.com/rbright/nlsstream/internal/pipeline"
	"github.com/rbright/nlsstream/internal/results"
	"github.com/rbright/nlsstream/internal/session"
	"github.com/rbright/nlsstream/internal/version"
)

const (
	ipcTimeout      = 220 * time.Millisecond
	ipcProbeTimeout = 180 * time.Millisecond
	ipcRetries      = 8
)

// Runner executes one CLI invocation. Dialer, ListDevices and OpenStream
// default to the NLS gateway and the platform audio backend.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	Dialer      session.Dialer
	ListDevices func(context.Context) ([]audio.Device, error)
	OpenStream  func(context.Context, audio.Device) (audio.Stream, error)
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("nlsstream"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("nlsstream"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath, parsed.EnvPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	if parsed.Input != "" {
		cfgLoaded.Config.Audio.Input = parsed.Input
	}
	logRuntime.SetVerbose(parsed.Verbose || cfgLoaded.Config.Debug.Verbose)

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"env_sources", cfgLoaded.EnvSources,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.commandStop(ctx)
	case cli.CommandListen:
		return r.commandListen(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) listDevices() func(context.Context) ([]audio.Device, error) {
	if r.ListDevices != nil {
		return r.ListDevices
	}
	return audio.ListDevices
}

func (r Runner) commandDevices(ctx context.Context, cfg config.Config) int {
	devices, err := r.listDevices()(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	selected, selectErr := audio.SelectInput(devices, cfg.Audio.Input)
	for _, device := range devices {
		mark := " "
		if selectErr == nil && device.ID == selected.ID {
			mark = "*"
		}
		isDefault := "no"
		if device.Default {
			isDefault = "yes"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | inputs=%d | default=%s | muted=%s\n",
			mark,
			device.ID,
			device.Description,
			device.InputChannels,
			isDefault,
			muted,
		)
	}

	if selectErr != nil {
		fmt.Fprintf(r.Stderr, "warning: %v\n", selectErr)
	}
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, ipcTimeout)
	if errors.Is(err, ipc.ErrNotRunning) {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Fprintln(r.Stdout, formatStatus(resp))
	return 0
}

func formatStatus(resp ipc.Response) string {
	state := resp.State
	if state == "" {
		state = "unknown"
	}
	details := make([]string, 0, 3)
	if resp.Connected {
		details = append(details, "connected")
	}
	if resp.Frames > 0 {
		details = append(details, fmt.Sprintf("%d frames", resp.Frames))
	}
	if resp.Elapsed > 0 {
		details = append(details, fmt.Sprintf("%.0fs", resp.Elapsed))
	}
	if len(details) == 0 {
		return state
	}
	return state + " (" + strings.Join(details, ", ") + ")"
}

func (r Runner) commandStop(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: ipc.CommandStop}, ipcTimeout)
	if errors.Is(err, ipc.ErrNotRunning) {
		fmt.Fprintln(r.Stderr, "error: no active nlsstream listener")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// captureProgress mirrors the latest capture counters for status requests.
type captureProgress struct {
	frames  atomic.Int64
	elapsed atomic.Int64
}

func (p *captureProgress) store(stats pipeline.CaptureStats) {
	p.frames.Store(stats.Frames)
	p.elapsed.Store(int64(stats.Elapsed))
}

func (r Runner) commandListen(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	if err := cfg.RequireCredentials(); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	printer := output.NewPrinter(r.Stdout)
	printer.Plain(fmt.Sprintf("gateway: %s", cfg.NLS.URL))
	printer.Plain(fmt.Sprintf("token: %s", config.Redact(cfg.NLS.Token)))
	printer.Plain(fmt.Sprintf("appkey: %s", cfg.NLS.AppKey))
	logger.Info("listen start",
		"url", cfg.NLS.URL,
		"token", config.Redact(cfg.NLS.Token),
		"appkey", cfg.NLS.AppKey,
		"input", cfg.Audio.Input,
	)

	stop := pipeline.NewStopFlag()
	release := context.AfterFunc(ctx, stop.Set)
	defer release()

	ch := results.New()
	nlsCfg := nls.DefaultConfig()
	nlsCfg.URL = cfg.NLS.URL
	nlsCfg.Token = cfg.NLS.Token
	nlsCfg.AppKey = cfg.NLS.AppKey
	nlsCfg.SampleRate = cfg.Recognition.SampleRate
	nlsCfg.HandshakeTimeout = cfg.Session.ConnectTimeout
	nlsCfg.UserAgent = version.UserAgent()
	nlsCfg.Logger = logger

	if cfg.Debug.EventDump {
		dump, err := pipeline.OpenEventDump()
		if err != nil {
			fmt.Fprintf(r.Stderr, "warning: event dump disabled: %v\n", err)
			logger.Warn("open event dump failed", "error", err.Error())
		} else {
			defer func() { _ = dump.Close() }()
			nlsCfg.DebugSink = dump
			printer.Plain(fmt.Sprintf("event dump: %s", dump.Name()))
		}
	}

	dialer := r.Dialer
	if dialer == nil {
		dialer = session.NLSDialer(nlsCfg)
	}
	client := session.New(session.Options{
		ConnectTimeout: cfg.Session.ConnectTimeout,
		StopGrace:      cfg.Session.StopGrace,
	}, dialer, ch, logger)

	progress := &captureProgress{}
	serverDone, err := r.startControlSocket(ctx, logger, ipc.Router{
		Status: func() ipc.Response {
			snapshot := client.Snapshot()
			return ipc.Response{
				State:     string(snapshot.State),
				Connected: snapshot.Connected,
				Recording: snapshot.Recording,
				Frames:    progress.frames.Load(),
				Elapsed:   time.Duration(progress.elapsed.Load()).Seconds(),
			}
		},
		Stop: stop.Set,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer serverDone()

	cues := cue.New(cfg.Audio.Cues, logger)
	printer.Plain("listening; press Ctrl-C to stop")
	summary, runErr := pipeline.Run(ctx, pipeline.Deps{
		Session:      client,
		Results:      ch,
		Stop:         stop,
		Display:      printer,
		Logger:       logger,
		Input:        cfg.Audio.Input,
		ListDevices:  r.listDevices(),
		OpenStream:   r.OpenStream,
		PollInterval: cfg.Session.PollInterval,
		Progress: func(stats pipeline.CaptureStats) {
			progress.store(stats)
			printer.Progress(stats.Frames, stats.Sent, stats.Elapsed)
		},
		OnStarted: func() { cues.PlayAsync(cue.Start) },
		AudioDump: cfg.Debug.AudioDump,
	})
	if runErr != nil && ctx.Err() != nil && errors.Is(runErr, context.Canceled) {
		logger.Info("listen interrupted", "error", runErr.Error())
		runErr = nil
	}

	if runErr != nil || client.Err() != nil {
		cues.Play(context.WithoutCancel(ctx), cue.Failed)
	} else {
		cues.Play(context.WithoutCancel(ctx), cue.Stop)
	}
	cues.Wait()

	logSessionResult(logger, summary, client.Err(), runErr)
	printSummary(printer, summary)

	switch {
	case runErr != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	case client.Err() != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", client.Err())
		return 1
	}
	return 0
}

// startControlSocket serves status/stop on the runtime socket. Without
// XDG_RUNTIME_DIR the listener runs without a control socket.
func (r Runner) startControlSocket(ctx context.Context, logger *slog.Logger, router ipc.Router) (func(), error) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		logger.Warn("control socket disabled", "error", err.Error())
		return func() {}, nil
	}

	listener, err := ipc.Acquire(ctx, socketPath, ipcProbeTimeout, ipcRetries)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return nil, fmt.Errorf("another nlsstream listener is running; use `nlsstream stop` first")
		}
		logger.Warn("control socket disabled", "path", socketPath, "error", err.Error())
		return func() {}, nil
	}

	serverCtx, cancel := context.WithCancel(ctx)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- ipc.Serve(serverCtx, listener, router)
	}()

	return func() {
		cancel()
		if err := <-serverErr; err != nil {
			logger.Warn("control socket failed", "error", err.Error())
		}
		_ = os.Remove(socketPath)
	}, nil
}

func printSummary(printer *output.Printer, summary pipeline.Summary) {
	if strings.TrimSpace(summary.Transcript) != "" {
		printer.Plain("transcript: " + summary.Transcript)
	}
	printer.Plain(fmt.Sprintf(
		"events=%d sentences=%d errors=%d frames=%d dropped=%d duration=%s",
		summary.Results.Events,
		summary.Results.Sentences,
		summary.Results.Errors,
		summary.Capture.Frames,
		summary.Dropped,
		summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond),
	))
	if summary.AudioDumpPath != "" {
		printer.Plain("audio dump: " + summary.AudioDumpPath)
	}
}

func logSessionResult(logger *slog.Logger, summary pipeline.Summary, sessionErr error, runErr error) {
	fields := []any{
		"connected", summary.Connected,
		"warning", summary.Warning,
		"started_at", summary.StartedAt.Format(time.RFC3339Nano),
		"finished_at", summary.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
		"audio_device", summary.Device.ID,
		"frames", summary.Capture.Frames,
		"frames_sent", summary.Capture.Sent,
		"frames_dropped", summary.Dropped,
		"events", summary.Results.Events,
		"sentences", summary.Results.Sentences,
		"errors", summary.Results.Errors,
		"transcript_length", len(summary.Transcript),
	}

	switch {
	case runErr != nil:
		logger.Error("listen failed", append(fields, "error", runErr.Error())...)
	case sessionErr != nil:
		logger.Error("listen ended with session error", append(fields, "error", sessionErr.Error())...)
	default:
		logger.Info("listen complete", fields...)
	}
}
