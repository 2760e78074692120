// Package cue synthesizes short tones marking recognition start and stop.
package cue

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/rbright/nlsstream/internal/audio"
)

// Kind selects a cue.
type Kind int

const (
	Start Kind = iota + 1
	Stop
	Failed
)

// playTimeout bounds one cue playback.
const playTimeout = 2 * time.Second

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
	volume      float64
}

var (
	startPCM = synthesize([]toneSpec{
		{frequencyHz: 880, duration: 70 * time.Millisecond, volume: 0.18},
		{frequencyHz: 1175, duration: 70 * time.Millisecond, volume: 0.18},
	})
	stopPCM = synthesize([]toneSpec{
		{frequencyHz: 740, duration: 65 * time.Millisecond, volume: 0.18},
		{frequencyHz: 988, duration: 90 * time.Millisecond, volume: 0.18},
	})
	failedPCM = synthesize([]toneSpec{
		{frequencyHz: 480, duration: 75 * time.Millisecond, volume: 0.18},
		{frequencyHz: 360, duration: 90 * time.Millisecond, volume: 0.18},
	})
)

// Player plays cues when enabled. A disabled or nil Player does nothing.
type Player struct {
	enabled bool
	logger  *slog.Logger
	play    func(context.Context, []int16) error

	wg sync.WaitGroup
}

// New returns a Player that plays through the platform audio backend.
func New(enabled bool, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Player{enabled: enabled, logger: logger, play: audio.PlayPCM}
}

// Play blocks until kind has played. Failures are logged.
func (p *Player) Play(ctx context.Context, kind Kind) {
	if p == nil || !p.enabled {
		return
	}
	samples := samplesFor(kind)
	if len(samples) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, playTimeout)
	defer cancel()
	if err := p.play(ctx, samples); err != nil {
		p.logger.Debug("play cue failed", "cue", int(kind), "error", err.Error())
	}
}

// PlayAsync plays kind in the background. Wait blocks until it finishes.
func (p *Player) PlayAsync(kind Kind) {
	if p == nil || !p.enabled {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Play(context.Background(), kind)
	}()
}

// Wait blocks until background cues have finished.
func (p *Player) Wait() {
	if p == nil {
		return
	}
	p.wg.Wait()
}

func samplesFor(kind Kind) []int16 {
	switch kind {
	case Start:
		return startPCM
	case Stop:
		return stopPCM
	case Failed:
		return failedPCM
	default:
		return nil
	}
}

func synthesize(parts []toneSpec) []int16 {
	if len(parts) == 0 {
		return nil
	}
	gapSamples := samplesForDuration(22 * time.Millisecond)
	total := 0
	for i, part := range parts {
		total += samplesForDuration(part.duration)
		if i < len(parts)-1 {
			total += gapSamples
		}
	}

	pcm := make([]int16, 0, total)
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part)...)
		if i < len(parts)-1 && gapSamples > 0 {
			pcm = append(pcm, make([]int16, gapSamples)...)
		}
	}
	return pcm
}

// synthesizeTone renders a sine with a linear attack and release of at most 5ms.
func synthesizeTone(spec toneSpec) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || spec.volume <= 0 {
		return nil
	}

	ramp := min(n/10, audio.SampleRate/200)
	ramp = max(ramp, 1)

	pcm := make([]int16, n)
	for i := range n {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			envelope = math.Min(envelope, float64(tail)/float64(ramp))
		}
		t := float64(i) / audio.SampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * spec.volume * envelope * 32767))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * audio.SampleRate))
}
