package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/nlsstream/internal/event"
	"github.com/rbright/nlsstream/internal/results"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultDrainTimeout bounds how long the consumer keeps draining after
	// stop while waiting for the results channel to close.
	DefaultDrainTimeout = 5 * time.Second
)

// Display renders consumer output.
type Display interface {
	Interim(text string)
	Final(text string, confidence float64)
	Notice(message string)
	Error(message string)
}

type noopDisplay struct{}

func (noopDisplay) Interim(string)        {}
func (noopDisplay) Final(string, float64) {}
func (noopDisplay) Notice(string)         {}
func (noopDisplay) Error(string)          {}

// Stats counts consumed events.
type Stats struct {
	Events    int
	Interim   int
	Sentences int
	Errors    int
	Unparsed  int
	// Finals holds non-empty SentenceEnd texts in arrival order.
	Finals []string
}

// ResultConsumer pops events and applies their display side effects.
type ResultConsumer struct {
	Results      *results.Channel
	Stop         *StopFlag
	Display      Display
	Logger       *slog.Logger
	PollInterval time.Duration
	DrainTimeout time.Duration
}

// Run consumes until the stop flag is raised or ctx is done, then drains
// until the channel is closed or the drain timeout passes. A closed and
// empty channel ends Run at any point.
func (c *ResultConsumer) Run(ctx context.Context) Stats {
	display := c.Display
	if display == nil {
		display = noopDisplay{}
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	poll := c.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	drain := c.DrainTimeout
	if drain <= 0 {
		drain = DefaultDrainTimeout
	}

	var stats Stats
	for !c.stopping(ctx) {
		ev, ok := c.Results.Pop(poll)
		if ok {
			handleEvent(ev, display, logger, &stats)
			continue
		}
		if c.Results.Closed() {
			return stats
		}
	}

	deadline := time.Now().Add(drain)
	for {
		wait := time.Until(deadline)
		if wait > poll {
			wait = poll
		}
		ev, ok := c.Results.Pop(wait)
		if ok {
			handleEvent(ev, display, logger, &stats)
			continue
		}
		if c.Results.Closed() || !time.Now().Before(deadline) {
			if n := c.Results.Len(); n > 0 {
				logger.Warn("result consumer left events unconsumed", "count", n)
			}
			return stats
		}
	}
}

func (c *ResultConsumer) stopping(ctx context.Context) bool {
	return ctx.Err() != nil || (c.Stop != nil && c.Stop.IsSet())
}

func handleEvent(ev event.Event, display Display, logger *slog.Logger, stats *Stats) {
	stats.Events++

	switch ev.Kind {
	case event.KindStart:
		display.Notice("recognition started")
	case event.KindSentenceBegin:
		logger.Debug("sentence begin", "time_ms", ev.Result.TimeMS)
	case event.KindResultChanged:
		if ev.HasText() {
			stats.Interim++
			display.Interim(ev.Result.Text)
		}
	case event.KindSentenceEnd:
		stats.Sentences++
		if ev.HasText() {
			stats.Finals = append(stats.Finals, ev.Result.Text)
			display.Final(ev.Result.Text, ev.Result.Confidence)
		}
	case event.KindCompleted:
		display.Notice("recognition completed")
	case event.KindError:
		stats.Errors++
		display.Error(ev.ErrorText())
	case event.KindClosed:
		display.Notice("connection closed")
	case event.KindUnparsed:
		stats.Unparsed++
		logger.Debug("unparsed message", "signal", string(ev.Signal), "raw", ev.Raw)
	default:
		logger.Debug("unknown event kind", "kind", string(ev.Kind))
	}
}
