package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/nlsstream/internal/event"
	"github.com/rbright/nlsstream/internal/results"
)

func sentenceEnd(text string, confidence float64) event.Event {
	return event.Event{Kind: event.KindSentenceEnd, Result: event.Result{Text: text, Confidence: confidence}}
}

func TestResultConsumerPreservesSendOrder(t *testing.T) {
	ch := results.New()
	stop := NewStopFlag()
	display := &recordingDisplay{}
	consumer := &ResultConsumer{Results: ch, Stop: stop, Display: display, PollInterval: 10 * time.Millisecond}

	done := make(chan Stats, 1)
	go func() { done <- consumer.Run(context.Background()) }()

	producer := make(chan struct{})
	go func() {
		defer close(producer)
		for _, text := range []string{"A", "B", "C"} {
			ch.Push(sentenceEnd(text, 0))
		}
	}()
	<-producer

	require.Eventually(t, func() bool { return len(display.snapshot()) == 3 }, 2*time.Second, 5*time.Millisecond)
	stop.Set()
	ch.Close()

	stats := <-done
	require.Equal(t, []string{"A", "B", "C"}, stats.Finals)
	require.Equal(t, []string{"final:A:0.00", "final:B:0.00", "final:C:0.00"}, display.snapshot())
}

func TestResultConsumerDisplayRules(t *testing.T) {
	ch := results.New()
	for _, ev := range []event.Event{
		{Kind: event.KindStart},
		{Kind: event.KindSentenceBegin},
		{Kind: event.KindResultChanged},
		{Kind: event.KindResultChanged, Result: event.Result{Text: "你"}},
		sentenceEnd("", 0.5),
		sentenceEnd("你好", 0.92),
		{Kind: event.KindUnparsed, Raw: "garbage"},
		{Kind: event.KindError, Header: event.Header{StatusText: "denied"}},
		{Kind: event.KindCompleted},
		{Kind: event.KindClosed},
	} {
		ch.Push(ev)
	}
	ch.Close()

	display := &recordingDisplay{}
	stats := (&ResultConsumer{Results: ch, Stop: NewStopFlag(), Display: display}).Run(context.Background())

	require.Equal(t, []string{
		"notice:recognition started",
		"interim:你",
		"final:你好:0.92",
		"error:denied",
		"notice:recognition completed",
		"notice:connection closed",
	}, display.snapshot())
	require.Equal(t, Stats{
		Events:    10,
		Interim:   1,
		Sentences: 2,
		Errors:    1,
		Unparsed:  1,
		Finals:    []string{"你好"},
	}, stats)
}

func TestResultConsumerDrainsAfterStopUntilClosed(t *testing.T) {
	ch := results.New()
	stop := NewStopFlag()
	stop.Set()

	done := make(chan Stats, 1)
	go func() {
		done <- (&ResultConsumer{Results: ch, Stop: stop, PollInterval: 10 * time.Millisecond}).Run(context.Background())
	}()

	time.Sleep(30 * time.Millisecond)
	ch.Push(sentenceEnd("late", 0))
	ch.Push(event.Event{Kind: event.KindClosed})
	ch.Close()

	select {
	case stats := <-done:
		require.Equal(t, 2, stats.Events)
		require.Equal(t, []string{"late"}, stats.Finals)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not return after close")
	}
}

func TestResultConsumerDrainTimeoutBoundsShutdown(t *testing.T) {
	ch := results.New()
	stop := NewStopFlag()
	stop.Set()

	started := time.Now()
	stats := (&ResultConsumer{
		Results:      ch,
		Stop:         stop,
		PollInterval: 10 * time.Millisecond,
		DrainTimeout: 50 * time.Millisecond,
	}).Run(context.Background())
	require.Zero(t, stats.Events)
	require.Less(t, time.Since(started), time.Second)
}

func TestResultConsumerReturnsWhenClosedWithoutStop(t *testing.T) {
	ch := results.New()
	ch.Push(sentenceEnd("only", 0))
	ch.Close()

	stats := (&ResultConsumer{Results: ch, PollInterval: 10 * time.Millisecond}).Run(context.Background())
	require.Equal(t, []string{"only"}, stats.Finals)
}
