// Package results carries recognition events from the session callbacks
// to the result consumer.
package results

import (
	"sync"
	"time"

	"github.com/rbright/nlsstream/internal/event"
)

// Channel is an unbounded FIFO of events. Push never blocks; Pop waits up
// to a timeout. Safe for any number of producers and consumers.
type Channel struct {
	mu     sync.Mutex
	items  []event.Event
	closed bool
	ready  chan struct{}
}

func New() *Channel {
	return &Channel{ready: make(chan struct{}, 1)}
}

// Push appends ev. Events pushed after Close are dropped and Push reports
// false.
func (c *Channel) Push(ev event.Event) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items, ev)
	c.mu.Unlock()

	c.signal()
	return true
}

// Pop removes the oldest event, waiting up to timeout for one to arrive.
// It returns false on timeout, or immediately once the channel is closed
// and drained.
func (c *Channel) Pop(timeout time.Duration) (event.Event, bool) {
	if ev, ok, done := c.tryPop(); ok || done {
		return ev, ok
	}
	if timeout <= 0 {
		return event.Event{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-c.ready:
			if ev, ok, done := c.tryPop(); ok || done {
				return ev, ok
			}
		case <-timer.C:
			ev, ok, _ := c.tryPop()
			return ev, ok
		}
	}
}

// Len reports the number of queued events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close stops accepting events. Queued events remain poppable.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.signal()
}

func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) tryPop() (ev event.Event, ok bool, done bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		if c.closed {
			// keep waking other waiters so they observe the close
			c.signal()
		}
		return event.Event{}, false, c.closed
	}

	ev = c.items[0]
	c.items[0] = event.Event{}
	c.items = c.items[1:]
	if len(c.items) > 0 || c.closed {
		c.signal()
	}
	return ev, true, false
}

func (c *Channel) signal() {
	select {
	case c.ready <- struct{}{}:
	default:
	}
}
