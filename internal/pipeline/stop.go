package pipeline

import "sync"

// StopFlag is the cooperative stop signal shared by the capture loop, the
// result consumer and the control surfaces that request shutdown.
type StopFlag struct {
	once sync.Once
	ch   chan struct{}
}

func NewStopFlag() *StopFlag {
	return &StopFlag{ch: make(chan struct{})}
}

// Set raises the flag. Later calls do nothing.
func (f *StopFlag) Set() {
	f.once.Do(func() { close(f.ch) })
}

func (f *StopFlag) IsSet() bool {
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

// Done is closed once the flag is raised.
func (f *StopFlag) Done() <-chan struct{} {
	return f.ch
}
