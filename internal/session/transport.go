package session

import (
	"context"

	"github.com/rbright/nlsstream/internal/nls"
)

// Transport is the outbound half of an open recognition task.
type Transport interface {
	SendAudio(frame []byte) error
	Stop() error
	Close() error
}

// Dialer opens a transport that reports inbound signals to h.
type Dialer interface {
	Dial(ctx context.Context, h nls.Handler) (Transport, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(context.Context, nls.Handler) (Transport, error)

func (f DialFunc) Dial(ctx context.Context, h nls.Handler) (Transport, error) {
	return f(ctx, h)
}

// NLSDialer dials the NLS websocket gateway with cfg.
func NLSDialer(cfg nls.Config) Dialer {
	return DialFunc(func(ctx context.Context, h nls.Handler) (Transport, error) {
		conn, err := nls.Dial(ctx, cfg, h)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
