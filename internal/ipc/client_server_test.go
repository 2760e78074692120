package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func serveRouter(t *testing.T, router Router) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "nlsstream.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() { serveDone <- Serve(ctx, listener, router) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-serveDone)
	})
	return socketPath
}

func TestStatusRoundTrip(t *testing.T) {
	socketPath := serveRouter(t, Router{Status: func() Response {
		return Response{State: "recording", Connected: true, Recording: true, Frames: 250, Elapsed: 10}
	}})

	resp, err := Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "recording", resp.State)
	require.True(t, resp.Connected)
	require.True(t, resp.Recording)
	require.EqualValues(t, 250, resp.Frames)
	require.Equal(t, 10.0, resp.Elapsed)
}

func TestStopInvokesRouter(t *testing.T) {
	var stops atomic.Int32
	socketPath := serveRouter(t, Router{
		Status: func() Response { return Response{State: "stopped"} },
		Stop:   func() { stops.Add(1) },
	})

	resp, err := Send(context.Background(), socketPath, Request{Command: CommandStop}, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "stop requested", resp.Message)
	require.Equal(t, "stopped", resp.State)
	require.EqualValues(t, 1, stops.Load())
}

func TestUnknownCommandIsAnError(t *testing.T) {
	socketPath := serveRouter(t, Router{})

	resp, err := Send(context.Background(), socketPath, Request{Command: "toggle"}, 200*time.Millisecond)
	require.Error(t, err)
	require.False(t, resp.OK)
	require.Contains(t, err.Error(), `unknown command "toggle"`)
}

func TestStopWithoutHandlerIsAnError(t *testing.T) {
	socketPath := serveRouter(t, Router{})

	_, err := Send(context.Background(), socketPath, Request{Command: CommandStop}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not supported")
}

func TestSendDecodeResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "nlsstream.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer conn.Close()
		_, _ = bufio.NewReader(conn).ReadBytes('\n')
		_, _ = conn.Write([]byte("not-json\n"))
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestSendReadResponseError(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "nlsstream.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		_ = conn.Close()
	}()

	_, err = Send(context.Background(), socketPath, Request{Command: CommandStatus}, 200*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read response")
}

func TestSendWithoutListenerIsNotRunning(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "missing.sock")

	_, err := Send(context.Background(), socketPath, Request{Command: CommandStatus}, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestServeDecodeRequestErrorResponse(t *testing.T) {
	socketPath := serveRouter(t, Router{})

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("not-json\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(line, &resp))
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "decode request")
}

func TestProbe(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "nlsstream.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- Serve(ctx, listener, Router{Status: func() Response { return Response{State: "recording"} }})
	}()

	alive, probeErr := Probe(context.Background(), socketPath, 200*time.Millisecond)
	require.NoError(t, probeErr)
	require.True(t, alive)

	cancel()
	require.NoError(t, <-serveDone)

	alive, probeErr = Probe(context.Background(), socketPath, 100*time.Millisecond)
	require.NoError(t, probeErr)
	require.False(t, alive)
}
