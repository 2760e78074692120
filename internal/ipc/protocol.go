// Package ipc lets nlsstream commands talk to a running listener over a
// unix socket using newline-delimited JSON.
package ipc

// Commands understood by a listener.
const (
	CommandStatus = "status"
	CommandStop   = "stop"
)

// Request is one client command.
type Request struct {
	Command string `json:"command"`
}

// Response reports the listener's session state.
type Response struct {
	OK        bool    `json:"ok"`
	State     string  `json:"state,omitempty"`
	Connected bool    `json:"connected,omitempty"`
	Recording bool    `json:"recording,omitempty"`
	Frames    int64   `json:"frames,omitempty"`
	Elapsed   float64 `json:"elapsed_seconds,omitempty"`
	Message   string  `json:"message,omitempty"`
	Error     string  `json:"error,omitempty"`
}
