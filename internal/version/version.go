// Package version exposes build metadata stamped via -ldflags.
package version

import "runtime"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the full build banner.
func String() string {
	return "nlsstream " + Version + " (commit=" + Commit + ", date=" + Date + ", go=" + runtime.Version() + ")"
}

// UserAgent is sent on the gateway handshake.
func UserAgent() string {
	return "nlsstream/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
