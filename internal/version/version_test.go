package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func stamp(t *testing.T, version, commit, date string) {
	t.Helper()
	originalVersion, originalCommit, originalDate := Version, Commit, Date
	t.Cleanup(func() {
		Version = originalVersion
		Commit = originalCommit
		Date = originalDate
	})
	Version, Commit, Date = version, commit, date
}

func TestStringIncludesBuildMetadata(t *testing.T) {
	stamp(t, "1.2.3", "abc123", "2026-02-18")

	got := String()
	require.Contains(t, got, "nlsstream 1.2.3")
	require.Contains(t, got, "commit=abc123")
	require.Contains(t, got, "date=2026-02-18")
	require.Contains(t, got, "go=")
}

func TestUserAgent(t *testing.T) {
	stamp(t, "0.4.0", "none", "unknown")

	require.Equal(t, "nlsstream/0.4.0 ("+runtime.GOOS+"/"+runtime.GOARCH+")", UserAgent())
}
