package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStopFlagSetOnce(t *testing.T) {
	flag := NewStopFlag()
	require.False(t, flag.IsSet())

	flag.Set()
	flag.Set()
	require.True(t, flag.IsSet())

	select {
	case <-flag.Done():
	default:
		t.Fatal("done channel not closed")
	}
}
