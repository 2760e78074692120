package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseOverridesOnlyPresentKeys(t *testing.T) {
	content := `
[nls]
url = "wss://nls-gateway-cn-beijing.aliyuncs.com/ws/v1"
appkey = "app-123"

[audio]
input = "USB"
cues = true

[recognition]
punctuation_prediction = true

[session]
connect_timeout = "3s"
stop_grace = "750ms"

[debug]
event_dump = true
`
	cfg, warnings, err := Parse(content, Default())
	require.NoError(t, err)

	require.Equal(t, "wss://nls-gateway-cn-beijing.aliyuncs.com/ws/v1", cfg.NLS.URL)
	require.Equal(t, "app-123", cfg.NLS.AppKey)
	require.Equal(t, "USB", cfg.Audio.Input)
	require.True(t, cfg.Audio.Cues)
	require.Equal(t, 16000, cfg.Recognition.SampleRate)
	require.Equal(t, 3*time.Second, cfg.Session.ConnectTimeout)
	require.Equal(t, 750*time.Millisecond, cfg.Session.StopGrace)
	require.Equal(t, 500*time.Millisecond, cfg.Session.PollInterval)
	require.True(t, cfg.Debug.EventDump)
	require.False(t, cfg.Debug.AudioDump)

	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "token")
}

func TestParseEmptyContentReturnsBase(t *testing.T) {
	cfg, _, err := Parse("  \n", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestParseWarnsOnUnknownKeys(t *testing.T) {
	content := `
[nls]
token = "abcdefghijklmnop"
appkey = "app"
region = "cn"

[extra]
flag = true
`
	_, warnings, err := Parse(content, Default())
	require.NoError(t, err)

	messages := make([]string, 0, len(warnings))
	for _, w := range warnings {
		messages = append(messages, w.Message)
	}
	require.Contains(t, messages, `unknown config key "nls.region"`)
	require.Contains(t, messages, `unknown config key "extra.flag"`)
}

func TestParseRejectsInvalidDuration(t *testing.T) {
	_, _, err := Parse("[session]\nstop_grace = \"soon\"\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "session.stop_grace")
}

func TestParseSyntaxErrorReportsLine(t *testing.T) {
	_, _, err := Parse("[nls]\nurl = wss://a\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestParseRunsValidation(t *testing.T) {
	_, _, err := Parse("[nls]\nurl = \"https://example.com\"\n", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "ws or wss")
}

func TestParseRejectsDisablingFixedRecognitionOptions(t *testing.T) {
	for _, key := range []string{
		"intermediate_result",
		"punctuation_prediction",
		"inverse_text_normalization",
	} {
		t.Run(key, func(t *testing.T) {
			_, _, err := Parse("[recognition]\n"+key+" = false\n", Default())
			require.Error(t, err)
			require.Contains(t, err.Error(), "recognition."+key)
			require.Contains(t, err.Error(), "cannot be disabled")
		})
	}
}
