package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToListen(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.False(t, parsed.ShowHelp)
	require.Equal(t, CommandListen, parsed.Command)
}

func TestParseFlagsBeforeCommand(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/nls.toml", "--env", "/tmp/.env", "--input", "USB", "-v", "listen"})
	require.NoError(t, err)
	require.Equal(t, CommandListen, parsed.Command)
	require.Equal(t, "/tmp/nls.toml", parsed.ConfigPath)
	require.Equal(t, "/tmp/.env", parsed.EnvPath)
	require.Equal(t, "USB", parsed.Input)
	require.True(t, parsed.Verbose)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  string
		wantCmd  Command
		wantHelp bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help wins over command", args: []string{"--help", "doctor"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help command", args: []string{"help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "stop command", args: []string{"stop"}, wantCmd: CommandStop},
		{name: "status command", args: []string{"status"}, wantCmd: CommandStatus},
		{name: "devices with input", args: []string{"--input", "mic", "devices"}, wantCmd: CommandDevices},
		{name: "config after command", args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "unexpected arguments after command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "--config requires a value"},
		{name: "empty env path", args: []string{"--env", " "}, wantErr: "--env requires a value"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"toggle"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "input with stop", args: []string{"--input", "mic", "stop"}, wantErr: "--input only applies"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
		})
	}
}

func TestHelpTextListsCommands(t *testing.T) {
	text := HelpText("nlsstream")
	for _, cmd := range []string{"listen", "stop", "status", "devices", "doctor", "version", "--env PATH"} {
		require.Contains(t, text, cmd)
	}
	require.Contains(t, text, "nlsstream/config.toml")
}
