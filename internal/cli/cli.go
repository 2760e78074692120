// Package cli parses nlsstream command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandListen  Command = "listen"
	CommandStop    Command = "stop"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandListen:  {},
	CommandStop:    {},
	CommandStatus:  {},
	CommandDevices: {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Parsed is the normalized invocation.
type Parsed struct {
	Command    Command
	ConfigPath string
	EnvPath    string
	Input      string
	Verbose    bool
	ShowHelp   bool
}

// Parse reads flags followed by at most one command. No command means listen.
func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandListen}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--config", "--env", "--input":
			i++
			if i >= len(args) || strings.TrimSpace(args[i]) == "" {
				return Parsed{}, fmt.Errorf("%s requires a value", arg)
			}
			switch arg {
			case "--config":
				parsed.ConfigPath = args[i]
			case "--env":
				parsed.EnvPath = args[i]
			default:
				parsed.Input = args[i]
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			if parsed.ShowHelp {
				continue
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	if parsed.Input != "" && parsed.Command != CommandListen && parsed.Command != CommandDevices && parsed.Command != CommandDoctor {
		return Parsed{}, errors.New("--input only applies to listen, devices and doctor")
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [flags] [command]

Commands:
  listen    Stream microphone audio to NLS and print results (default)
  stop      Ask the running listener to stop
  status    Print the running listener's session state
  devices   List capture devices and mark the one listen would use
  doctor    Check config, credentials, audio device and gateway reachability
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/nlsstream/config.toml)
  --env PATH      Dotenv file with NLS_URL, NLS_TOKEN, NLS_APPKEY (default: ./.env)
  --input NAME    Capture input: first, default, or a device name substring
  -v, --verbose   Debug-level runtime logging
  -h, --help      Show help
  --version       Show version

Press Ctrl-C to stop listening.
`, binaryName)
}
