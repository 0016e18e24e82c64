package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun        Command = "run"
	CommandCapture    Command = "capture"
	CommandFollowUp   Command = "follow-up"
	CommandStopSpeech Command = "stop-speech"
	CommandCancel     Command = "cancel"
	CommandNext       Command = "next-detail"
	CommandPrevious   Command = "previous-detail"
	CommandSetKey     Command = "set-key"
	CommandStatus     Command = "status"
	CommandShutdown   Command = "shutdown"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:        {},
	CommandCapture:    {},
	CommandFollowUp:   {},
	CommandStopSpeech: {},
	CommandCancel:     {},
	CommandNext:       {},
	CommandPrevious:   {},
	CommandSetKey:     {},
	CommandStatus:     {},
	CommandShutdown:   {},
	CommandDevices:    {},
	CommandDoctor:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>

Commands:
  run              Start the assistant daemon
  capture          Capture the screen and narrate a description
  follow-up        Start a spoken follow-up question, or submit one in progress
  stop-speech      Stop current narration without canceling the task
  cancel           Cancel the active task and stop narration
  next-detail      Read the next detail of the last description
  previous-detail  Read the previous detail of the last description
  set-key          Store the vision API key (read from stdin)
  status           Print daemon state
  shutdown         Stop the running daemon
  devices          List available audio devices
  doctor           Run configuration and environment checks
  version          Print version information
  help             Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/echosight/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
