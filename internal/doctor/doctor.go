// Package doctor runs readiness diagnostics for config, external tools,
// audio, and the stored credential.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rbright/echosight/internal/audio"
	"github.com/rbright/echosight/internal/config"
	"github.com/rbright/echosight/internal/credential"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("not found at %q; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	checks = append(checks, checkCommand(cfg.Config.Capture.Argv, "capture_cmd"))
	checks = append(checks, checkCommand(cfg.Config.Speech.SynthFileCmd.Argv, "speech.synth_file_cmd"))
	checks = append(checks, checkCommand(cfg.Config.Speech.PlayCmd.Argv, "speech.play_cmd"))
	checks = append(checks, checkCommand(cfg.Config.Dictation.TranscribeCmd.Argv, "dictation.transcribe_cmd"))
	if len(cfg.Config.Clipboard.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	}

	checks = append(checks, checkAudioDevices())
	checks = append(checks, checkCredential(cfg))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioDevices lists pulse devices to surface audio server issues.
func checkAudioDevices() Check {
	devices, err := audio.ListDevices(context.Background())
	if err != nil {
		return Check{Name: "audio.devices", Pass: false, Message: err.Error()}
	}
	sinks := 0
	sources := 0
	for _, device := range devices {
		switch device.Kind {
		case "sink":
			sinks++
		case "source":
			sources++
		}
	}
	if sinks == 0 {
		return Check{Name: "audio.devices", Pass: false, Message: "no playback sinks found"}
	}
	return Check{Name: "audio.devices", Pass: true, Message: fmt.Sprintf("%d sinks, %d sources", sinks, sources)}
}

// checkCredential reports whether an API key is resolvable without printing it.
func checkCredential(cfg config.Loaded) Check {
	path := config.ResolveCredentialPath(cfg.Config, cfg.Path)
	store := credential.NewStore(path, nil)
	if _, ok := store.Get(); ok {
		return Check{Name: "credential", Pass: true, Message: "API key is configured"}
	}
	return Check{Name: "credential", Pass: false, Message: fmt.Sprintf("no API key; run set-key or set %s", credential.EnvOverride)}
}
