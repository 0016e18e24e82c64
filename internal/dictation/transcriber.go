package dictation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/echosight/internal/config"
	"github.com/rbright/echosight/internal/task"
)

// ErrAttemptTimeout reports that a transcription attempt overran its
// watchdog deadline and was terminated.
var ErrAttemptTimeout = errors.New("transcription attempt timed out")

// procPollInterval bounds how long an attempt keeps running after cancel or
// submit is raised.
const procPollInterval = 50 * time.Millisecond

// ExecTranscriber runs an external transcription command for each attempt.
// The command receives the attempt duration through a {seconds} placeholder
// and prints the recognized text on stdout.
type ExecTranscriber struct {
	argv   []string
	procs  *task.ProcSlot
	logger *slog.Logger
}

// NewExecTranscriber builds a transcriber from the configured command. The
// process slot is shared with the orchestrator so cancel triggers can
// terminate an attempt in flight.
func NewExecTranscriber(cmd config.CommandConfig, procs *task.ProcSlot, logger *slog.Logger) *ExecTranscriber {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecTranscriber{argv: cmd.Argv, procs: procs, logger: logger}
}

// Transcribe runs one bounded attempt. A cancel or submit raised mid-attempt
// terminates the process and returns empty text rather than partial output.
func (t *ExecTranscriber) Transcribe(ctx context.Context, timeout time.Duration, cancel, submit *task.Signal) (string, error) {
	if len(t.argv) == 0 {
		return "", fmt.Errorf("transcribe command not configured")
	}

	seconds := int(timeout / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	argv := config.ExpandArgv(t.argv, map[string]string{"seconds": strconv.Itoa(seconds)})

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", argv[0], err)
	}
	t.procs.Store(cmd)
	defer t.procs.Clear(cmd)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	// The recognizer is allowed some startup slack past its own listening
	// window before the watchdog reclaims it.
	watchdog := timeout + 5*time.Second
	if watchdog < 12*time.Second {
		watchdog = 12 * time.Second
	}
	deadline := time.Now().Add(watchdog)

	ticker := time.NewTicker(procPollInterval)
	defer ticker.Stop()

	var waitErr error
poll:
	for {
		select {
		case waitErr = <-waitCh:
			break poll
		case <-ticker.C:
			if cancel.IsSet() || submit.IsSet() {
				_ = cmd.Process.Kill()
				<-waitCh
				t.logger.Info("transcription attempt terminated", "cause", terminationCause(cancel))
				return "", nil
			}
			if time.Now().After(deadline) {
				_ = cmd.Process.Kill()
				<-waitCh
				return "", ErrAttemptTimeout
			}
		}
	}

	if cancel.IsSet() || submit.IsSet() {
		return "", nil
	}
	if waitErr != nil {
		return "", fmt.Errorf("transcribe with %s: %w (stderr: %s)", argv[0], waitErr, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func terminationCause(cancel *task.Signal) string {
	if cancel.IsSet() {
		return "cancel"
	}
	return "submit"
}
