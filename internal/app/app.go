package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/rbright/echosight/internal/audio"
	"github.com/rbright/echosight/internal/capture"
	"github.com/rbright/echosight/internal/cli"
	"github.com/rbright/echosight/internal/config"
	"github.com/rbright/echosight/internal/credential"
	"github.com/rbright/echosight/internal/dictation"
	"github.com/rbright/echosight/internal/doctor"
	"github.com/rbright/echosight/internal/indicator"
	"github.com/rbright/echosight/internal/inference"
	"github.com/rbright/echosight/internal/ipc"
	"github.com/rbright/echosight/internal/logging"
	"github.com/rbright/echosight/internal/orchestrator"
	"github.com/rbright/echosight/internal/output"
	"github.com/rbright/echosight/internal/speech"
	"github.com/rbright/echosight/internal/task"
	"github.com/rbright/echosight/internal/version"
)

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("echosight"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("echosight"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded, logger)
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandSetKey:
		return r.commandSetKey(ctx)
	case cli.CommandCapture:
		return r.forwardOrFail(ctx, ipc.CommandCapture)
	case cli.CommandFollowUp:
		return r.forwardOrFail(ctx, ipc.CommandFollowUp)
	case cli.CommandStopSpeech:
		return r.forwardOrFail(ctx, ipc.CommandStopSpeech)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandNext:
		return r.forwardOrFail(ctx, ipc.CommandNext)
	case cli.CommandPrevious:
		return r.forwardOrFail(ctx, ipc.CommandPrevious)
	case cli.CommandShutdown:
		return r.forwardOrFail(ctx, ipc.CommandShutdown)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandRun starts the daemon: acquire the socket, wire the task stack,
// serve triggers until a shutdown trigger or signal arrives.
func (r Runner) commandRun(ctx context.Context, cfgLoaded config.Loaded, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: another echosight daemon is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	cfg := cfgLoaded.Config
	store := credential.NewStore(config.ResolveCredentialPath(cfg, cfgLoaded.Path), logger)

	suppress := &task.Signal{}
	cancelSignal := &task.Signal{}
	speechProcs := &task.ProcSlot{}
	transcriptionProcs := &task.ProcSlot{}

	narrator := speech.New(cfg.Speech, suppress, speechProcs, logger)
	transcriber := dictation.NewExecTranscriber(cfg.Dictation.TranscribeCmd, transcriptionProcs, logger)

	orch := orchestrator.New(cfg, orchestrator.Deps{
		Narrator:           narrator,
		Capture:            capture.NewExecProvider(cfg.Capture),
		Inference:          inference.New(cfg.Inference, logger),
		Recorder:           dictation.NewRecorder(transcriber, logger),
		Credentials:        store,
		Committer:          output.NewCommitter(cfg.Clipboard, logger),
		Cues:               indicator.New(cfg.Indicator, logger),
		TranscriptionProcs: transcriptionProcs,
		Cancel:             cancelSignal,
	}, logger)

	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, orch)
	}()

	logger.Info("daemon started", "socket", socketPath, "config", cfgLoaded.Path)
	go narrator.Speak(context.Background(), startupInstructions(), speech.Options{})
	if _, ok := store.Get(); !ok {
		go narrator.Speak(context.Background(),
			"The API key is not configured. Use the set key command to provide it.",
			speech.Options{})
	}

	select {
	case <-ctx.Done():
		orch.Shutdown()
		<-orch.Done()
	case <-orch.Done():
	}

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logger.Info("daemon stopped")
	return 0
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s %s id=%s | description=%q | state=%s | muted=%s\n",
			defaultMark,
			device.Kind,
			device.ID,
			device.Description,
			device.State,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		state := resp.State
		if state == "" {
			state = "idle"
		}
		if resp.ActiveTask != "" {
			fmt.Fprintf(r.Stdout, "%s (%s)\n", state, resp.ActiveTask)
			return 0
		}
		fmt.Fprintln(r.Stdout, state)
		return 0
	}

	fmt.Fprintln(r.Stdout, "not running")
	return 0
}

// commandSetKey reads the key from stdin so it never appears in argv or
// shell history, then forwards it to the daemon.
func (r Runner) commandSetKey(ctx context.Context) int {
	fmt.Fprint(r.Stdout, "Enter API key: ")
	reader := bufio.NewReader(r.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(r.Stderr, "error: read API key: %v\n", err)
		return 1
	}
	key := strings.TrimSpace(line)
	if key == "" {
		fmt.Fprintln(r.Stderr, "error: no API key provided")
		return 1
	}

	return r.forward(ctx, ipc.Request{Command: ipc.CommandSetKey, Text: key})
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	return r.forward(ctx, ipc.Request{Command: command})
}

func (r Runner) forward(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: no running echosight daemon; start one with `echosight run`")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

func startupInstructions() string {
	return "Echo Sight is ready. " +
		"Use the capture command to hear a description of the screen. " +
		"Use the follow-up command to ask a spoken question, and again to send it. " +
		"Use the next detail and previous detail commands to step through a description. " +
		"Use the stop speech command to silence narration, and cancel to abandon a task."
}
