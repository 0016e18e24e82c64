// Package orchestrator composes the task gate, cancellation signals,
// narration pipeline, and external providers into the trigger-driven control
// plane of the assistant. Every trigger arrives over IPC, is admitted or
// denied immediately, and runs its task on its own goroutine.
package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/echosight/internal/config"
	"github.com/rbright/echosight/internal/detail"
	"github.com/rbright/echosight/internal/fsm"
	"github.com/rbright/echosight/internal/indicator"
	"github.com/rbright/echosight/internal/speech"
	"github.com/rbright/echosight/internal/task"
)

// shutdownGrace lets the farewell cue drain before the process exits.
const shutdownGrace = 200 * time.Millisecond

// Narrator is the orchestrator-facing surface of the speech pipeline.
type Narrator interface {
	Speak(ctx context.Context, text string, opts speech.Options)
	Stop()
	Resume()
}

// CaptureProvider produces one screenshot per call.
type CaptureProvider interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Inference answers vision questions about a screenshot.
type Inference interface {
	Describe(ctx context.Context, apiKey string, image []byte) (string, error)
	Ask(ctx context.Context, apiKey string, image []byte, question string) (string, error)
	Abort()
}

// Recorder captures a spoken follow-up question.
type Recorder interface {
	Record(ctx context.Context, maxDuration, chunk time.Duration, cancel, submit *task.Signal) (string, error)
}

// Credentials resolves and persists the inference API key.
type Credentials interface {
	Get() (string, bool)
	Set(plaintext string) (string, bool)
}

// Committer places finished narration text on the clipboard.
type Committer interface {
	Commit(ctx context.Context, text string) error
}

// Deps wires the orchestrator's collaborators. The process slots are shared
// with the speech pipeline and transcriber so cancel triggers can terminate
// their subprocesses.
type Deps struct {
	Narrator           Narrator
	Capture            CaptureProvider
	Inference          Inference
	Recorder           Recorder
	Credentials        Credentials
	Committer          Committer
	Cues               indicator.Controller
	TranscriptionProcs *task.ProcSlot
	Cancel             *task.Signal
}

// Orchestrator owns the single-flight task gate and dispatches triggers.
type Orchestrator struct {
	cfg    config.Config
	logger *slog.Logger

	gate      *task.Gate
	cancel    *task.Signal
	listening *task.Signal
	submit    *task.Signal

	narrator    Narrator
	capture     CaptureProvider
	inference   Inference
	recorder    Recorder
	credentials Credentials
	committer   Committer
	cues        indicator.Controller

	transcriptionProcs *task.ProcSlot

	cursor *detail.Cursor

	mu    sync.RWMutex
	state fsm.State

	shutdownOnce sync.Once
	done         chan struct{}
}

// New constructs an orchestrator. Nil optional collaborators are replaced
// with inert fallbacks so tests can wire only what they exercise.
func New(cfg config.Config, deps Deps, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Cues == nil {
		deps.Cues = indicator.Noop()
	}
	if deps.TranscriptionProcs == nil {
		deps.TranscriptionProcs = &task.ProcSlot{}
	}
	if deps.Cancel == nil {
		deps.Cancel = &task.Signal{}
	}

	return &Orchestrator{
		cfg:                cfg,
		logger:             logger,
		gate:               task.NewGate(),
		cancel:             deps.Cancel,
		listening:          &task.Signal{},
		submit:             &task.Signal{},
		narrator:           deps.Narrator,
		capture:            deps.Capture,
		inference:          deps.Inference,
		recorder:           deps.Recorder,
		credentials:        deps.Credentials,
		committer:          deps.Committer,
		cues:               deps.Cues,
		transcriptionProcs: deps.TranscriptionProcs,
		cursor:             detail.NewCursor(),
		state:              fsm.StateIdle,
		done:               make(chan struct{}),
	}
}

// Done is closed once shutdown has finished its cleanup and farewell; the
// daemon loop exits when it fires.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// State returns the current lifecycle state snapshot.
func (o *Orchestrator) State() fsm.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// transition applies one lifecycle event to the orchestrator state.
func (o *Orchestrator) transition(event fsm.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next, err := fsm.Transition(o.state, event)
	if err != nil {
		return err
	}
	o.state = next
	return nil
}

func (o *Orchestrator) admissionTimeout() time.Duration {
	timeout := time.Duration(o.cfg.Admission.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	return timeout
}

// narrate speaks text through the pipeline when one is wired.
func (o *Orchestrator) narrate(ctx context.Context, text string, opts speech.Options) {
	if o.narrator == nil {
		return
	}
	o.narrator.Speak(ctx, text, opts)
}

func (o *Orchestrator) stopNarration() {
	if o.narrator != nil {
		o.narrator.Stop()
	}
}

func (o *Orchestrator) resumeNarration() {
	if o.narrator != nil {
		o.narrator.Resume()
	}
}

// startProgress ticks an audible cue while inference is pending. The
// returned stop function halts the ticker and joins its goroutine; it is
// safe to call more than once.
func (o *Orchestrator) startProgress() (stop func()) {
	interval := time.Duration(o.cfg.Indicator.ProgressIntervalMS) * time.Millisecond
	if interval <= 0 {
		return func() {}
	}

	halt := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-halt:
				return
			case <-ticker.C:
				o.cues.Tick()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(halt)
			<-finished
		})
	}
}
