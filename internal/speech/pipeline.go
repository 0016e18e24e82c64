// Package speech renders narration text to audible output through an ordered
// chain of fallback backends, serializing all utterances so they never
// overlap and honoring a suppression signal that silences pending narration.
package speech

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rbright/echosight/internal/config"
	"github.com/rbright/echosight/internal/task"
)

// Options adjusts a single Speak call.
type Options struct {
	// Interrupt terminates the active narration process before this
	// utterance is queued.
	Interrupt bool
	// Repeat speaks the utterance this many times (minimum 1).
	Repeat int
}

// Pipeline is the narration surface for the whole process. All Speak calls
// serialize on one lock so narrations never interleave audibly.
type Pipeline struct {
	logger   *slog.Logger
	suppress *task.Signal
	procs    *task.ProcSlot

	mu       sync.Mutex
	backends []backend
}

// New builds the fallback chain from the speech configuration. The suppress
// signal is shared with the orchestrator so stop-speech triggers reach into
// in-flight playback.
func New(cfg config.SpeechConfig, suppress *task.Signal, procs *task.ProcSlot, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Pipeline{
		logger:   logger,
		suppress: suppress,
		procs:    procs,
	}
	p.backends = []backend{
		&fileBackend{
			synthArgv:       cfg.SynthFileCmd.Argv,
			playArgv:        cfg.PlayCmd.Argv,
			fallbackSeconds: cfg.FallbackPlaySeconds,
			guard:           guardDuration(cfg.PlayGuardMS),
			suppress:        suppress,
			procs:           procs,
			logger:          logger,
		},
		&pipedBackend{label: "script", argv: cfg.ScriptCmd.Argv, suppress: suppress, procs: procs},
		&pipedBackend{label: "command", argv: cfg.SayCmd.Argv, suppress: suppress, procs: procs},
		&engineBackend{suppress: suppress},
	}
	return p
}

// Speak renders text through the backend chain. Backend failures fall
// through to the next backend and are never surfaced to the caller; only
// exhausting every backend leaves the utterance unspoken. A set suppression
// signal makes the call a silent no-op.
func (p *Pipeline) Speak(ctx context.Context, text string, opts Options) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if p.suppress.IsSet() {
		p.logger.Info("narration suppressed by stop request")
		return
	}
	if opts.Interrupt {
		p.procs.Terminate()
	}

	repeat := opts.Repeat
	if repeat < 1 {
		repeat = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 0; i < repeat; i++ {
		if p.suppress.IsSet() || ctx.Err() != nil {
			return
		}
		p.speakOnce(ctx, text)
	}
}

// Stop suppresses pending narration and terminates the active narration
// process. Suppression stays set until Resume.
func (p *Pipeline) Stop() {
	p.suppress.Set()
	p.procs.Terminate()
}

// Resume allows narration again after a stop request.
func (p *Pipeline) Resume() {
	p.suppress.Clear()
}

func (p *Pipeline) speakOnce(ctx context.Context, text string) {
	for _, b := range p.backends {
		if p.suppress.IsSet() {
			return
		}
		err := b.attempt(ctx, text)
		if err == nil {
			p.logger.Info("narration spoken", "backend", b.name())
			return
		}
		p.logger.Warn("speech backend failed", "backend", b.name(), "error", err)
	}
	p.logger.Error("all speech backends failed; utterance unspoken")
}
