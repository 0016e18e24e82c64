package speech

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/rbright/echosight/internal/audio"
	"github.com/rbright/echosight/internal/task"
)

// errNotConfigured marks a backend whose command argv is absent from the
// configuration. It falls through like any other backend failure.
var errNotConfigured = errors.New("backend not configured")

// backend is one concrete mechanism for rendering text to audible output.
// Backends are tried in fixed priority order; an error falls through to the
// next backend in the chain.
type backend interface {
	name() string
	attempt(ctx context.Context, text string) error
}

// pipedBackend pipes the utterance into an external speech command and
// blocks until it exits. It covers both the helper-script and one-shot
// command rungs of the chain.
type pipedBackend struct {
	label    string
	argv     []string
	suppress *task.Signal
	procs    *task.ProcSlot
}

func (b *pipedBackend) name() string { return b.label }

func (b *pipedBackend) attempt(ctx context.Context, text string) error {
	if len(b.argv) == 0 {
		return errNotConfigured
	}
	if b.suppress.IsSet() {
		return nil
	}
	return runWithStdin(ctx, b.argv, text, b.suppress, b.procs)
}

// engineBackend is the last-resort rung. It renders a short synchronous
// attention tone through the audio subsystem directly, with no subprocess,
// so the user still hears that a narration was produced even when every
// external speech command is broken.
type engineBackend struct {
	suppress *task.Signal

	// playPCM is swapped in tests.
	playPCM func(samples []int16, mediaName string) error
}

func (b *engineBackend) name() string { return "engine" }

func (b *engineBackend) attempt(_ context.Context, _ string) error {
	if b.suppress.IsSet() {
		return nil
	}
	play := b.playPCM
	if play == nil {
		play = audio.PlayPCM
	}
	return play(engineFallbackPCM(), "echosight narration")
}

// runWithStdin executes argv with the utterance piped to stdin, tracking the
// process in the narration slot so stop-speech and cancel triggers can
// terminate it from another goroutine. A kill observed while suppression is
// set counts as a completed attempt, not a failure.
func runWithStdin(ctx context.Context, argv []string, input string, suppress *task.Signal, procs *task.ProcSlot) error {
	cmd := newCommand(ctx, argv)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	procs.Store(cmd)
	defer procs.Clear(cmd)

	if _, err := stdin.Write([]byte(input)); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write stdin for %s: %w", argv[0], err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		if suppress.IsSet() {
			return nil
		}
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

func newCommand(ctx context.Context, argv []string) *exec.Cmd {
	return exec.CommandContext(ctx, argv[0], argv[1:]...)
}

// engineFallbackPCM is the attention pattern the engine rung plays. It
// cannot render the words themselves without an external synthesizer, so a
// distinctive three-note figure tells the user a narration was produced and
// the speech commands need attention.
func engineFallbackPCM() []int16 {
	gap := audio.Silence(30 * time.Millisecond)
	pcm := audio.Tone(880, 120*time.Millisecond, 0.2)
	pcm = append(pcm, gap...)
	pcm = append(pcm, audio.Tone(988, 120*time.Millisecond, 0.2)...)
	pcm = append(pcm, gap...)
	pcm = append(pcm, audio.Tone(1046, 180*time.Millisecond, 0.2)...)
	return pcm
}

func guardDuration(guardMS int) time.Duration {
	if guardMS < 0 {
		guardMS = 0
	}
	return time.Duration(guardMS) * time.Millisecond
}
