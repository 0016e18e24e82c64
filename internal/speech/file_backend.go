package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-audio/wav"

	"github.com/rbright/echosight/internal/config"
	"github.com/rbright/echosight/internal/task"
)

// suppressionPollInterval bounds how long playback keeps sounding after a
// stop request.
const suppressionPollInterval = 50 * time.Millisecond

// fileBackend renders the utterance to a temporary WAV file with an external
// synthesizer, then plays the file asynchronously for a duration derived
// from the file's own header plus a guard margin. Playback polls the
// suppression signal so a stop request purges it early.
type fileBackend struct {
	synthArgv       []string
	playArgv        []string
	fallbackSeconds float64
	guard           time.Duration
	suppress        *task.Signal
	procs           *task.ProcSlot
	logger          *slog.Logger
}

func (b *fileBackend) name() string { return "file" }

func (b *fileBackend) attempt(ctx context.Context, text string) error {
	if len(b.synthArgv) == 0 || len(b.playArgv) == 0 {
		return errNotConfigured
	}
	if b.suppress.IsSet() {
		return nil
	}

	tmp, err := os.CreateTemp("", "echosight-tts-*.wav")
	if err != nil {
		return fmt.Errorf("create synthesis file: %w", err)
	}
	wavPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(wavPath)

	synthArgv := config.ExpandArgv(b.synthArgv, map[string]string{"out": wavPath})
	if err := runWithStdin(ctx, synthArgv, text, b.suppress, b.procs); err != nil {
		return fmt.Errorf("synthesize to file: %w", err)
	}
	if b.suppress.IsSet() {
		return nil
	}

	duration := b.playDuration(wavPath)
	return b.playFor(ctx, wavPath, duration)
}

// playDuration reads the rendered file's duration from its header. A file
// the decoder cannot read still gets played, for a fixed fallback duration.
func (b *fileBackend) playDuration(path string) time.Duration {
	file, err := os.Open(path)
	if err != nil {
		return b.fallbackDuration()
	}
	defer file.Close()

	duration, err := wav.NewDecoder(file).Duration()
	if err != nil || duration <= 0 {
		return b.fallbackDuration()
	}
	return duration
}

func (b *fileBackend) fallbackDuration() time.Duration {
	seconds := b.fallbackSeconds
	if seconds <= 0 {
		seconds = 8
	}
	return time.Duration(seconds * float64(time.Second))
}

// playFor starts the playback command without waiting for it, then watches
// the suppression signal until the expected duration plus guard elapses. A
// stop request kills the player immediately.
func (b *fileBackend) playFor(ctx context.Context, wavPath string, duration time.Duration) error {
	argv := append(append([]string{}, b.playArgv...), wavPath)
	cmd := newCommand(ctx, argv)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start player %s: %w", argv[0], err)
	}
	b.procs.Store(cmd)
	defer b.procs.Clear(cmd)

	// Reap the player in the background; kills below surface here.
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	deadline := time.Now().Add(duration + b.guard)
	ticker := time.NewTicker(suppressionPollInterval)
	defer ticker.Stop()

	for {
		if b.suppress.IsSet() {
			_ = cmd.Process.Kill()
			<-waitCh
			b.logger.Info("narration purged during file playback")
			return nil
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case err := <-waitCh:
			if err != nil {
				if b.suppress.IsSet() {
					return nil
				}
				return fmt.Errorf("play %s: %w", argv[0], err)
			}
			return nil
		case <-ticker.C:
		}
	}

	// Past the header-derived duration the player should be done; reclaim
	// it rather than leaving a straggler.
	_ = cmd.Process.Kill()
	<-waitCh
	return nil
}
