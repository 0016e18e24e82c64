// Package dictation captures a spoken follow-up question as text by running
// an external transcription primitive in bounded chunks, so the user can let
// the recording run to its ceiling or submit early.
package dictation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/echosight/internal/task"
)

// ErrCanceled reports that the user canceled the recording. It is a
// distinct outcome from hearing nothing, which returns empty text and no
// error.
var ErrCanceled = errors.New("dictation canceled")

// Transcriber produces one bounded-duration transcription attempt. The
// attempt must terminate its own external process when cancel or submit is
// raised rather than waiting out its timeout.
type Transcriber interface {
	Transcribe(ctx context.Context, timeout time.Duration, cancel, submit *task.Signal) (string, error)
}

// Recorder accumulates transcription chunks until the recording ceiling,
// cancellation, or an explicit submit ends the loop.
type Recorder struct {
	transcriber Transcriber
	logger      *slog.Logger
}

// NewRecorder constructs a recorder around a transcription primitive.
func NewRecorder(transcriber Transcriber, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{transcriber: transcriber, logger: logger}
}

// Record loops bounded transcription attempts until maxDuration elapses,
// cancel is raised, or submit is raised. Accumulated chunks are joined with
// single spaces; empty accumulation returns empty text with no error.
func (r *Recorder) Record(ctx context.Context, maxDuration, chunk time.Duration, cancel, submit *task.Signal) (string, error) {
	var chunks []string
	started := time.Now()

	for time.Since(started) < maxDuration {
		if cancel.IsSet() {
			return "", ErrCanceled
		}
		if submit.IsSet() {
			break
		}
		if ctx.Err() != nil {
			return "", ErrCanceled
		}

		remaining := maxDuration - time.Since(started)
		if remaining <= 0 {
			break
		}
		attempt := chunk
		if attempt > remaining {
			attempt = remaining
		}
		if attempt < time.Second {
			attempt = time.Second
		}

		text, err := r.transcriber.Transcribe(ctx, attempt, cancel, submit)
		if cancel.IsSet() {
			return "", ErrCanceled
		}
		if err != nil {
			r.logger.Warn("transcription attempt failed", "error", err)
			continue
		}

		text = strings.TrimSpace(text)
		if text != "" {
			chunks = append(chunks, text)
			r.logger.Info("dictation chunk heard", "length", len(text))
		}

		if submit.IsSet() {
			break
		}
	}

	if len(chunks) == 0 {
		return "", nil
	}
	return strings.Join(chunks, " "), nil
}
