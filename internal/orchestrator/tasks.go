package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/echosight/internal/detail"
	"github.com/rbright/echosight/internal/dictation"
	"github.com/rbright/echosight/internal/fsm"
	"github.com/rbright/echosight/internal/inference"
	"github.com/rbright/echosight/internal/speech"
	"github.com/rbright/echosight/internal/task"
)

// errTaskCanceled short-circuits the remaining task steps after the user
// cancels. It is logged at info level and draws no error cue.
var errTaskCanceled = errors.New("task canceled")

const missingKeyText = "The API key is not configured. Use the set key command to provide it."

// runTask executes one task session to completion. Whatever happens inside,
// the cleanup path runs: panic recovery, lifecycle transition, listening and
// submit resets, and the gate release.
func (o *Orchestrator) runTask(name task.Name, session string, fn func(ctx context.Context, logger *slog.Logger) error) {
	logger := o.logger.With("session", session, "task", string(name))
	ctx := context.Background()

	_ = o.transition(fsm.EventStart)

	var err error
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "panic", r)
			o.cues.ErrorCue()
			o.narrate(ctx, "Something went wrong. Ready for the next command.", speech.Options{})
			err = fmt.Errorf("task panic: %v", r)
		}

		switch {
		case errors.Is(err, errTaskCanceled):
			_ = o.transition(fsm.EventCancel)
			logger.Info("task canceled")
		case err != nil:
			_ = o.transition(fsm.EventFail)
			logger.Error("task failed", "error", err)
		default:
			_ = o.transition(fsm.EventComplete)
			logger.Info("task completed")
		}

		o.listening.Clear()
		o.submit.Clear()
		o.gate.Release()
	}()

	err = fn(ctx, logger)
}

// captureTask grabs the screen, asks the model to describe it, narrates the
// summary, and loads the detail cursor for navigation.
func (o *Orchestrator) captureTask(ctx context.Context, logger *slog.Logger) error {
	if o.cancel.IsSet() {
		return errTaskCanceled
	}

	key, ok := o.credentialKey()
	if !ok {
		o.cues.ErrorCue()
		o.narrate(ctx, missingKeyText, speech.Options{})
		return errors.New("API key missing")
	}

	image, err := o.capture.Capture(ctx)
	if err != nil {
		o.cues.ErrorCue()
		o.cues.NotifyError("Screen capture failed.")
		o.narrate(ctx, "Failed to capture the screen.", speech.Options{})
		return fmt.Errorf("capture screen: %w", err)
	}
	if o.cancel.IsSet() {
		return errTaskCanceled
	}

	logger.Info("screenshot captured", "bytes", len(image))
	stopProgress := o.startProgress()
	description, err := o.inference.Describe(ctx, key, image)
	stopProgress()
	if err != nil {
		if errors.Is(err, inference.ErrCanceled) {
			return errTaskCanceled
		}
		o.cues.ErrorCue()
		o.cues.NotifyError("The vision model request failed.")
		o.narrate(ctx, "The vision model request failed.", speech.Options{})
		return fmt.Errorf("describe screenshot: %w", err)
	}
	if o.cancel.IsSet() {
		return errTaskCanceled
	}

	logger.Info("description received", "length", len(description))
	sections := detail.Split(description)
	if len(sections) == 0 {
		sections = []string{"No details available."}
	}
	o.cursor.Load(sections)

	if o.committer != nil {
		if err := o.committer.Commit(ctx, description); err != nil {
			logger.Warn("clipboard commit failed", "error", err)
		}
	}

	summary := detail.Summarize(description)
	o.cues.Complete()
	o.narrate(ctx, "Summary is ready.", speech.Options{Interrupt: true})
	o.narrate(ctx, "Summary. "+summary, speech.Options{})
	o.narrate(ctx, "Use the next detail and previous detail commands to hear more.", speech.Options{})
	return nil
}

// followUpTask records a spoken question, grabs a fresh screenshot, and
// narrates the model's answer.
func (o *Orchestrator) followUpTask(ctx context.Context, logger *slog.Logger) error {
	if o.cancel.IsSet() {
		return errTaskCanceled
	}

	key, ok := o.credentialKey()
	if !ok {
		o.cues.ErrorCue()
		o.narrate(ctx, missingKeyText, speech.Options{})
		return errors.New("API key missing")
	}

	o.narrate(ctx, "Recording mode. Ask your question after the cue. Trigger follow up again to send immediately.", speech.Options{})
	if o.cancel.IsSet() {
		return errTaskCanceled
	}

	o.submit.Clear()
	o.listening.Set()
	o.cues.Listen()
	question, err := o.recorder.Record(ctx, o.maxRecordDuration(), o.chunkDuration(), o.cancel, o.submit)
	o.listening.Clear()
	if errors.Is(err, dictation.ErrCanceled) || o.cancel.IsSet() {
		return errTaskCanceled
	}
	if err != nil {
		o.cues.ErrorCue()
		o.narrate(ctx, "Recording failed. Please try again.", speech.Options{})
		return fmt.Errorf("record follow-up: %w", err)
	}
	if question == "" {
		o.cues.Deny()
		o.narrate(ctx, "I could not understand the question. Please try again.", speech.Options{})
		return nil
	}
	logger.Info("follow-up question transcribed", "length", len(question))

	image, err := o.capture.Capture(ctx)
	if err != nil {
		o.cues.ErrorCue()
		o.cues.NotifyError("Screen capture failed.")
		o.narrate(ctx, "Failed to capture the screen.", speech.Options{})
		return fmt.Errorf("capture screen: %w", err)
	}
	if o.cancel.IsSet() {
		return errTaskCanceled
	}

	stopProgress := o.startProgress()
	answer, err := o.inference.Ask(ctx, key, image, question)
	stopProgress()
	if err != nil {
		if errors.Is(err, inference.ErrCanceled) {
			return errTaskCanceled
		}
		o.cues.ErrorCue()
		o.cues.NotifyError("The vision model request failed.")
		o.narrate(ctx, "The vision model request failed.", speech.Options{})
		return fmt.Errorf("answer follow-up: %w", err)
	}
	if o.cancel.IsSet() {
		return errTaskCanceled
	}

	logger.Info("follow-up answer received", "length", len(answer))
	if o.committer != nil {
		if err := o.committer.Commit(ctx, answer); err != nil {
			logger.Warn("clipboard commit failed", "error", err)
		}
	}

	o.cues.Complete()
	o.narrate(ctx, answer, speech.Options{Interrupt: true})
	return nil
}

// navigateTask reads one detail section relative to the cursor position.
func (o *Orchestrator) navigateTask(ctx context.Context, step int) error {
	if o.cancel.IsSet() {
		return errTaskCanceled
	}

	index, text, ok := o.cursor.Step(step)
	if !ok {
		o.narrate(ctx, "No details available yet. Run a capture first.", speech.Options{})
		return nil
	}

	message := fmt.Sprintf("Detail %d of %d. %s", index+1, o.cursor.Len(), text)
	o.narrate(ctx, message, speech.Options{})
	return nil
}

func (o *Orchestrator) credentialKey() (string, bool) {
	if o.credentials == nil {
		return "", false
	}
	return o.credentials.Get()
}

func (o *Orchestrator) maxRecordDuration() time.Duration {
	seconds := o.cfg.Dictation.MaxSeconds
	if seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}

func (o *Orchestrator) chunkDuration() time.Duration {
	seconds := o.cfg.Dictation.ChunkSeconds
	if seconds <= 0 {
		seconds = 3
	}
	return time.Duration(seconds) * time.Second
}
