package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbright/echosight/internal/config"
	"github.com/rbright/echosight/internal/dictation"
	"github.com/rbright/echosight/internal/fsm"
	"github.com/rbright/echosight/internal/inference"
	"github.com/rbright/echosight/internal/ipc"
	"github.com/rbright/echosight/internal/speech"
	"github.com/rbright/echosight/internal/task"
)

type fakeNarrator struct {
	mu     sync.Mutex
	spoken []string
	stops  int
}

func (f *fakeNarrator) Speak(_ context.Context, text string, _ speech.Options) {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
}

func (f *fakeNarrator) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeNarrator) Resume() {}

func (f *fakeNarrator) utterances() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeNarrator) said(substr string) bool {
	for _, utterance := range f.utterances() {
		if strings.Contains(utterance, substr) {
			return true
		}
	}
	return false
}

type fakeCapture struct {
	err   error
	image []byte
}

func (f *fakeCapture) Capture(context.Context) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

type fakeInference struct {
	mu       sync.Mutex
	response string
	err      error
	block    chan struct{} // when set, Describe/Ask block until closed or aborted
	aborted  chan struct{}
	panics   bool
}

func newFakeInference(response string) *fakeInference {
	return &fakeInference{response: response, aborted: make(chan struct{})}
}

func (f *fakeInference) query() (string, error) {
	if f.panics {
		panic("inference exploded")
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-f.aborted:
			return "", inference.ErrCanceled
		}
	}
	return f.response, f.err
}

func (f *fakeInference) Describe(context.Context, string, []byte) (string, error) {
	return f.query()
}

func (f *fakeInference) Ask(context.Context, string, []byte, string) (string, error) {
	return f.query()
}

func (f *fakeInference) Abort() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.aborted:
	default:
		close(f.aborted)
	}
}

type fakeRecorder struct {
	question string
	err      error
	// waitSubmit makes Record behave like the real loop: it returns only
	// once submit or cancel is raised.
	waitSubmit bool
}

func (f *fakeRecorder) Record(_ context.Context, maxDuration, _ time.Duration, cancel, submit *task.Signal) (string, error) {
	if f.waitSubmit {
		deadline := time.Now().Add(maxDuration)
		for time.Now().Before(deadline) {
			if cancel.IsSet() {
				return "", dictation.ErrCanceled
			}
			if submit.IsSet() {
				return f.question, f.err
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
	if cancel.IsSet() {
		return "", dictation.ErrCanceled
	}
	return f.question, f.err
}

type fakeCredentials struct {
	key     string
	saved   []string
	saveOK  bool
	present bool
}

func (f *fakeCredentials) Get() (string, bool) {
	return f.key, f.present
}

func (f *fakeCredentials) Set(plaintext string) (string, bool) {
	f.saved = append(f.saved, plaintext)
	if !f.saveOK {
		return "", false
	}
	f.key = plaintext
	f.present = true
	return plaintext, true
}

type fakeCommitter struct {
	mu        sync.Mutex
	committed []string
}

func (f *fakeCommitter) Commit(_ context.Context, text string) error {
	f.mu.Lock()
	f.committed = append(f.committed, text)
	f.mu.Unlock()
	return nil
}

type harness struct {
	orch      *Orchestrator
	narrator  *fakeNarrator
	capture   *fakeCapture
	inference *fakeInference
	recorder  *fakeRecorder
	creds     *fakeCredentials
	committer *fakeCommitter
}

func newHarness(response string) *harness {
	cfg := config.Default()
	cfg.Admission.TimeoutMS = 50
	cfg.Indicator.ProgressIntervalMS = 0

	h := &harness{
		narrator:  &fakeNarrator{},
		capture:   &fakeCapture{image: []byte("PNGDATA")},
		inference: newFakeInference(response),
		recorder:  &fakeRecorder{question: "what is this"},
		creds:     &fakeCredentials{key: "test-key", present: true, saveOK: true},
		committer: &fakeCommitter{},
	}
	h.orch = New(cfg, Deps{
		Narrator:    h.narrator,
		Capture:     h.capture,
		Inference:   h.inference,
		Recorder:    h.recorder,
		Credentials: h.creds,
		Committer:   h.committer,
	}, nil)
	return h
}

func (h *harness) send(command string) ipc.Response {
	return h.orch.Handle(context.Background(), ipc.Request{Command: command})
}

func (h *harness) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.orch.State() == fsm.StateIdle && h.orch.gate.ActiveTask() == ""
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCaptureEndToEnd(t *testing.T) {
	h := newHarness("First part. Second part. Third part.")

	resp := h.send(ipc.CommandCapture)
	require.True(t, resp.OK, resp.Error)
	h.waitIdle(t)

	assert.True(t, h.narrator.said("Summary. First part. Second part."), "summary narration missing: %v", h.narrator.utterances())
	assert.Equal(t, 3, h.orch.cursor.Len())
	require.Len(t, h.committer.committed, 1)
	assert.Equal(t, "First part. Second part. Third part.", h.committer.committed[0])

	expected := []string{
		"Detail 1 of 3. First part.",
		"Detail 2 of 3. Second part.",
		"Detail 3 of 3. Third part.",
		"Detail 3 of 3. Third part.", // clamped at the end
	}
	for _, want := range expected {
		resp := h.send(ipc.CommandNext)
		require.True(t, resp.OK, resp.Error)
		h.waitIdle(t)
		assert.True(t, h.narrator.said(want), "missing narration %q in %v", want, h.narrator.utterances())
	}
}

func TestSingleFlightAdmission(t *testing.T) {
	h := newHarness("Something.")
	h.inference.block = make(chan struct{})

	resp := h.send(ipc.CommandCapture)
	require.True(t, resp.OK)

	require.Eventually(t, func() bool {
		return h.orch.gate.ActiveTask() == task.NameCapture
	}, time.Second, 5*time.Millisecond)

	denied := h.send(ipc.CommandCapture)
	assert.False(t, denied.OK)
	assert.Equal(t, "another task is active", denied.Error)
	assert.Equal(t, string(task.NameCapture), denied.ActiveTask)

	close(h.inference.block)
	h.waitIdle(t)
}

func TestCancelReachesBlockedInference(t *testing.T) {
	h := newHarness("Something.")
	h.inference.block = make(chan struct{})

	require.True(t, h.send(ipc.CommandCapture).OK)
	require.Eventually(t, func() bool {
		return h.orch.gate.ActiveTask() == task.NameCapture
	}, time.Second, 5*time.Millisecond)

	resp := h.send(ipc.CommandCancel)
	require.True(t, resp.OK)
	assert.Contains(t, resp.Message, "capture")

	h.waitIdle(t)
	// Cancellation stays sticky until the next admission.
	assert.True(t, h.orch.cancel.IsSet())
	assert.False(t, h.narrator.said("Summary."))

	// The next admission clears it and the task runs normally.
	h.inference = newFakeInference("Fresh answer.")
	h.orch.inference = h.inference
	require.True(t, h.send(ipc.CommandCapture).OK)
	h.waitIdle(t)
	assert.True(t, h.narrator.said("Fresh answer."))
}

func TestCancelWithNoActiveTask(t *testing.T) {
	h := newHarness("Something.")

	resp := h.send(ipc.CommandCancel)
	require.True(t, resp.OK)
	assert.Contains(t, resp.Message, "no task was running")
	assert.Equal(t, fsm.StateIdle, h.orch.State())
}

func TestFollowUpToggleSubmits(t *testing.T) {
	h := newHarness("It is a settings page.")
	h.recorder.waitSubmit = true

	require.True(t, h.send(ipc.CommandFollowUp).OK)
	require.Eventually(t, func() bool { return h.orch.listening.IsSet() }, time.Second, 5*time.Millisecond)

	resp := h.send(ipc.CommandFollowUp)
	require.True(t, resp.OK)
	assert.Contains(t, resp.Message, "submitting")

	h.waitIdle(t)
	assert.True(t, h.narrator.said("It is a settings page."))
	require.Len(t, h.committer.committed, 1)
}

func TestFollowUpNothingHeard(t *testing.T) {
	h := newHarness("unused")
	h.recorder.question = ""

	require.True(t, h.send(ipc.CommandFollowUp).OK)
	h.waitIdle(t)

	assert.True(t, h.narrator.said("could not understand"))
	assert.False(t, h.narrator.said("unused"))
}

func TestStopSpeechDoesNotTouchGate(t *testing.T) {
	h := newHarness("Something.")

	resp := h.send(ipc.CommandStopSpeech)
	require.True(t, resp.OK)
	assert.Equal(t, fsm.StateIdle, h.orch.State())
	assert.Positive(t, h.narrator.stops)

	// A capture still admits right away.
	require.True(t, h.send(ipc.CommandCapture).OK)
	h.waitIdle(t)
}

func TestCaptureFailureIsNarratedAndReleasesGate(t *testing.T) {
	h := newHarness("Something.")
	h.capture.err = errors.New("no display")

	require.True(t, h.send(ipc.CommandCapture).OK)
	h.waitIdle(t)

	assert.True(t, h.narrator.said("Failed to capture the screen."))

	h.capture.err = nil
	require.True(t, h.send(ipc.CommandCapture).OK)
	h.waitIdle(t)
	assert.True(t, h.narrator.said("Summary."))
}

func TestMissingCredentialAbortsTask(t *testing.T) {
	h := newHarness("Something.")
	h.creds.present = false

	require.True(t, h.send(ipc.CommandCapture).OK)
	h.waitIdle(t)

	assert.True(t, h.narrator.said("API key is not configured"))
	assert.False(t, h.narrator.said("Summary."))
}

func TestPanicInTaskStillReleasesGate(t *testing.T) {
	h := newHarness("Something.")
	h.inference.panics = true

	require.True(t, h.send(ipc.CommandCapture).OK)
	h.waitIdle(t)

	assert.True(t, h.narrator.said("Something went wrong."))

	h.inference.panics = false
	require.True(t, h.send(ipc.CommandCapture).OK)
	h.waitIdle(t)
}

func TestNavigateWithoutDetails(t *testing.T) {
	h := newHarness("Something.")

	require.True(t, h.send(ipc.CommandNext).OK)
	h.waitIdle(t)

	assert.True(t, h.narrator.said("No details available yet."))
}

func TestSetKeyPersistsAndNarrates(t *testing.T) {
	h := newHarness("Something.")

	resp := h.orch.Handle(context.Background(), ipc.Request{Command: ipc.CommandSetKey, Text: "  new-key  "})
	require.True(t, resp.OK)
	assert.Equal(t, []string{"new-key"}, h.creds.saved)
	assert.True(t, h.narrator.said("API key updated successfully."))
}

func TestSetKeyEmptyRejected(t *testing.T) {
	h := newHarness("Something.")

	resp := h.orch.Handle(context.Background(), ipc.Request{Command: ipc.CommandSetKey, Text: "   "})
	assert.False(t, resp.OK)
	assert.Empty(t, h.creds.saved)
}

func TestStatusReportsStateAndActiveTask(t *testing.T) {
	h := newHarness("Something.")
	h.inference.block = make(chan struct{})

	require.True(t, h.send(ipc.CommandCapture).OK)
	require.Eventually(t, func() bool {
		resp := h.send(ipc.CommandStatus)
		return resp.State == string(fsm.StateRunning) && resp.ActiveTask == string(task.NameCapture)
	}, time.Second, 5*time.Millisecond)

	close(h.inference.block)
	h.waitIdle(t)

	resp := h.send(ipc.CommandStatus)
	assert.Equal(t, string(fsm.StateIdle), resp.State)
	assert.Empty(t, resp.ActiveTask)
}

func TestShutdownSpeaksFarewellAndCloses(t *testing.T) {
	h := newHarness("Something.")

	resp := h.send(ipc.CommandShutdown)
	require.True(t, resp.OK)

	select {
	case <-h.orch.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown never completed")
	}
	assert.True(t, h.narrator.said("Goodbye."))
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness("Something.")

	resp := h.send("levitate")
	assert.False(t, resp.OK)
	assert.Equal(t, fmt.Sprintf("unknown command: %s", "levitate"), resp.Error)
}

func TestProgressTickerStopsCleanly(t *testing.T) {
	cfg := config.Default()
	cfg.Indicator.ProgressIntervalMS = 10
	o := New(cfg, Deps{}, nil)

	stop := o.startProgress()
	time.Sleep(50 * time.Millisecond)
	stop()
	stop() // idempotent
}
