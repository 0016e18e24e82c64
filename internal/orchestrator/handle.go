package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/echosight/internal/fsm"
	"github.com/rbright/echosight/internal/ipc"
	"github.com/rbright/echosight/internal/speech"
	"github.com/rbright/echosight/internal/task"
)

// Handle dispatches one IPC trigger. It never blocks on task work: long
// tasks are admitted or denied here and run on their own goroutine.
func (o *Orchestrator) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandCapture:
		return o.triggerCapture()
	case ipc.CommandFollowUp:
		return o.triggerFollowUp()
	case ipc.CommandStopSpeech:
		return o.triggerStopSpeech()
	case ipc.CommandCancel:
		return o.triggerCancel()
	case ipc.CommandNext:
		return o.triggerNavigate(1)
	case ipc.CommandPrevious:
		return o.triggerNavigate(-1)
	case ipc.CommandSetKey:
		return o.triggerSetKey(req.Text)
	case ipc.CommandStatus:
		return o.statusResponse(true, "status")
	case ipc.CommandShutdown:
		go o.shutdown()
		return o.statusResponse(true, "shutting down")
	default:
		resp := o.statusResponse(false, "")
		resp.Error = fmt.Sprintf("unknown command: %s", req.Command)
		return resp
	}
}

func (o *Orchestrator) statusResponse(ok bool, message string) ipc.Response {
	return ipc.Response{
		OK:         ok,
		State:      string(o.State()),
		ActiveTask: string(o.gate.ActiveTask()),
		Message:    message,
	}
}

func (o *Orchestrator) triggerCapture() ipc.Response {
	o.stopNarration()
	if resp, admitted := o.admit(task.NameCapture); !admitted {
		return resp
	}
	session := uuid.NewString()
	o.logger.Info("capture admitted", "session", session)
	go o.runTask(task.NameCapture, session, o.captureTask)
	return o.statusResponse(true, "capture admitted")
}

func (o *Orchestrator) triggerFollowUp() ipc.Response {
	// A second follow-up trigger while listening means "send now".
	if o.listening.IsSet() {
		o.submit.Set()
		o.transcriptionProcs.Terminate()
		o.cues.Submit()
		o.logger.Info("follow-up submit requested")
		return o.statusResponse(true, "submitting follow-up question")
	}

	o.stopNarration()
	if resp, admitted := o.admit(task.NameFollowUp); !admitted {
		return resp
	}
	o.submit.Clear()
	session := uuid.NewString()
	o.logger.Info("follow-up admitted", "session", session)
	go o.runTask(task.NameFollowUp, session, o.followUpTask)
	return o.statusResponse(true, "follow-up admitted")
}

func (o *Orchestrator) triggerStopSpeech() ipc.Response {
	o.logger.Info("stop-speech requested")
	o.stopNarration()
	o.cues.StopCue()
	return o.statusResponse(true, "speech stopped")
}

// triggerCancel makes cancellation reach every blocking point a task can be
// suspended in: the sticky signal covers poll points, and terminating the
// tracked transcription, inference, and narration handles covers the
// in-flight subprocess waits. The gate is released by the running task's own
// cleanup path, never here.
func (o *Orchestrator) triggerCancel() ipc.Response {
	active := o.gate.ActiveTask()
	o.cancel.Set()
	o.submit.Set()
	o.listening.Clear()
	o.transcriptionProcs.Terminate()
	if o.inference != nil {
		o.inference.Abort()
	}
	o.stopNarration()
	o.cues.Cancel()

	if active != "" {
		o.logger.Info("cancel requested", "active_task", string(active))
		return o.statusResponse(true, fmt.Sprintf("%s task canceled", active))
	}
	o.logger.Info("cancel requested with no active task")
	return o.statusResponse(true, "no task was running; speech stopped")
}

func (o *Orchestrator) triggerNavigate(step int) ipc.Response {
	o.stopNarration()
	if resp, admitted := o.admit(task.NameNavigate); !admitted {
		return resp
	}
	session := uuid.NewString()
	go o.runTask(task.NameNavigate, session, func(ctx context.Context, _ *slog.Logger) error {
		return o.navigateTask(ctx, step)
	})
	return o.statusResponse(true, "navigation admitted")
}

func (o *Orchestrator) triggerSetKey(key string) ipc.Response {
	key = strings.TrimSpace(key)
	if key == "" {
		resp := o.statusResponse(false, "")
		resp.Error = "no API key provided"
		return resp
	}
	if o.credentials == nil {
		resp := o.statusResponse(false, "")
		resp.Error = "credential store unavailable"
		return resp
	}

	if _, ok := o.credentials.Set(key); !ok {
		o.narrate(context.Background(), "Failed to save the API key.", speech.Options{})
		o.cues.ErrorCue()
		resp := o.statusResponse(false, "")
		resp.Error = "failed to persist API key"
		return resp
	}

	o.logger.Info("API key updated")
	o.cues.Complete()
	o.narrate(context.Background(), "API key updated successfully.", speech.Options{})
	return o.statusResponse(true, "API key updated")
}

// admit gains the single-flight gate, resets the per-session signals, and
// moves the machine to admitted. A denied trigger is terminal for itself:
// cue, notification, and an error response, with no retry or queueing.
func (o *Orchestrator) admit(name task.Name) (ipc.Response, bool) {
	if !o.gate.TryAdmit(name, o.admissionTimeout()) {
		active := o.gate.ActiveTask()
		o.cues.Deny()
		o.cues.NotifyBusy(string(active))
		o.logger.Info("admission denied", "task", string(name), "active_task", string(active))
		resp := o.statusResponse(false, "")
		resp.Error = "another task is active"
		return resp, false
	}

	// Admission is the only place cancellation and suppression clear.
	o.cancel.Clear()
	o.resumeNarration()
	_ = o.transition(fsm.EventAdmit)
	o.cues.Admit()
	return ipc.Response{}, true
}

// Shutdown stops the daemon the same way a shutdown trigger would.
func (o *Orchestrator) Shutdown() {
	o.shutdown()
}

// shutdown forcibly exits from any state: raise every signal, terminate
// every tracked external process, speak a farewell with suppression cleared
// just for it, then release the daemon loop after a short grace delay.
func (o *Orchestrator) shutdown() {
	o.shutdownOnce.Do(func() {
		o.logger.Info("shutdown requested")
		o.cancel.Set()
		o.submit.Set()
		o.listening.Clear()
		o.transcriptionProcs.Terminate()
		if o.inference != nil {
			o.inference.Abort()
		}
		o.stopNarration()

		o.resumeNarration()
		o.narrate(context.Background(), "Exiting Echo Sight. Goodbye.", speech.Options{})

		time.Sleep(shutdownGrace)
		close(o.done)
	})
}
