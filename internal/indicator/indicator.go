// Package indicator plays audible cues and raises desktop notifications so
// the assistant can confirm admission, progress, and failure without relying
// on a visual surface.
package indicator

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/rbright/echosight/internal/audio"
	"github.com/rbright/echosight/internal/config"
)

// Controller is the cue surface the orchestrator drives. Implementations
// must be safe for concurrent use and must never block task admission on
// playback.
type Controller interface {
	Admit()
	Deny()
	Complete()
	Cancel()
	ErrorCue()
	Listen()
	Submit()
	StopCue()
	Tick()
	NotifyBusy(active string)
	NotifyError(message string)
}

type controller struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger

	// playMu serializes cue playback so overlapping task events do not
	// mix tones into noise.
	playMu sync.Mutex

	playPCM func(samples []int16, mediaName string) error
	notify  func(title, message, appIcon string) error
}

// New builds a Controller from the indicator configuration. A disabled
// indicator still returns a working controller whose methods are no-ops.
func New(cfg config.IndicatorConfig, logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &controller{
		cfg:     cfg,
		logger:  logger,
		playPCM: audio.PlayPCM,
		notify:  beeep.Notify,
	}
}

func (c *controller) Admit()    { c.play(cueAdmit, "admit") }
func (c *controller) Deny()     { c.play(cueDeny, "deny") }
func (c *controller) Complete() { c.play(cueComplete, "complete") }
func (c *controller) Cancel()   { c.play(cueCancel, "cancel") }
func (c *controller) ErrorCue() { c.play(cueError, "error") }
func (c *controller) Listen()   { c.play(cueListen, "listen") }
func (c *controller) Submit()   { c.play(cueSubmit, "submit") }
func (c *controller) StopCue()  { c.play(cueStop, "stop") }
func (c *controller) Tick()     { c.play(cueTick, "tick") }

var _ Controller = (*controller)(nil)

func (c *controller) NotifyBusy(active string) {
	if !c.cfg.Enable {
		return
	}
	message := "A task is already running."
	if active != "" {
		message = fmt.Sprintf("Busy with %s. Try again once it finishes.", active)
	}
	if err := c.notify(c.cfg.DesktopAppName, message, ""); err != nil {
		c.logger.Warn("desktop notification failed", "kind", "busy", "error", err)
	}
}

func (c *controller) NotifyError(message string) {
	if !c.cfg.Enable {
		return
	}
	if message == "" {
		message = "The last task failed."
	}
	if err := c.notify(c.cfg.DesktopAppName, message, ""); err != nil {
		c.logger.Warn("desktop notification failed", "kind", "error", "error", err)
	}
}

func (c *controller) play(kind cueKind, name string) {
	if !c.cfg.Enable || !c.cfg.SoundEnable {
		return
	}
	samples := cueSamples(kind)
	if len(samples) == 0 {
		return
	}
	go func() {
		c.playMu.Lock()
		defer c.playMu.Unlock()
		if err := c.playPCM(samples, "echosight cue"); err != nil {
			c.logger.Warn("cue playback failed", "cue", name, "error", err)
		}
	}()
}

// Noop returns a Controller that does nothing. Useful for tests and for the
// client-side command paths that never play cues.
func Noop() Controller { return noopController{} }

type noopController struct{}

func (noopController) Admit()             {}
func (noopController) Deny()              {}
func (noopController) Complete()          {}
func (noopController) Cancel()            {}
func (noopController) ErrorCue()          {}
func (noopController) Listen()            {}
func (noopController) Submit()            {}
func (noopController) StopCue()           {}
func (noopController) Tick()              {}
func (noopController) NotifyBusy(string)  {}
func (noopController) NotifyError(string) {}
