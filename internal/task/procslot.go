package task

import (
	"os/exec"
	"sync"
)

// ProcSlot tracks at most one live external process so an unrelated goroutine
// can terminate it when cancellation or suppression is observed. Only the
// owning code path stores and clears; other goroutines only terminate.
type ProcSlot struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// Store records cmd as the active process for this slot.
func (p *ProcSlot) Store(cmd *exec.Cmd) {
	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()
}

// Clear removes the tracked process if it is still cmd. Passing nil clears
// unconditionally.
func (p *ProcSlot) Clear(cmd *exec.Cmd) {
	p.mu.Lock()
	if cmd == nil || p.cmd == cmd {
		p.cmd = nil
	}
	p.mu.Unlock()
}

// Terminate kills the tracked process, if any. The owner's Wait observes the
// kill as the process exit; the slot is left for the owner to clear.
func (p *ProcSlot) Terminate() {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
