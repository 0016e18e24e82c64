package task

import (
	"sync"
	"time"
)

// Name identifies the kind of task holding the gate.
type Name string

const (
	NameCapture  Name = "capture"
	NameFollowUp Name = "follow-up"
	NameNavigate Name = "navigate"
)

// Gate is single-flight admission control: at most one orchestration task may
// hold it at a time. Concurrent attempts are rejected within a bounded wait,
// never queued.
type Gate struct {
	slot chan struct{}

	mu     sync.Mutex
	held   bool
	active Name
}

// NewGate constructs an unheld gate.
func NewGate() *Gate {
	return &Gate{slot: make(chan struct{}, 1)}
}

// TryAdmit attempts to acquire the gate within timeout. On success the active
// task name is recorded for user feedback and true is returned. A false return
// means another task holds the gate; denial is a normal outcome, not an error.
func (g *Gate) TryAdmit(name Name, timeout time.Duration) bool {
	select {
	case g.slot <- struct{}{}:
	default:
		if timeout <= 0 {
			return false
		}
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case g.slot <- struct{}{}:
		case <-timer.C:
			return false
		}
	}

	g.mu.Lock()
	g.held = true
	g.active = name
	g.mu.Unlock()
	return true
}

// Release frees the gate. It must run on every exit path of an admitted task
// body; releasing an unheld gate is a no-op.
func (g *Gate) Release() {
	g.mu.Lock()
	if !g.held {
		g.mu.Unlock()
		return
	}
	g.held = false
	g.active = ""
	g.mu.Unlock()

	<-g.slot
}

// ActiveTask returns the name of the task currently holding the gate, or ""
// when the gate is free.
func (g *Gate) ActiveTask() Name {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}
