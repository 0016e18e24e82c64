// Package task provides single-flight admission control and cooperative
// cancellation signals shared between trigger handlers and task goroutines.
package task

import "sync/atomic"

// Signal is a sticky flag shared by reference between the orchestrator and
// every blocking operation a task session performs. Once set it stays set
// until an explicit Clear; Clear is only issued when admitting a new task.
type Signal struct {
	set atomic.Bool
}

// Set raises the signal. Safe to call concurrently and repeatedly.
func (s *Signal) Set() {
	s.set.Store(true)
}

// Clear lowers the signal.
func (s *Signal) Clear() {
	s.set.Store(false)
}

// IsSet reports whether the signal is currently raised.
func (s *Signal) IsSet() bool {
	return s.set.Load()
}
