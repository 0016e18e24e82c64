// Package ipc carries logical trigger commands between hotkey-invoked client
// processes and the resident daemon over a unix socket.
package ipc

// Trigger commands accepted by the daemon. Hotkey daemons bind keys to the
// echosight CLI, which forwards one of these per invocation.
const (
	CommandCapture    = "capture"
	CommandFollowUp   = "follow-up"
	CommandStopSpeech = "stop-speech"
	CommandCancel     = "cancel"
	CommandNext       = "next-detail"
	CommandPrevious   = "previous-detail"
	CommandSetKey     = "set-key"
	CommandStatus     = "status"
	CommandShutdown   = "shutdown"
)

type Request struct {
	Command string `json:"command"`
	// Text carries the credential payload for set-key; empty otherwise.
	Text string `json:"text,omitempty"`
}

type Response struct {
	OK         bool   `json:"ok"`
	State      string `json:"state,omitempty"`
	ActiveTask string `json:"active_task,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}
