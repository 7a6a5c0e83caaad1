package gateway

import "fmt"

// State names the gateway lifecycle states.
type State string

// Gateway lifecycle states.
const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateError    State = "error"
)

// Status is a snapshot of the supervised gateway process.
type Status struct {
	State State  `json:"state"`
	URL   string `json:"url,omitempty"`
	Port  int    `json:"port,omitempty"`
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// Stopped returns the idle status.
func Stopped() Status {
	return Status{State: StateStopped}
}

// Starting returns the status for a spawned but not yet ready gateway.
func Starting() Status {
	return Status{State: StateStarting}
}

// Running returns the status for a ready gateway.
func Running(port int, token string) Status {
	return Status{
		State: StateRunning,
		URL:   fmt.Sprintf("ws://127.0.0.1:%d", port),
		Port:  port,
		Token: token,
	}
}

// Errored returns a failure status.
func Errored(message string) Status {
	return Status{State: StateError, Error: message}
}
