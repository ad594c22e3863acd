// File: status/status.go
// Package status publishes state transitions and command outcomes of a
// render process to an MQTT broker.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package status

import (
	"time"

	"github.com/momentics/hioload-maze/api"
)

// Event is one published status record.
type Event struct {
	Kind      string    `json:"kind"` // transition, command
	Source    string    `json:"source"`
	Time      time.Time `json:"time"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	Command   string    `json:"command,omitempty"`
	Reply     string    `json:"reply,omitempty"`
	ElapsedMs float64   `json:"elapsed_ms,omitempty"`
}

// Emitter receives coordinator transitions and worker outcomes. The
// method signatures match state.TransitionFunc and worker.Observer. They
// must not block: transitions are reported under the coordinator lock.
type Emitter interface {
	Transition(from, to api.SyncedState)
	Command(cmd api.Command, reply api.Reply, elapsed time.Duration)
	Close() error
}

// Noop discards everything.
type Noop struct{}

// Transition implements Emitter.
func (Noop) Transition(api.SyncedState, api.SyncedState) {}

// Command implements Emitter.
func (Noop) Command(api.Command, api.Reply, time.Duration) {}

// Close implements Emitter.
func (Noop) Close() error {
	return nil
}
