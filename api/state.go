// File: api/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "strconv"

// SyncedState is the state shared between the control worker and the render loop.
//
// Only the render loop moves ReconfigurationRequested to Ready or
// ReconfigurationFailed. Only the control worker moves into
// ReconfigurationRequested. Exiting is absorbing.
type SyncedState int32

const (
	StateReady                    SyncedState = 1
	StateReconfigurationRequested SyncedState = 0
	StateReconfigurationFailed    SyncedState = -1
	StateExiting                  SyncedState = -2
)

// String implements fmt.Stringer.
func (s SyncedState) String() string {
	switch s {
	case StateReady:
		return "Ready"
	case StateReconfigurationRequested:
		return "ReconfigurationRequested"
	case StateReconfigurationFailed:
		return "ReconfigurationFailed"
	case StateExiting:
		return "Exiting"
	}
	return "SyncedState(" + strconv.Itoa(int(s)) + ")"
}
