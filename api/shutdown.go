// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components torn down by the supervisor.
type GracefulShutdown interface {
	// Shutdown stops background goroutines and releases sockets.
	Shutdown() error
}
