// File: server/options.go
// Package server defines functional options for the command endpoint.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"

	"github.com/momentics/hioload-maze/api"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithControl routes request and reply counters to ctrl.
func WithControl(ctrl api.Control) ServerOption {
	return func(s *Server) {
		s.control = ctrl
	}
}

// WithLogger overrides Config.Logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}
