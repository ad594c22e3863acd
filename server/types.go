// File: server/types.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log/slog"
	"time"

	"github.com/momentics/hioload-maze/protocol"
)

// Config holds all command endpoint parameters.
type Config struct {
	ListenAddr       string        // bind endpoint, e.g. "tcp://*:8557"
	MaxMessageSize   int64         // largest accepted request
	ReadTimeout      time.Duration // optional idle limit between frames
	WriteTimeout     time.Duration // optional reply write deadline
	HandshakeTimeout time.Duration // opening handshake limit
	Logger           *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       "tcp://*:8557",
		MaxMessageSize:   protocol.MaxFramePayload,
		ReadTimeout:      0,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
	}
}
