// File: config/validator.go
// Package config
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"fmt"
	"log/slog"

	"github.com/c2h5oh/datasize"
	"github.com/momentics/hioload-maze/protocol"
	"github.com/momentics/hioload-maze/transport"
)

// MaxMessageSizeLimit bounds server.max_message_size.
const MaxMessageSizeLimit = 64 * datasize.MB

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if _, err := transport.ListenAddress(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}
	if c.Server.MaxMessageSize == 0 {
		return fmt.Errorf("server.max_message_size must be > 0")
	}
	if c.Server.MaxMessageSize > MaxMessageSizeLimit {
		return fmt.Errorf("server.max_message_size %s is too large", c.Server.MaxMessageSize.HR())
	}

	if c.Feed.Address != "" {
		if _, err := transport.NormalizeEndpoint(c.Feed.Address); err != nil {
			return fmt.Errorf("feed.address: %w", err)
		}
	}
	if _, err := protocol.ParseLayout(c.Feed.Layout); err != nil {
		return fmt.Errorf("feed.layout: %w", err)
	}
	if c.Feed.Buffer <= 0 {
		return fmt.Errorf("feed.buffer must be > 0")
	}

	if c.Worker.Version == "" {
		return fmt.Errorf("worker.version is required")
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("worker.poll_interval must be > 0")
	}

	if c.Render.FPS <= 0 {
		return fmt.Errorf("render.fps must be > 0")
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render.width and render.height must be > 0")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}

	if c.Status.Broker != "" {
		if c.Status.QoS > 2 {
			return fmt.Errorf("status.qos must be 0, 1 or 2")
		}
		if c.Status.Topic == "" {
			c.Status.Topic = "maze/" + c.Worker.Name + "/status"
		}
		if c.Status.ClientID == "" {
			c.Status.ClientID = c.Worker.Name
		}
	}
	return nil
}

// ParseLevel maps a level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, err
	}
	return l, nil
}
