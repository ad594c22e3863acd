// File: config/config.go
// Package config loads the render process configuration from YAML or TOML,
// plus the display geometry file and the operator fleet file.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "10ms", "2.5s" in files.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// Config is the complete render process configuration.
type Config struct {
	Server          ServerConfig `yaml:"server" toml:"server"`
	Feed            FeedConfig   `yaml:"feed" toml:"feed"`
	Worker          WorkerConfig `yaml:"worker" toml:"worker"`
	Render          RenderConfig `yaml:"render" toml:"render"`
	Log             LogConfig    `yaml:"log" toml:"log"`
	Status          StatusConfig `yaml:"status" toml:"status"`
	ShutdownTimeout Duration     `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// ServerConfig configures the command endpoint.
type ServerConfig struct {
	Listen           string            `yaml:"listen" toml:"listen"`
	MaxMessageSize   datasize.ByteSize `yaml:"max_message_size" toml:"max_message_size"`
	ReadTimeout      Duration          `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout     Duration          `yaml:"write_timeout" toml:"write_timeout"`
	HandshakeTimeout Duration          `yaml:"handshake_timeout" toml:"handshake_timeout"`
}

// FeedConfig configures the position subscription.
type FeedConfig struct {
	// Address is connected at start-up; empty waits for UpdateDataServer.
	Address     string   `yaml:"address" toml:"address"`
	Layout      string   `yaml:"layout" toml:"layout"` // position, ticks
	Buffer      int      `yaml:"buffer" toml:"buffer"`
	DialTimeout Duration `yaml:"dial_timeout" toml:"dial_timeout"`
}

// WorkerConfig configures the control worker.
type WorkerConfig struct {
	Name         string   `yaml:"name" toml:"name"`
	Version      string   `yaml:"version" toml:"version"`
	PollInterval Duration `yaml:"poll_interval" toml:"poll_interval"`
}

// RenderConfig configures the render loop and headless window.
type RenderConfig struct {
	FPS           int    `yaml:"fps" toml:"fps"`
	Width         int    `yaml:"width" toml:"width"`
	Height        int    `yaml:"height" toml:"height"`
	DisplayConfig string `yaml:"display_config" toml:"display_config"`
	TextureDir    string `yaml:"texture_dir" toml:"texture_dir"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // text, json
}

// StatusConfig configures the optional MQTT status emitter.
type StatusConfig struct {
	Broker   string `yaml:"broker" toml:"broker"` // empty disables
	Topic    string `yaml:"topic" toml:"topic"`
	ClientID string `yaml:"client_id" toml:"client_id"`
	QoS      byte   `yaml:"qos" toml:"qos"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:           "tcp://*:8557",
			MaxMessageSize:   datasize.MB,
			WriteTimeout:     Duration(5 * time.Second),
			HandshakeTimeout: Duration(5 * time.Second),
		},
		Feed: FeedConfig{
			Layout:      "position",
			Buffer:      256,
			DialTimeout: Duration(time.Second),
		},
		Worker: WorkerConfig{
			Name:         "hioload-maze.Communicator",
			Version:      "1.1",
			PollInterval: Duration(10 * time.Millisecond),
		},
		Render: RenderConfig{
			FPS:    60,
			Width:  1920,
			Height: 1080,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		ShutdownTimeout: Duration(5 * time.Second),
	}
}

// Load reads path over the defaults; the format follows the extension
// (.yaml, .yml or .toml). The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	p, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := Decode(filepath.Ext(p), raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", p, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode unmarshals raw into v by file extension.
func Decode(ext string, raw []byte, v any) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, v)
	case ".toml":
		return toml.Unmarshal(raw, v)
	}
	return fmt.Errorf("unsupported config format %q", ext)
}

// ExpandPaths resolves "~" in every path-valued field.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.Render.DisplayConfig, &c.Render.TextureDir} {
		if *p == "" {
			continue
		}
		v, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		*p = v
	}
	return nil
}
