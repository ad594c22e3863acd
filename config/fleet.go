// File: config/fleet.go
// Package config
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"

	"github.com/momentics/hioload-maze/api"
)

// Fleet lists the render processes an operator drives.
//
//	[defaults]
//	port = 8557
//	request_timeout = "2500ms"
//	request_retries = 3
//
//	[[target]]
//	name = "rig-a"
//	host = "10.129.151.177"
type Fleet struct {
	Defaults FleetDefaults `toml:"defaults"`
	Targets  []Target      `toml:"target"`
}

// FleetDefaults apply to every target that leaves them unset.
type FleetDefaults struct {
	Port           int      `toml:"port"`
	RequestTimeout Duration `toml:"request_timeout"`
	RequestRetries int      `toml:"request_retries"`
	DataServer     string   `toml:"data_server"`
}

// Target is one render process.
type Target struct {
	Name string `toml:"name"`
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadFleet reads and validates a fleet file.
func LoadFleet(path string) (Fleet, error) {
	var f Fleet
	p, err := homedir.Expand(path)
	if err != nil {
		return f, fmt.Errorf("fleet: %w", err)
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return f, fmt.Errorf("fleet: %w", err)
	}
	return ParseFleet(raw)
}

// ParseFleet decodes a fleet document.
func ParseFleet(raw []byte) (Fleet, error) {
	var f Fleet
	if err := toml.Unmarshal(raw, &f); err != nil {
		return f, fmt.Errorf("fleet: %w", err)
	}
	if f.Defaults.Port == 0 {
		f.Defaults.Port = api.DefaultCommandPort
	}
	if len(f.Targets) == 0 {
		return f, fmt.Errorf("fleet: no targets")
	}
	for i := range f.Targets {
		t := &f.Targets[i]
		if t.Host == "" {
			return f, fmt.Errorf("fleet: target %d: host is required", i)
		}
		if t.Port == 0 {
			t.Port = f.Defaults.Port
		}
		if t.Port < 1 || t.Port > 65535 {
			return f, fmt.Errorf("fleet: target %q: bad port %d", t.Host, t.Port)
		}
		if t.Name == "" {
			t.Name = t.Host
		}
	}
	return f, nil
}

// Endpoint returns the target's command endpoint.
func (t Target) Endpoint() string {
	return "tcp://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Endpoints returns the command endpoint of every target in order.
func (f Fleet) Endpoints() []string {
	out := make([]string, 0, len(f.Targets))
	for _, t := range f.Targets {
		out = append(out, t.Endpoint())
	}
	return out
}
