// File: cmd/mazectl/maze.go
// Package main
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/client"
)

// loadMaze reads a maze description. The document is sent as-is; the
// render process validates it.
func loadMaze(path string) (api.MazeConfig, error) {
	p, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%s: empty maze", p)
	}
	return api.MazeConfig(doc), nil
}

// targetEndpoint accepts "host", "host:port" or a full endpoint.
func targetEndpoint(t string) string {
	if strings.Contains(t, "://") {
		return t
	}
	if host, port, err := net.SplitHostPort(t); err == nil {
		if n, err := strconv.Atoi(port); err == nil {
			return client.CommandEndpoint(host, n)
		}
	}
	return client.CommandEndpoint(t, 0)
}
