// File: transport/endpoint.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/momentics/hioload-maze/api"
)

// NormalizeEndpoint turns a connect address into a WebSocket URL.
// "tcp://host:port" maps to "ws://host:port/"; ws:// and wss:// URLs pass
// through with an empty path defaulted to "/". Wildcard hosts are only
// valid for binding and are rejected here.
func NormalizeEndpoint(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty endpoint", api.ErrInvalidAddress)
	}
	if !strings.Contains(s, "://") {
		s = "tcp://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", api.ErrInvalidAddress, raw, err)
	}
	switch u.Scheme {
	case "tcp":
		if u.Path != "" && u.Path != "/" {
			return "", fmt.Errorf("%w: %q: tcp endpoints carry no path", api.ErrInvalidAddress, raw)
		}
		u.Scheme = "ws"
		u.Path = "/"
	case "ws", "wss":
		if u.Path == "" {
			u.Path = "/"
		}
	default:
		return "", fmt.Errorf("%w: %q: unsupported scheme %q", api.ErrInvalidAddress, raw, u.Scheme)
	}

	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", api.ErrInvalidAddress, raw, err)
	}
	if host == "" || host == "*" {
		return "", fmt.Errorf("%w: %q: host required", api.ErrInvalidAddress, raw)
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("%w: %q: bad port %q", api.ErrInvalidAddress, raw, port)
	}
	return u.String(), nil
}
