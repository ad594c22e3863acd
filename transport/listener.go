// File: transport/listener.go
// Package transport owns the listening sockets of the process and the
// server side of the WebSocket upgrade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Listener binds exclusively: a second process binding the same port
// fails at Listen instead of sharing the traffic.

package transport

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/protocol"
)

// ErrListenerClosed is returned by Accept after Close.
var ErrListenerClosed = errors.New("listener closed")

// ListenerConfig tunes a Listener.
type ListenerConfig struct {
	HandshakeTimeout time.Duration
	MaxMessageSize   int64
}

// ListenerOption mutates a ListenerConfig.
type ListenerOption func(*ListenerConfig)

// WithHandshakeTimeout bounds the opening handshake of each connection.
func WithHandshakeTimeout(d time.Duration) ListenerOption {
	return func(c *ListenerConfig) { c.HandshakeTimeout = d }
}

// WithMaxMessageSize caps a reassembled message.
func WithMaxMessageSize(n int64) ListenerOption {
	return func(c *ListenerConfig) { c.MaxMessageSize = n }
}

// Listener accepts TCP connections and upgrades them to WebSocket sessions.
type Listener struct {
	ln  net.Listener
	cfg ListenerConfig
}

// Listen binds addr. Both "tcp://*:8557" and ":8557" forms are accepted.
func Listen(addr string, opts ...ListenerOption) (*Listener, error) {
	cfg := ListenerConfig{
		HandshakeTimeout: 5 * time.Second,
		MaxMessageSize:   protocol.MaxFramePayload,
	}
	for _, o := range opts {
		o(&cfg)
	}
	bind, err := ListenAddress(addr)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeTransport, "bind "+addr, err)
	}
	return &Listener{ln: ln, cfg: cfg}, nil
}

// Addr returns the bound address, useful when port 0 was requested.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Accept waits for the next raw connection.
func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return c, nil
}

// Upgrade runs the opening handshake on c. On failure an HTTP error is
// written and c is closed.
func (l *Listener) Upgrade(c net.Conn) (*protocol.Conn, error) {
	if l.cfg.HandshakeTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(l.cfg.HandshakeTimeout))
	}
	br := bufio.NewReader(c)
	hdr, req, err := protocol.DoHandshakeCore(br)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, protocol.ErrBadWebSocketVersion) {
			status = http.StatusUpgradeRequired
		}
		if req != nil {
			_ = protocol.WriteHandshakeError(c, status, err)
		}
		_ = c.Close()
		return nil, fmt.Errorf("upgrade %s: %w", c.RemoteAddr(), err)
	}
	if err := protocol.WriteHandshakeResponse(c, hdr); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("upgrade %s: %w", c.RemoteAddr(), err)
	}
	_ = c.SetDeadline(time.Time{})
	return protocol.NewConn(c, br, l.cfg.MaxMessageSize, req.URL.Path), nil
}

// Close stops accepting; established sessions are unaffected.
func (l *Listener) Close() error {
	return l.ln.Close()
}

// ListenAddress turns a bind endpoint into a host:port for net.Listen.
// "tcp://*:8557" binds every interface.
func ListenAddress(addr string) (string, error) {
	a := strings.TrimSpace(addr)
	a = strings.TrimPrefix(a, "tcp://")
	a = strings.TrimPrefix(a, "ws://")
	if strings.ContainsAny(a, "/") {
		return "", fmt.Errorf("%w: %q", api.ErrInvalidAddress, addr)
	}
	host, port, err := net.SplitHostPort(a)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", api.ErrInvalidAddress, addr, err)
	}
	if host == "*" {
		host = ""
	}
	return net.JoinHostPort(host, port), nil
}
