// File: client/retry.go
// Package client delivers control commands to render processes that may be
// down or restarting.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RetryClient follows the Lazy Pirate pattern: one fresh connection and one
// send per attempt, a fixed wait for the reply, and a bounded number of
// attempts. A connection that timed out is dropped without linger, so no
// stale request is delivered after the retry.

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/protocol"
	"github.com/momentics/hioload-maze/transport"
)

// Dialer opens WebSocket connections; *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Config tunes a RetryClient.
type Config struct {
	// RequestTimeout is how long one attempt waits for its reply.
	RequestTimeout time.Duration
	// RequestRetries is the number of attempts, and so of connections, per command.
	RequestRetries int
	Logger         *slog.Logger
	Dialer         Dialer
}

// DefaultConfig returns the operator tool defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 2500 * time.Millisecond,
		RequestRetries: 3,
	}
}

// Matcher decides whether a reply is the expected success.
type Matcher func(api.Reply) bool

// Expect matches exactly r.
func Expect(r api.Reply) Matcher {
	return func(got api.Reply) bool { return got == r }
}

// ExpectVersion matches any "Version:<v>;" reply.
func ExpectVersion() Matcher {
	return func(got api.Reply) bool {
		s := string(got)
		return strings.HasPrefix(s, "Version:") && strings.HasSuffix(s, ";")
	}
}

// ExpectedFor returns the success matcher of cmd.
func ExpectedFor(cmd api.Command) Matcher {
	switch cmd {
	case api.CmdQueryVersion:
		return ExpectVersion()
	case api.CmdLoadModel:
		return Expect(api.ReplyModelLoaded)
	case api.CmdUpdateDataServer:
		return Expect(api.ReplyDataServerUpdated)
	case api.CmdExit:
		return Expect(api.ReplyExiting)
	}
	return func(api.Reply) bool { return false }
}

// Result describes the delivery of one command to one target.
type Result struct {
	Target   string
	Reply    api.Reply
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// OK reports a matching reply.
func (r Result) OK() bool {
	return r.Err == nil
}

// RetryClient sends commands with bounded retries.
type RetryClient struct {
	cfg    Config
	log    *slog.Logger
	dialer Dialer
}

// New returns a RetryClient; zero fields of cfg take DefaultConfig values.
func New(cfg Config) *RetryClient {
	def := DefaultConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.RequestRetries <= 0 {
		cfg.RequestRetries = def.RequestRetries
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}
	return &RetryClient{cfg: cfg, log: log.With("component", "retry-client"), dialer: dialer}
}

// CommandEndpoint formats the command endpoint of a host.
func CommandEndpoint(host string, port int) string {
	if port <= 0 {
		port = api.DefaultCommandPort
	}
	return "tcp://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Send delivers msg to endpoint. A reply that does not match costs an
// attempt just like a timeout. When every attempt fails the error wraps
// api.ErrTargetOffline; the caller decides whether to go on with other
// targets.
func (c *RetryClient) Send(ctx context.Context, endpoint string, msg api.ControlMessage, match Matcher) (Result, error) {
	res := Result{Target: endpoint}
	start := time.Now()

	url, err := transport.NormalizeEndpoint(endpoint)
	if err != nil {
		res.Err = err
		return res, err
	}
	payload, err := protocol.EncodeControlMessage(msg)
	if err != nil {
		res.Err = err
		return res, err
	}
	if match == nil {
		match = ExpectedFor(msg.Command)
	}
	log := c.log.With("target", url, "command", string(msg.Command))

	var last error
	for res.Attempts < c.cfg.RequestRetries {
		res.Attempts++
		deadline := time.Now().Add(c.cfg.RequestTimeout)
		reply, err := c.attempt(ctx, url, payload, deadline)
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			res.Elapsed = time.Since(start)
			return res, res.Err
		}
		if err == nil {
			res.Reply = reply
			if match(reply) {
				log.Debug("reply received", "reply", string(reply), "attempt", res.Attempts)
				res.Elapsed = time.Since(start)
				return res, nil
			}
			last = fmt.Errorf("%w: %q", api.ErrUnexpectedReply, reply)
			log.Warn("unexpected reply", "reply", string(reply), "attempt", res.Attempts)
			continue
		}
		last = err
		log.Warn("no response from server, retrying", "attempt", res.Attempts, "error", err)

		// A refused dial returns at once; the attempt still owns its full window.
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			res.Elapsed = time.Since(start)
			return res, res.Err
		case <-time.After(time.Until(deadline)):
		}
	}

	log.Error("server seems to be offline, abandoning", "attempts", res.Attempts)
	res.Err = api.Wrap(api.ErrCodeTimeout, "send "+string(msg.Command), fmt.Errorf("%w: %w", api.ErrTargetOffline, last)).
		WithContext("target", url).
		WithContext("attempts", res.Attempts)
	res.Elapsed = time.Since(start)
	return res, res.Err
}

// attempt opens a connection, sends payload once and waits for one reply.
func (c *RetryClient) attempt(ctx context.Context, url string, payload []byte, deadline time.Time) (api.Reply, error) {
	actx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	conn, _, err := c.dialer.DialContext(actx, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", api.ErrConnectRefused, err)
	}
	defer closeNoLinger(conn)
	stop := context.AfterFunc(actx, func() { _ = conn.UnderlyingConn().SetDeadline(time.Now()) })
	defer stop()

	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}
	_ = conn.SetReadDeadline(deadline)
	_, msg, err := conn.ReadMessage()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return "", fmt.Errorf("%w: %w", api.ErrOperationTimeout, err)
		}
		return "", fmt.Errorf("receive: %w", err)
	}
	return api.Reply(msg), nil
}

// closeNoLinger discards unsent data instead of holding the socket open.
func closeNoLinger(conn *websocket.Conn) {
	if tc, ok := conn.UnderlyingConn().(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
	_ = conn.Close()
}
