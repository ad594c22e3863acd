// File: client/retry_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/protocol"
	"github.com/momentics/hioload-maze/transport"
)

// stubServer counts connections and requests and answers with reply().
// An empty reply means stay silent.
type stubServer struct {
	ln       *transport.Listener
	conns    atomic.Int32
	requests atomic.Int32
	reply    func(n int32) api.Reply
	wg       sync.WaitGroup
}

func newStubServer(t *testing.T, reply func(n int32) api.Reply) *stubServer {
	t.Helper()
	ln, err := transport.Listen("127.0.0.1:0")
	require.NoError(t, err)
	s := &stubServer{ln: ln, reply: reply}
	go s.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *stubServer) serve() {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.conns.Add(1)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ws, err := s.ln.Upgrade(c)
			if err != nil {
				return
			}
			defer ws.Close()
			for {
				_, payload, err := ws.ReadMessage()
				if err != nil {
					return
				}
				if _, err := protocol.DecodeControlMessage(payload); err != nil {
					return
				}
				n := s.requests.Add(1)
				if r := s.reply(n); r != "" {
					_ = ws.WriteMessage(protocol.OpcodeText, []byte(r))
				}
			}
		}()
	}
}

func (s *stubServer) endpoint() string {
	return "tcp://" + s.ln.Addr().String()
}

func fastClient() *RetryClient {
	return New(Config{RequestTimeout: 150 * time.Millisecond, RequestRetries: 3})
}

func TestSendSuccess(t *testing.T) {
	s := newStubServer(t, func(int32) api.Reply { return api.ReplyModelLoaded })
	res, err := fastClient().Send(context.Background(), s.endpoint(),
		api.ControlMessage{Command: api.CmdLoadModel, MazeConfig: api.MazeConfig{"TrackLength": 240}}, nil)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, api.ReplyModelLoaded, res.Reply)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), s.conns.Load())
}

func TestSilentServerExhaustsRetries(t *testing.T) {
	s := newStubServer(t, func(int32) api.Reply { return "" })
	start := time.Now()
	res, err := fastClient().Send(context.Background(), s.endpoint(), api.ControlMessage{Command: api.CmdQueryVersion}, nil)
	assert.ErrorIs(t, err, api.ErrTargetOffline)
	assert.Equal(t, 3, res.Attempts)
	assert.GreaterOrEqual(t, time.Since(start), 450*time.Millisecond)

	require.Eventually(t, func() bool { return s.requests.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), s.conns.Load(), "one connection per attempt")
	assert.Equal(t, s.conns.Load(), s.requests.Load(), "one send per connection")
}

func TestMismatchedReplyCostsAnAttempt(t *testing.T) {
	s := newStubServer(t, func(n int32) api.Reply {
		if n < 3 {
			return "Busy"
		}
		return api.ReplyExiting
	})
	res, err := fastClient().Send(context.Background(), s.endpoint(), api.ControlMessage{Command: api.CmdExit}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, api.ReplyExiting, res.Reply)

	s2 := newStubServer(t, func(int32) api.Reply { return "Busy" })
	res, err = fastClient().Send(context.Background(), s2.endpoint(), api.ControlMessage{Command: api.CmdExit}, nil)
	assert.ErrorIs(t, err, api.ErrTargetOffline)
	assert.ErrorIs(t, err, api.ErrUnexpectedReply)
	assert.Equal(t, 3, res.Attempts)
}

func TestOfflineTargetTiming(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	start := time.Now()
	res, err := New(Config{RequestTimeout: 100 * time.Millisecond, RequestRetries: 3}).
		Send(context.Background(), "tcp://"+addr, api.ControlMessage{Command: api.CmdQueryVersion}, nil)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, api.ErrTargetOffline)
	assert.ErrorIs(t, err, api.ErrConnectRefused)
	assert.Equal(t, 3, res.Attempts)
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestSendHonoursContext(t *testing.T) {
	s := newStubServer(t, func(int32) api.Reply { return "" })
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(Config{RequestTimeout: time.Second, RequestRetries: 3}).
		Send(ctx, s.endpoint(), api.ControlMessage{Command: api.CmdQueryVersion}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendRejectsBadInput(t *testing.T) {
	c := fastClient()
	_, err := c.Send(context.Background(), "tcp://*:8557", api.ControlMessage{Command: api.CmdExit}, nil)
	assert.ErrorIs(t, err, api.ErrInvalidAddress)
	_, err = c.Send(context.Background(), "tcp://127.0.0.1:8557", api.ControlMessage{}, nil)
	assert.ErrorIs(t, err, api.ErrMalformedMessage)
}

func TestRolloutContinuesPastOfflineTarget(t *testing.T) {
	up := newStubServer(t, func(int32) api.Reply { return api.ReplyDataServerUpdated })
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	down := "tcp://" + ln.Addr().String()
	require.NoError(t, ln.Close())

	msg := api.ControlMessage{Command: api.CmdUpdateDataServer, DataServerAddress: "tcp://10.0.0.5:8556"}
	results := New(Config{RequestTimeout: 50 * time.Millisecond, RequestRetries: 2}).
		Rollout(context.Background(), []string{down, up.endpoint()}, msg, nil)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, api.ErrTargetOffline)
	assert.True(t, results[1].OK())
	assert.Len(t, Failed(results), 1)
}

func TestMatchers(t *testing.T) {
	assert.True(t, ExpectedFor(api.CmdQueryVersion)("Version:1.1;"))
	assert.False(t, ExpectedFor(api.CmdQueryVersion)("Version:1.1"))
	assert.True(t, ExpectedFor(api.CmdLoadModel)(api.ReplyModelLoaded))
	assert.False(t, ExpectedFor(api.CmdLoadModel)(api.ReplyModelFailure))
	assert.False(t, ExpectedFor("Reboot")(api.ReplyUnknownCommand))
	assert.Equal(t, "tcp://rig-3:8557", CommandEndpoint("rig-3", 0))
}
