// File: server/server.go
// Package server implements the command endpoint: a strict request-reply
// channel carrying one ControlMessage at a time per connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection goroutines only move bytes. A decoded request is handed to the
// consumer through Requests or Receive and the connection reads nothing
// more until the request has been replied to. Undecodable payloads are
// answered here with ProtocolError and never reach the consumer.

package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/protocol"
	"github.com/momentics/hioload-maze/transport"
)

// Server is the command endpoint of the render process.
type Server struct {
	cfg     *Config
	log     *slog.Logger
	control api.Control
	ln      *transport.Listener

	requests chan *Request
	shutdown chan struct{}
	once     sync.Once

	mu    sync.Mutex
	conns map[*protocol.Conn]struct{}
	wg    sync.WaitGroup
}

var _ api.GracefulShutdown = (*Server)(nil)

// Listen binds the command endpoint exclusively and starts accepting.
// A busy port is returned as an error; the caller treats it as fatal.
func Listen(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{
		cfg:      cfg,
		log:      cfg.Logger,
		requests: make(chan *Request),
		shutdown: make(chan struct{}),
		conns:    make(map[*protocol.Conn]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("component", "server")

	ln, err := transport.Listen(cfg.ListenAddr,
		transport.WithHandshakeTimeout(cfg.HandshakeTimeout),
		transport.WithMaxMessageSize(cfg.MaxMessageSize))
	if err != nil {
		return nil, err
	}
	s.ln = ln
	s.log.Info("command endpoint listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Requests delivers decoded requests in arrival order.
func (s *Server) Requests() <-chan *Request {
	return s.requests
}

// Receive blocks until one full request is available.
func (s *Server) Receive(ctx context.Context) (*Request, error) {
	select {
	case r := <-s.requests:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.shutdown:
		return nil, api.ErrTransportClosed
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, transport.ErrListenerClosed) {
				return
			}
			s.log.Warn("accept failed", "error", err)
			continue
		}
		s.mu.Lock()
		select {
		case <-s.shutdown:
			s.mu.Unlock()
			_ = c.Close()
			return
		default:
		}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.serveConn(c)
	}
}

func (s *Server) serveConn(c net.Conn) {
	defer s.wg.Done()
	ws, err := s.ln.Upgrade(c)
	if err != nil {
		s.log.Debug("upgrade failed", "error", err)
		return
	}
	ws.SetTimeouts(s.cfg.ReadTimeout, s.cfg.WriteTimeout)

	s.mu.Lock()
	s.conns[ws] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, ws)
		s.mu.Unlock()
		_ = ws.Close()
	}()

	session := uuid.NewString()
	log := s.log.With("session", session, "remote", ws.RemoteAddr().String())
	log.Debug("session opened")

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			log.Debug("session closed", "error", err)
			return
		}
		msg, err := protocol.DecodeControlMessage(payload)
		if err != nil {
			log.Warn("rejecting request", "error", err)
			s.inc("server.protocol_errors")
			if err := ws.WriteMessage(protocol.OpcodeText, []byte(api.ReplyProtocolError)); err != nil {
				return
			}
			continue
		}
		s.inc("server.requests")

		req := newRequest(msg, session, ws, s)
		select {
		case s.requests <- req:
		case <-s.shutdown:
			return
		}
		select {
		case <-req.done:
		case <-s.shutdown:
			return
		}
	}
}

// FrameStats sums the frame counters of the open sessions.
func (s *Server) FrameStats() (received, sent int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		rx, tx := c.Stats()
		received += rx
		sent += tx
	}
	return received, sent
}

func (s *Server) inc(key string) {
	if s.control != nil {
		s.control.IncMetric(key)
	}
}

// Shutdown stops accepting, closes every session and waits for the
// connection goroutines. Safe to call more than once.
func (s *Server) Shutdown() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		close(s.shutdown)
		conns := make([]*protocol.Conn, 0, len(s.conns))
		for c := range s.conns {
			conns = append(conns, c)
		}
		s.mu.Unlock()

		err = s.ln.Close()
		for _, c := range conns {
			_ = c.Close()
		}
		s.wg.Wait()
		s.log.Info("command endpoint closed")
	})
	return err
}
