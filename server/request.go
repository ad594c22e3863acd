// File: server/request.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"sync/atomic"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/protocol"
)

// Request is one accepted ControlMessage awaiting its reply.
type Request struct {
	Message api.ControlMessage
	// Session identifies the connection the request arrived on.
	Session string

	conn    *protocol.Conn
	srv     *Server
	replied atomic.Bool
	done    chan struct{}
}

func newRequest(msg api.ControlMessage, session string, conn *protocol.Conn, srv *Server) *Request {
	return &Request{
		Message: msg,
		Session: session,
		conn:    conn,
		srv:     srv,
		done:    make(chan struct{}),
	}
}

// Reply writes the single reply before returning, so the caller may tear
// the process down right after. A second call returns api.ErrAlreadyReplied
// and writes nothing.
func (r *Request) Reply(rep api.Reply) error {
	if !r.replied.CompareAndSwap(false, true) {
		return api.ErrAlreadyReplied
	}
	defer close(r.done)
	r.srv.inc("server.replies")
	if err := r.conn.WriteMessage(protocol.OpcodeText, []byte(rep)); err != nil {
		return api.Wrap(api.ErrCodeTransport, "reply", err).WithContext("session", r.Session)
	}
	return nil
}

// Replied reports whether Reply has been called.
func (r *Request) Replied() bool {
	return r.replied.Load()
}
