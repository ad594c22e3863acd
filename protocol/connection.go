// File: protocol/connection.go
// Package protocol implements the server side of a WebSocket session.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn turns a hijacked TCP stream into whole messages: continuation
// frames are reassembled, pings are answered and a close frame is echoed
// before the stream ends.

package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-maze/api"
)

// Conn is one accepted WebSocket session.
// ReadMessage must be called from a single goroutine; WriteMessage is safe
// for concurrent use.
type Conn struct {
	conn       net.Conn
	br         *bufio.Reader
	maxMessage int64
	path       string

	readTimeout  time.Duration
	writeTimeout time.Duration

	wmu    sync.Mutex
	wbuf   []byte
	closed atomic.Bool

	framesReceived int64
	framesSent     int64
}

// NewConn wraps c after a completed handshake. br must be the reader the
// handshake was parsed from.
func NewConn(c net.Conn, br *bufio.Reader, maxMessage int64, path string) *Conn {
	if maxMessage <= 0 {
		maxMessage = MaxFramePayload
	}
	if br == nil {
		br = bufio.NewReader(c)
	}
	return &Conn{
		conn:       c,
		br:         br,
		maxMessage: maxMessage,
		path:       path,
	}
}

// SetTimeouts configures per-message read and write deadlines; zero disables.
func (c *Conn) SetTimeouts(read, write time.Duration) {
	c.readTimeout = read
	c.writeTimeout = write
}

// Path returns the request path of the upgrade.
func (c *Conn) Path() string {
	return c.path
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// ReadMessage returns the next complete text or binary message.
// A close frame from the peer yields io.EOF.
func (c *Conn) ReadMessage() (byte, []byte, error) {
	var (
		opcode  byte
		msg     []byte
		started bool
	)
	for {
		if c.readTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}
		f, err := DecodeFrame(c.br, c.maxMessage)
		if err != nil {
			if errors.Is(err, api.ErrMessageTooLarge) {
				_ = c.writeClose(CloseMessageTooBig)
			} else if errors.Is(err, ErrProtocolViolation) {
				_ = c.writeClose(CloseProtocolError)
			}
			return 0, nil, err
		}
		atomic.AddInt64(&c.framesReceived, 1)

		switch f.Opcode {
		case OpcodePing:
			if err := c.writeFrame(OpcodePong, f.Payload); err != nil {
				return 0, nil, err
			}
			continue
		case OpcodePong:
			continue
		case OpcodeClose:
			code := CloseNormalClosure
			if len(f.Payload) >= 2 {
				code = int(binary.BigEndian.Uint16(f.Payload))
			}
			_ = c.writeClose(code)
			return 0, nil, io.EOF
		case OpcodeContinuation:
			if !started {
				_ = c.writeClose(CloseProtocolError)
				return 0, nil, fmt.Errorf("%w: continuation without start", ErrProtocolViolation)
			}
			msg = append(msg, f.Payload...)
		case OpcodeText, OpcodeBinary:
			if started {
				_ = c.writeClose(CloseProtocolError)
				return 0, nil, fmt.Errorf("%w: interleaved data frame", ErrProtocolViolation)
			}
			opcode, msg, started = f.Opcode, f.Payload, true
		default:
			_ = c.writeClose(CloseProtocolError)
			return 0, nil, fmt.Errorf("%w: opcode %#x", ErrProtocolViolation, f.Opcode)
		}

		if int64(len(msg)) > c.maxMessage {
			_ = c.writeClose(CloseMessageTooBig)
			return 0, nil, fmt.Errorf("%w: message of %d bytes", api.ErrMessageTooLarge, len(msg))
		}
		if f.IsFinal {
			return opcode, msg, nil
		}
	}
}

// WriteMessage sends payload as a single unmasked frame.
func (c *Conn) WriteMessage(opcode byte, payload []byte) error {
	return c.writeFrame(opcode, payload)
}

func (c *Conn) writeFrame(opcode byte, payload []byte) error {
	if c.closed.Load() {
		return api.ErrTransportClosed
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()

	f := &WSFrame{IsFinal: true, Opcode: opcode, PayloadLen: int64(len(payload)), Payload: payload}
	buf, err := EncodeFrameToBuffer(f, false, c.wbuf)
	if err != nil {
		return err
	}
	c.wbuf = buf
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.conn.Write(buf); err != nil {
		return fmt.Errorf("write to connection: %w", err)
	}
	atomic.AddInt64(&c.framesSent, 1)
	return nil
}

func (c *Conn) writeClose(code int) error {
	var p [2]byte
	binary.BigEndian.PutUint16(p[:], uint16(code))
	return c.writeFrame(OpcodeClose, p[:])
}

// Close sends a normal closure frame and releases the socket; idempotent.
func (c *Conn) Close() error {
	if c.closed.Load() {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
	_ = c.writeClose(CloseNormalClosure)
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// Stats reports frame counters.
func (c *Conn) Stats() (received, sent int64) {
	return atomic.LoadInt64(&c.framesReceived), atomic.LoadInt64(&c.framesSent)
}
