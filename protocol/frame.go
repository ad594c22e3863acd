// Package protocol
// Author: momentics <momentics@gmail.com>
//
// WebSocket frame decoding for the command and position endpoints.
// Frames are read straight off a buffered stream; payload size is bounded
// by the caller.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/momentics/hioload-maze/api"
)

// ErrProtocolViolation reports a frame sequence that breaks RFC 6455.
var ErrProtocolViolation = errors.New("websocket protocol violation")

// WSFrame represents a decoded WebSocket frame.
type WSFrame struct {
	IsFinal    bool  // FIN bit
	Opcode     byte  // Operation code
	Masked     bool  // Whether the frame was masked
	PayloadLen int64 // Actual payload length
	MaskKey    [4]byte
	Payload    []byte // unmasked payload, owned by the caller
}

// IsControl reports whether the frame carries a control opcode.
func (f *WSFrame) IsControl() bool {
	return f.Opcode&0x8 != 0
}

// DecodeFrame parses one WebSocket frame from r.
// Payloads longer than maxPayload are rejected with api.ErrMessageTooLarge
// before anything is allocated; maxPayload <= 0 applies MaxFramePayload.
func DecodeFrame(r io.Reader, maxPayload int64) (*WSFrame, error) {
	if maxPayload <= 0 {
		maxPayload = MaxFramePayload
	}
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	isFin := hdr[0]&FinBit != 0
	opcode := hdr[0] & 0x0F
	isMasked := hdr[1]&MaskBit != 0
	payloadLen := int64(hdr[1] & 0x7F)

	if hdr[0]&0x70 != 0 {
		return nil, fmt.Errorf("%w: reserved bits set", ErrProtocolViolation)
	}

	switch payloadLen {
	case 126:
		var ext [2]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, err
		}
		payloadLen = int64(binary.BigEndian.Uint16(ext[:]))
	case 127:
		var ext [8]byte
		if _, err := io.ReadFull(r, ext[:]); err != nil {
			return nil, err
		}
		payloadLen = int64(binary.BigEndian.Uint64(ext[:]))
		if payloadLen < 0 {
			return nil, fmt.Errorf("%w: negative payload length", ErrProtocolViolation)
		}
	}

	if opcode&0x8 != 0 && (payloadLen > MaxControlPayloadLen || !isFin) {
		return nil, fmt.Errorf("%w: bad control frame", ErrProtocolViolation)
	}
	if payloadLen > maxPayload {
		return nil, fmt.Errorf("%w: frame of %d bytes", api.ErrMessageTooLarge, payloadLen)
	}

	var maskKey [4]byte
	if isMasked {
		if _, err := io.ReadFull(r, maskKey[:]); err != nil {
			return nil, err
		}
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	if isMasked {
		maskInPlace(payload, maskKey)
	}

	return &WSFrame{
		IsFinal:    isFin,
		Opcode:     opcode,
		Masked:     isMasked,
		PayloadLen: payloadLen,
		MaskKey:    maskKey,
		Payload:    payload,
	}, nil
}

// maskInPlace applies XOR on payload using key. Masking is its own inverse.
func maskInPlace(buf []byte, key [4]byte) {
	for i := 0; i < len(buf); i++ {
		buf[i] ^= key[i%4]
	}
}
