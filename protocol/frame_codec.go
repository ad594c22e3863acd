// File: protocol/frame_codec.go
// Package protocol implements frame encoding with frame size enforcement.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/momentics/hioload-maze/api"
)

// MaxFramePayload defines the default maximum payload of a single frame.
const MaxFramePayload = 1 << 20 // 1 MiB

// EncodeFrameToBuffer serializes f into dst, reusing its capacity.
// Servers send unmasked frames; clients must set mask. The returned slice
// aliases dst.
func EncodeFrameToBuffer(f *WSFrame, mask bool, dst []byte) ([]byte, error) {
	plen := len(f.Payload)
	if int64(plen) > MaxFramePayload {
		return nil, fmt.Errorf("%w: frame of %d bytes", api.ErrMessageTooLarge, plen)
	}

	var b0 byte
	if f.IsFinal {
		b0 = FinBit
	}
	b0 |= f.Opcode & 0x0F

	var maskBit byte
	if mask {
		maskBit = MaskBit
	}

	var hdr [MaxFrameHeaderLen]byte
	hdr[0] = b0
	n := 2
	switch {
	case plen <= 125:
		hdr[1] = byte(plen) | maskBit
	case plen <= 0xFFFF:
		hdr[1] = 126 | maskBit
		binary.BigEndian.PutUint16(hdr[2:], uint16(plen))
		n += 2
	default:
		hdr[1] = 127 | maskBit
		binary.BigEndian.PutUint64(hdr[2:], uint64(plen))
		n += 8
	}

	var key [4]byte
	if mask {
		if _, err := rand.Read(key[:]); err != nil {
			return nil, fmt.Errorf("mask key: %w", err)
		}
		copy(hdr[n:], key[:])
		n += 4
	}

	dst = append(dst[:0], hdr[:n]...)
	start := len(dst)
	dst = append(dst, f.Payload...)
	if mask {
		maskInPlace(dst[start:], key)
	}
	return dst, nil
}

// EncodeFrameToBytes serializes a final frame with the given opcode.
func EncodeFrameToBytes(opcode byte, payload []byte, mask bool) ([]byte, error) {
	f := &WSFrame{IsFinal: true, Opcode: opcode, PayloadLen: int64(len(payload)), Payload: payload}
	return EncodeFrameToBuffer(f, mask, nil)
}
