// File: protocol/sample.go
// Package protocol
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Binary layouts of the position stream. Each published message carries
// exactly one sample, little-endian:
//
//	position: <uint32 timestamp><float64 position>   (12 bytes)
//	ticks:    <int32 timestamp><int32 raw_ticks>     (8 bytes)
//
// Raw ticks are converted with position = mod(ticks * π * 20.2 / 8192, 240).

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Layout selects the binary sample layout of a position stream.
type Layout string

const (
	LayoutPosition Layout = "position"
	LayoutTicks    Layout = "ticks"
)

const (
	PositionSampleSize = 12
	TicksSampleSize    = 8

	// WheelCircumference is π times the wheel diameter in cm.
	WheelCircumference = math.Pi * 20.2
	// EncoderResolution is the number of encoder ticks per wheel revolution.
	EncoderResolution = 8192
	// TrackLength is the virtual track length positions wrap at.
	TrackLength = 240.0
)

// ErrMalformedSample reports a payload that does not match the layout.
var ErrMalformedSample = errors.New("malformed position sample")

// PositionSample is one decoded record of the position stream.
type PositionSample struct {
	Timestamp uint32
	Position  float64
}

// ParseLayout validates a layout name; empty selects LayoutPosition.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", LayoutPosition:
		return LayoutPosition, nil
	case LayoutTicks:
		return LayoutTicks, nil
	}
	return "", fmt.Errorf("unknown sample layout %q", s)
}

// Size returns the encoded size of one sample.
func (l Layout) Size() int {
	if l == LayoutTicks {
		return TicksSampleSize
	}
	return PositionSampleSize
}

// TicksToPosition converts raw encoder ticks to a track position in [0, 240).
func TicksToPosition(ticks int32) float64 {
	p := math.Mod(float64(ticks)*WheelCircumference/EncoderResolution, TrackLength)
	if p < 0 {
		p += TrackLength
	}
	return p
}

// DecodeSample parses raw according to l.
func DecodeSample(l Layout, raw []byte) (PositionSample, error) {
	if len(raw) != l.Size() {
		return PositionSample{}, fmt.Errorf("%w: %d bytes for layout %s", ErrMalformedSample, len(raw), l)
	}
	if l == LayoutTicks {
		ts := int32(binary.LittleEndian.Uint32(raw[0:4]))
		ticks := int32(binary.LittleEndian.Uint32(raw[4:8]))
		return PositionSample{Timestamp: uint32(ts), Position: TicksToPosition(ticks)}, nil
	}
	return PositionSample{
		Timestamp: binary.LittleEndian.Uint32(raw[0:4]),
		Position:  math.Float64frombits(binary.LittleEndian.Uint64(raw[4:12])),
	}, nil
}

// EncodePosition builds a LayoutPosition payload.
func EncodePosition(s PositionSample) []byte {
	buf := make([]byte, PositionSampleSize)
	binary.LittleEndian.PutUint32(buf[0:4], s.Timestamp)
	binary.LittleEndian.PutUint64(buf[4:12], math.Float64bits(s.Position))
	return buf
}

// EncodeTicks builds a LayoutTicks payload.
func EncodeTicks(timestamp, ticks int32) []byte {
	buf := make([]byte, TicksSampleSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(timestamp))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(ticks))
	return buf
}
