// File: cmd/posfeed/wheel.go
// Package main
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"math"
	"math/rand"

	"github.com/momentics/hioload-maze/protocol"
)

// wheel integrates a noisy running speed into encoder ticks. The speed
// swings between standing still and twice the mean over ten seconds.
type wheel struct {
	rng        *rand.Rand
	ticksPerCm float64
	mean       float64 // cm/s
	dt         float64 // s per sample
	t          float64
	acc        float64 // fractional ticks
	ticks      int32
}

func newWheel(meanSpeed float64, rate int, seed int64) *wheel {
	return &wheel{
		rng:        rand.New(rand.NewSource(seed)),
		ticksPerCm: protocol.EncoderResolution / protocol.WheelCircumference,
		mean:       meanSpeed,
		dt:         1 / float64(rate),
	}
}

// step advances one sample period and returns the raw tick count.
func (w *wheel) step() int32 {
	w.t += w.dt
	v := w.mean * (1 + math.Sin(2*math.Pi*w.t/10))
	v += w.rng.NormFloat64() * w.mean * 0.05
	if v < 0 {
		v = 0
	}
	w.acc += v * w.dt * w.ticksPerCm
	whole := math.Floor(w.acc)
	w.acc -= whole
	w.ticks += int32(whole)
	return w.ticks
}

// sample encodes the next step in layout l with timestamp ts (ms).
func (w *wheel) sample(l protocol.Layout, ts int64) []byte {
	ticks := w.step()
	if l == protocol.LayoutTicks {
		return protocol.EncodeTicks(int32(ts), ticks)
	}
	return protocol.EncodePosition(protocol.PositionSample{
		Timestamp: uint32(ts),
		Position:  protocol.TicksToPosition(ticks),
	})
}
