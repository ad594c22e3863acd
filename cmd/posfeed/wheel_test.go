// File: cmd/posfeed/wheel_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-maze/protocol"
)

func TestWheelMovesForward(t *testing.T) {
	w := newWheel(20, 500, 7)
	prev := w.step()
	for i := 0; i < 5000; i++ {
		cur := w.step()
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	// ten seconds at a mean of 20 cm/s is roughly 200 cm of track
	cm := float64(prev) / (protocol.EncoderResolution / protocol.WheelCircumference)
	assert.InDelta(t, 200, cm, 40)
}

func TestWheelSampleLayouts(t *testing.T) {
	w := newWheel(20, 500, 7)

	raw := w.sample(protocol.LayoutPosition, 12)
	s, err := protocol.DecodeSample(protocol.LayoutPosition, raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), s.Timestamp)
	assert.GreaterOrEqual(t, s.Position, 0.0)
	assert.Less(t, s.Position, float64(protocol.TrackLength))

	raw = w.sample(protocol.LayoutTicks, 14)
	assert.Len(t, raw, protocol.LayoutTicks.Size())
	s, err = protocol.DecodeSample(protocol.LayoutTicks, raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(14), s.Timestamp)
}
