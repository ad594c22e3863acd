// File: feed/dedupe.go
// Package feed
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package feed

import (
	"sync/atomic"

	"github.com/momentics/hioload-maze/protocol"
)

// PositionSink receives every changed position.
type PositionSink interface {
	SetPosition(p float64)
}

// Deduper decodes samples and forwards a position only when it differs from
// the last forwarded one. The sink starts at 0, and so does the comparison.
// Apply is not safe for concurrent use; the control worker is its only
// caller. The counters and LastTimestamp may be read from anywhere.
type Deduper struct {
	sink   PositionSink
	layout protocol.Layout

	last          float64
	lastTimestamp atomic.Uint32

	applied    atomic.Uint64
	duplicates atomic.Uint64
	malformed  atomic.Uint64
}

// NewDeduper binds a sink and a sample layout.
func NewDeduper(sink PositionSink, layout protocol.Layout) *Deduper {
	return &Deduper{sink: sink, layout: layout}
}

// Apply handles one raw sample and reports whether the sink was written.
func (d *Deduper) Apply(raw []byte) (bool, error) {
	s, err := protocol.DecodeSample(d.layout, raw)
	if err != nil {
		d.malformed.Add(1)
		return false, err
	}
	d.lastTimestamp.Store(s.Timestamp)
	if s.Position == d.last {
		d.duplicates.Add(1)
		return false, nil
	}
	d.last = s.Position
	d.sink.SetPosition(s.Position)
	d.applied.Add(1)
	return true, nil
}

// LastTimestamp returns the timestamp of the most recent decoded sample.
func (d *Deduper) LastTimestamp() uint32 {
	return d.lastTimestamp.Load()
}

// Counts returns applied, duplicate and malformed sample totals.
func (d *Deduper) Counts() (applied, duplicates, malformed uint64) {
	return d.applied.Load(), d.duplicates.Load(), d.malformed.Load()
}
