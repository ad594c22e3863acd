// File: fake/window.go
// Package fake
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"
	"time"

	"github.com/momentics/hioload-maze/api"
)

// Window records what the render loop drew. It paces frames with
// FrameDelay and closes itself after CloseAfter frames when set.
type Window struct {
	FrameDelay time.Duration
	CloseAfter int
	DrawErr    error

	mu        sync.Mutex
	scenes    []string
	positions []float64
	banner    []bool
	quit      bool
	closed    bool
}

var _ api.Window = (*Window)(nil)

// ShouldClose implements api.Window.
func (w *Window) ShouldClose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.quit || (w.CloseAfter > 0 && len(w.positions) >= w.CloseAfter)
}

// Quit simulates the user closing the window.
func (w *Window) Quit() {
	w.mu.Lock()
	w.quit = true
	w.mu.Unlock()
}

// SetScene implements api.Window.
func (w *Window) SetScene(s api.Scene) {
	w.mu.Lock()
	w.scenes = append(w.scenes, s.Name())
	w.mu.Unlock()
}

// ShowAddress implements api.Window.
func (w *Window) ShowAddress(show bool) {
	w.mu.Lock()
	w.banner = append(w.banner, show)
	w.mu.Unlock()
}

// DrawFrame implements api.Window.
func (w *Window) DrawFrame(position float64) error {
	if w.FrameDelay > 0 {
		time.Sleep(w.FrameDelay)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.DrawErr != nil {
		return w.DrawErr
	}
	w.positions = append(w.positions, position)
	return nil
}

// Close implements api.Window.
func (w *Window) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

// Scenes lists the names of scenes set, in order.
func (w *Window) Scenes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.scenes...)
}

// Banner lists every ShowAddress call.
func (w *Window) Banner() []bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]bool(nil), w.banner...)
}

// Frames counts drawn frames.
func (w *Window) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.positions)
}

// LastPosition returns the position of the latest frame.
func (w *Window) LastPosition() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.positions) == 0 {
		return 0
	}
	return w.positions[len(w.positions)-1]
}

// Closed reports whether Close was called.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}
