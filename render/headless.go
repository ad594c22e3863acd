// File: render/headless.go
// Package render
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package render

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/config"
)

// HeadlessConfig tunes a Headless window.
type HeadlessConfig struct {
	FPS     int
	Width   int
	Height  int
	Display config.DisplayConfig
	Logger  *slog.Logger
}

// Headless is an api.Window without a display. It paces frames with a
// ticker and logs what a real window would show.
type Headless struct {
	log    *slog.Logger
	ticker *time.Ticker
	width  int
	height int

	quit   atomic.Bool
	frames atomic.Uint64

	mu       sync.Mutex
	scene    api.Scene
	banner   bool
	display  config.DisplayConfig
	viewport config.Viewport
	position float64
	closed   bool
}

var _ api.Window = (*Headless)(nil)

// NewHeadless creates a window. Zero fields fall back to 60 fps, 1920x1080
// and the default display.
func NewHeadless(cfg HeadlessConfig) *Headless {
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1920, 1080
	}
	if cfg.Display.Validate() != nil {
		cfg.Display = config.DefaultDisplay()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &Headless{
		log:    log.With("component", "window"),
		ticker: time.NewTicker(time.Second / time.Duration(cfg.FPS)),
		width:  cfg.Width,
		height: cfg.Height,
	}
	h.SetDisplay(cfg.Display)
	return h
}

// ShouldClose implements api.Window.
func (h *Headless) ShouldClose() bool {
	return h.quit.Load()
}

// RequestClose simulates the user closing the window.
func (h *Headless) RequestClose() {
	h.quit.Store(true)
}

// SetScene implements api.Window.
func (h *Headless) SetScene(s api.Scene) {
	h.mu.Lock()
	h.scene = s
	h.mu.Unlock()
	h.log.Info("scene set", "scene", s.Name())
}

// ShowAddress implements api.Window. Turning the banner on logs the host
// addresses once.
func (h *Headless) ShowAddress(show bool) {
	h.mu.Lock()
	was := h.banner
	h.banner = show
	h.mu.Unlock()
	if show && !was {
		h.log.Info("address banner", "addresses", HostAddresses())
	}
}

// Banner reports whether the address banner is shown.
func (h *Headless) Banner() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.banner
}

// SetDisplay swaps the display geometry; safe to call from any goroutine.
func (h *Headless) SetDisplay(d config.DisplayConfig) {
	vp := d.Viewport(h.width, h.height)
	h.mu.Lock()
	h.display = d
	h.viewport = vp
	h.mu.Unlock()
	h.log.Debug("viewport", "x", vp.X, "y", vp.Y, "width", vp.Width, "height", vp.Height)
}

// Viewport returns the current display region in pixels.
func (h *Headless) Viewport() config.Viewport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewport
}

// DrawFrame implements api.Window. It waits for the next frame tick.
func (h *Headless) DrawFrame(position float64) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return api.ErrTransportClosed
	}
	<-h.ticker.C
	h.mu.Lock()
	h.position = position
	h.mu.Unlock()
	h.frames.Add(1)
	return nil
}

// Frames counts drawn frames.
func (h *Headless) Frames() uint64 {
	return h.frames.Load()
}

// Position returns the camera position of the last frame.
func (h *Headless) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

// Close implements api.Window.
func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.ticker.Stop()
	}
	return nil
}

// HostAddresses lists the non-loopback interface addresses.
func HostAddresses() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	var out []string
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		out = append(out, ipn.IP.String())
	}
	return out
}
