// File: render/loop.go
// Package render drives the frame loop: it applies queued scene
// configurations, completes the reconfiguration handshake and draws the
// camera at the shared position.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The loop never blocks on I/O. At the top of every frame it polls the
// coordinator; a rebuild runs to completion before the next frame.

package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/state"
)

// Option customizes a Loop.
type Option func(*Loop)

// WithLogger sets the loop logger.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) { lp.log = l }
}

// WithControl routes frame and rebuild counters to ctrl.
func WithControl(ctrl api.Control) Option {
	return func(lp *Loop) { lp.control = ctrl }
}

// Loop is the render side of the coordinator.
type Loop struct {
	coord   *state.Coordinator
	builder api.SceneBuilder
	window  api.Window
	log     *slog.Logger
	control api.Control

	frames atomic.Uint64

	mu      sync.Mutex
	scene   api.Scene
	applied api.MazeConfig
	banner  bool
}

// New wires a loop. Call Init or Run before Step.
func New(coord *state.Coordinator, builder api.SceneBuilder, window api.Window, opts ...Option) *Loop {
	l := &Loop{
		coord:   coord,
		builder: builder,
		window:  window,
	}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	l.log = l.log.With("component", "render")
	return l
}

// Init shows the default scene and the address banner.
func (l *Loop) Init() {
	def := l.builder.Default()
	l.window.SetScene(def)
	l.window.ShowAddress(true)
	l.mu.Lock()
	l.scene = def
	l.banner = true
	l.mu.Unlock()
}

// Step runs one frame. It returns false once the loop should stop: the
// coordinator is Exiting, the user closed the window, or drawing failed.
func (l *Loop) Step() (bool, error) {
	if l.coord.State() == api.StateExiting {
		return false, nil
	}
	if l.window.ShouldClose() {
		if l.coord.Exit() {
			l.log.Info("window closed by user")
		}
		return false, nil
	}
	if cfg, ok := l.coord.PendingConfig(); ok {
		l.apply(cfg)
	}
	if err := l.window.DrawFrame(l.coord.Position()); err != nil {
		return false, api.Wrap(api.ErrCodeInternal, "draw frame", err)
	}
	l.frames.Add(1)
	return true, nil
}

// Run initializes and steps until the loop stops or ctx ends. Either way
// the coordinator ends Exiting and the window is closed. A draw failure is
// returned.
func (l *Loop) Run(ctx context.Context) error {
	l.Init()
	defer func() {
		if err := l.window.Close(); err != nil {
			l.log.Warn("window close", "error", err)
		}
	}()
	for {
		if ctx.Err() != nil {
			l.coord.Exit()
			return nil
		}
		ok, err := l.Step()
		if err != nil {
			l.coord.Exit()
			return err
		}
		if !ok {
			return nil
		}
	}
}

func (l *Loop) apply(cfg api.MazeConfig) {
	start := time.Now()
	sc, err := l.build(cfg)
	if err != nil {
		def := l.builder.Default()
		l.window.SetScene(def)
		l.mu.Lock()
		l.scene = def
		l.mu.Unlock()
		l.complete(err)
		l.log.Warn("scene rebuild failed, default scene shown", "error", err, "elapsed", time.Since(start))
		l.inc("render.rebuilds.failed")
		return
	}

	l.window.SetScene(sc)
	l.mu.Lock()
	l.scene = sc
	l.applied = cfg
	hideBanner := l.banner
	l.banner = false
	l.mu.Unlock()
	if hideBanner {
		l.window.ShowAddress(false)
	}
	l.complete(nil)
	l.log.Info("scene rebuilt", "scene", sc.Name(), "elapsed", time.Since(start))
	l.inc("render.rebuilds.ok")
}

// build recovers a panicking builder into an error so the worker is
// always answered.
func (l *Loop) build(cfg api.MazeConfig) (sc api.Scene, err error) {
	defer func() {
		if r := recover(); r != nil {
			sc = nil
			err = api.NewError(api.ErrCodeReconfiguration, fmt.Sprintf("scene builder panic: %v", r))
		}
	}()
	sc, err = l.builder.Build(cfg)
	if err == nil && sc == nil {
		err = api.NewError(api.ErrCodeReconfiguration, "scene builder returned no scene")
	}
	return sc, err
}

func (l *Loop) complete(applyErr error) {
	if err := l.coord.CompleteReconfiguration(applyErr); err != nil {
		l.log.Debug("reconfiguration not completed", "error", err)
	}
}

func (l *Loop) inc(key string) {
	if l.control != nil {
		l.control.IncMetric(key)
	}
}

// Frames counts drawn frames.
func (l *Loop) Frames() uint64 {
	return l.frames.Load()
}

// Scene returns the scene currently shown.
func (l *Loop) Scene() api.Scene {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.scene
}

// Applied returns the last configuration that built successfully.
func (l *Loop) Applied() api.MazeConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applied
}
