// File: supervisor/supervisor.go
// Package supervisor assembles a render process: coordinator, command
// endpoint, position feed, control worker, status emitter and render loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The worker and the display reloader run under a suture tree. The render
// loop runs on the calling goroutine; callers that need a fixed OS thread
// lock it before calling Run.

package supervisor

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/momentics/hioload-maze/adapters"
	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/config"
	"github.com/momentics/hioload-maze/control"
	"github.com/momentics/hioload-maze/feed"
	"github.com/momentics/hioload-maze/protocol"
	"github.com/momentics/hioload-maze/render"
	"github.com/momentics/hioload-maze/scene"
	"github.com/momentics/hioload-maze/server"
	"github.com/momentics/hioload-maze/state"
	"github.com/momentics/hioload-maze/status"
	"github.com/momentics/hioload-maze/worker"
)

// Exit codes returned by Run.
const (
	ExitOK       = 0
	ExitInternal = 1
)

// Options configure Run. Nil components are built from Config.
type Options struct {
	Config  config.Config
	Builder api.SceneBuilder
	Window  api.Window
	Emitter status.Emitter
	Logger  *slog.Logger
	// Started is called once the command endpoint listens.
	Started func(Runtime)
}

// Runtime exposes the live process to Options.Started.
type Runtime struct {
	CommandAddr net.Addr
	Coordinator *state.Coordinator
	Control     api.Control
}

// displaySetter is implemented by windows that follow display reloads.
type displaySetter interface {
	SetDisplay(config.DisplayConfig)
}

// Run builds the process and blocks until it has exited. Cancelling ctx
// is an interrupt and ends in the Exiting state like the Exit command.
func Run(ctx context.Context, opts Options) int {
	cfg := opts.Config
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("process", cfg.Worker.Name)

	layout, err := protocol.ParseLayout(cfg.Feed.Layout)
	if err != nil {
		log.Error("bad feed layout", "error", err)
		return ExitInternal
	}

	builder := opts.Builder
	if builder == nil {
		b, err := scene.NewBuilder(cfg.Render.TextureDir)
		if err != nil {
			log.Error("scene builder", "error", err)
			return ExitInternal
		}
		builder = b
	}

	coord := state.New()
	ctrl := adapters.NewControlAdapter()

	emitter := opts.Emitter
	if emitter == nil {
		emitter = newEmitter(ctx, cfg.Status, cfg.Worker.Name, log)
	}
	defer func() {
		if err := emitter.Close(); err != nil {
			log.Warn("status emitter close", "error", err)
		}
	}()
	coord.OnTransition(emitter.Transition)
	coord.OnTransition(func(from, to api.SyncedState) {
		log.Debug("state transition", "from", from.String(), "to", to.String())
	})

	srv, err := server.Listen(&server.Config{
		ListenAddr:       cfg.Server.Listen,
		MaxMessageSize:   int64(cfg.Server.MaxMessageSize.Bytes()),
		ReadTimeout:      cfg.Server.ReadTimeout.D(),
		WriteTimeout:     cfg.Server.WriteTimeout.D(),
		HandshakeTimeout: cfg.Server.HandshakeTimeout.D(),
		Logger:           log,
	}, server.WithControl(ctrl))
	if err != nil {
		log.Error("command endpoint", "error", err)
		return ExitInternal
	}
	defer func() {
		if err := srv.Shutdown(); err != nil {
			log.Warn("command endpoint shutdown", "error", err)
		}
	}()
	log.Info("command endpoint listening", "addr", srv.Addr().String())

	fc := feed.NewClient(feed.Config{
		DialTimeout: cfg.Feed.DialTimeout.D(),
		Buffer:      cfg.Feed.Buffer,
		Logger:      log,
	})
	defer fc.Close()
	if cfg.Feed.Address != "" {
		if err := fc.Connect(ctx, cfg.Feed.Address); err != nil {
			log.Warn("initial data server unreachable, waiting for UpdateDataServer",
				"address", cfg.Feed.Address, "error", err)
		}
	}

	window := opts.Window
	if window == nil {
		window = render.NewHeadless(render.HeadlessConfig{
			FPS:     cfg.Render.FPS,
			Width:   cfg.Render.Width,
			Height:  cfg.Render.Height,
			Display: loadDisplay(cfg.Render.DisplayConfig, log),
			Logger:  log,
		})
	}
	loop := render.New(coord, builder, window, render.WithLogger(log), render.WithControl(ctrl))

	dedupe := feed.NewDeduper(coord, layout)
	w := worker.New(worker.Config{
		Name:         cfg.Worker.Name,
		Version:      cfg.Worker.Version,
		PollInterval: cfg.Worker.PollInterval.D(),
		Logger:       log,
	}, coord, srv, fc, dedupe,
		worker.WithControl(ctrl),
		worker.WithObserver(emitter.Command),
	)

	registerProbes(ctrl, coord, srv, fc, dedupe, loop)

	root := suture.New("hioload-maze", suture.Spec{
		EventHook: func(e suture.Event) {
			log.Warn("supervisor event", "type", e.Type(), "event", e.String())
		},
		Timeout: cfg.ShutdownTimeout.D(),
	})
	workerDone := make(chan struct{})
	root.Add(&joined{Service: w, done: workerDone})

	if path := cfg.Render.DisplayConfig; path != "" {
		if rl := newDisplayReloader(path, window, log); rl != nil {
			defer rl.Close()
			root.Add(&service{name: "display-reloader", run: rl.Run})
		}
	}

	treeCtx, stopTree := context.WithCancel(context.Background())
	treeErr := root.ServeBackground(treeCtx)

	if opts.Started != nil {
		opts.Started(Runtime{CommandAddr: srv.Addr(), Coordinator: coord, Control: ctrl})
	}

	code := ExitOK
	if err := loop.Run(ctx); err != nil {
		log.Error("render loop failed", "error", err)
		code = ExitInternal
	}

	select {
	case <-workerDone:
	case <-time.After(cfg.ShutdownTimeout.D()):
		log.Error("worker did not stop", "timeout", cfg.ShutdownTimeout.D())
		code = ExitInternal
	}
	stopTree()
	if err := <-treeErr; err != nil {
		log.Debug("supervisor stopped", "error", err)
	}

	log.Info("render process stopped", "exit_code", code, "frames", loop.Frames(), "stats", ctrl.Stats())
	return code
}

func newEmitter(ctx context.Context, cfg config.StatusConfig, source string, log *slog.Logger) status.Emitter {
	if cfg.Broker == "" {
		return status.Noop{}
	}
	e, err := status.Connect(ctx, cfg, source, log)
	if err != nil {
		log.Warn("status emitter disabled", "broker", cfg.Broker, "error", err)
		return status.Noop{}
	}
	return e
}

func loadDisplay(path string, log *slog.Logger) config.DisplayConfig {
	if path == "" {
		return config.DefaultDisplay()
	}
	d, err := config.LoadDisplay(path)
	if err != nil {
		log.Warn("display config unusable, using defaults", "path", path, "error", err)
	}
	return d
}

func newDisplayReloader(path string, window api.Window, log *slog.Logger) *control.Reloader {
	ds, ok := window.(displaySetter)
	if !ok {
		return nil
	}
	rl, err := control.NewReloader(path, control.DefaultReloadDebounce, log)
	if err != nil {
		log.Warn("display hot reload unavailable", "error", err)
		return nil
	}
	rl.OnReload(func() {
		d, err := config.LoadDisplay(path)
		if err != nil {
			log.Warn("display reload rejected", "error", err)
			return
		}
		ds.SetDisplay(d)
	})
	return rl
}

func registerProbes(ctrl api.Control, coord *state.Coordinator, srv *server.Server, fc *feed.Client, dd *feed.Deduper, loop *render.Loop) {
	ctrl.RegisterDebugProbe("state", func() any { return coord.State().String() })
	ctrl.RegisterDebugProbe("position", func() any { return coord.Position() })
	ctrl.RegisterDebugProbe("command_addr", func() any { return srv.Addr().String() })
	ctrl.RegisterDebugProbe("server.frames", func() any {
		received, sent := srv.FrameStats()
		return map[string]int64{"received": received, "sent": sent}
	})
	ctrl.RegisterDebugProbe("feed.endpoint", func() any { return fc.Endpoint() })
	ctrl.RegisterDebugProbe("feed.stats", func() any { return fc.Stats() })
	ctrl.RegisterDebugProbe("feed.samples", func() any {
		applied, duplicates, malformed := dd.Counts()
		return map[string]uint64{"applied": applied, "duplicates": duplicates, "malformed": malformed}
	})
	ctrl.RegisterDebugProbe("feed.last_timestamp", func() any { return dd.LastTimestamp() })
	ctrl.RegisterDebugProbe("render.frames", func() any { return loop.Frames() })
}
