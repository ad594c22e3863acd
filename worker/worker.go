// File: worker/worker.go
// Package worker runs the control worker: one goroutine multiplexing the
// command endpoint and the position feed, dispatching commands through a
// fixed table and forwarding changed positions to the shared cell.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LoadModel blocks this loop until the render loop acknowledges. Samples
// arriving meanwhile wait in the feed's bounded buffer, oldest dropped
// first; that buffer is the whole staleness window.

package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/feed"
	"github.com/momentics/hioload-maze/internal/procname"
	"github.com/momentics/hioload-maze/server"
	"github.com/momentics/hioload-maze/state"
)

// Feed is the position subscription the worker repoints on UpdateDataServer.
type Feed interface {
	Connect(ctx context.Context, endpoint string) error
	Disconnect()
	Samples() <-chan []byte
}

// RequestSource yields accepted command requests.
type RequestSource interface {
	Requests() <-chan *server.Request
}

// Observer is told about every answered command.
type Observer func(cmd api.Command, reply api.Reply, elapsed time.Duration)

// Config tunes the worker.
type Config struct {
	// Name identifies the worker thread and supervisor service.
	Name string
	// Version is reported by QueryVersion.
	Version string
	// PollInterval bounds how long the loop waits before rechecking state.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// DefaultConfig returns the values used by the render process.
func DefaultConfig() Config {
	return Config{
		Name:         "hioload-maze.Communicator",
		Version:      "1.1",
		PollInterval: 10 * time.Millisecond,
	}
}

// Option customizes a Worker.
type Option func(*Worker)

// WithControl routes command counters to ctrl.
func WithControl(ctrl api.Control) Option {
	return func(w *Worker) { w.control = ctrl }
}

// WithObserver adds an observer of answered commands.
func WithObserver(fn Observer) Option {
	return func(w *Worker) { w.observers = append(w.observers, fn) }
}

// Worker is a suture.Service.
type Worker struct {
	cfg       Config
	log       *slog.Logger
	coord     *state.Coordinator
	requests  RequestSource
	feed      Feed
	dedupe    *feed.Deduper
	control   api.Control
	observers []Observer
}

var _ suture.Service = (*Worker)(nil)

// New wires a worker. dedupe must write into coord.
func New(cfg Config, coord *state.Coordinator, requests RequestSource, f Feed, dedupe *feed.Deduper, opts ...Option) *Worker {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	w := &Worker{
		cfg:      cfg,
		log:      log.With("component", "worker"),
		coord:    coord,
		requests: requests,
		feed:     f,
		dedupe:   dedupe,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// String names the service in supervisor events.
func (w *Worker) String() string {
	return w.cfg.Name
}

// Serve runs the loop until Exiting. Cancellation of ctx is an interrupt
// and is handled like Exit. It never asks to be restarted.
func (w *Worker) Serve(ctx context.Context) error {
	release, err := procname.Set(w.cfg.Name)
	if err != nil {
		w.log.Debug("thread naming unavailable", "error", err)
	}
	defer release()

	pprof.Do(ctx, pprof.Labels("worker", w.cfg.Name), func(ctx context.Context) {
		w.loop(ctx)
	})
	return suture.ErrDoNotRestart
}

func (w *Worker) loop(ctx context.Context) {
	w.log.Info("starting communicator loop", "version", w.cfg.Version)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if w.coord.State() == api.StateExiting {
			w.log.Info("goodbye")
			return
		}
		select {
		case <-ctx.Done():
			if w.coord.Exit() {
				w.log.Info("interrupted, exiting")
			}
		case <-w.coord.Done():
		case req := <-w.requests.Requests():
			w.handle(ctx, req)
		case raw := <-w.feed.Samples():
			if _, err := w.dedupe.Apply(raw); err != nil {
				w.log.Debug("dropping sample", "error", err)
			}
		case <-ticker.C:
		}
	}
}

func (w *Worker) handle(ctx context.Context, req *server.Request) {
	start := time.Now()
	cmd := req.Message.Command
	log := w.log.With("session", req.Session, "command", string(cmd))

	var reply api.Reply
	if w.coord.State() == api.StateExiting {
		// Accepted before the exit was observed; answered, not dispatched.
		reply = api.ReplyExiting
		w.send(log, req, reply)
		return
	}

	reply = w.dispatch(ctx, log, req)
	elapsed := time.Since(start)
	log.Info("command handled", "reply", string(reply), "elapsed", elapsed)

	w.inc("worker.commands." + string(cmd))
	w.inc("worker.replies." + replyKey(reply))
	for _, fn := range w.observers {
		fn(cmd, reply, elapsed)
	}
}

// dispatch is the command table. Every branch replies exactly once.
func (w *Worker) dispatch(ctx context.Context, log *slog.Logger, req *server.Request) api.Reply {
	msg := req.Message
	switch msg.Command {
	case api.CmdQueryVersion:
		return w.send(log, req, api.VersionReply(w.cfg.Version))

	case api.CmdLoadModel:
		s, err := w.coord.RequestReconfiguration(ctx, msg.MazeConfig)
		if err != nil {
			log.Warn("reconfiguration not acknowledged", "error", err, "state", s.String())
		}
		if err == nil && s == api.StateReady {
			return w.send(log, req, api.ReplyModelLoaded)
		}
		return w.send(log, req, api.ReplyModelFailure)

	case api.CmdUpdateDataServer:
		if msg.DataServerAddress == "" {
			w.feed.Disconnect()
			return w.send(log, req, api.ReplyDataServerUpdated)
		}
		err := w.feed.Connect(ctx, msg.DataServerAddress)
		switch {
		case err == nil, errors.Is(err, api.ErrAlreadyConnected):
			return w.send(log, req, api.ReplyDataServerUpdated)
		default:
			log.Warn("data server update failed", "address", msg.DataServerAddress, "error", err)
			return w.send(log, req, api.ReplyDataServerFailure)
		}

	case api.CmdExit:
		reply := w.send(log, req, api.ReplyExiting)
		w.coord.Exit()
		return reply
	}
	log.Warn("unknown command")
	return w.send(log, req, api.ReplyUnknownCommand)
}

func (w *Worker) send(log *slog.Logger, req *server.Request, reply api.Reply) api.Reply {
	if err := req.Reply(reply); err != nil {
		log.Warn("reply failed", "reply", string(reply), "error", err)
	}
	return reply
}

func (w *Worker) inc(key string) {
	if w.control != nil {
		w.control.IncMetric(key)
	}
}

// replyKey folds "Version:<v>;" into a single metric name.
func replyKey(r api.Reply) string {
	if strings.HasPrefix(string(r), "Version:") {
		return "Version"
	}
	return string(r)
}
