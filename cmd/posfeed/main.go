// File: cmd/posfeed/main.go
// Package main
// Position publisher simulator: publishes a synthetic wheel trace to every
// subscriber at a fixed rate.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/momentics/hioload-maze/feed"
	"github.com/momentics/hioload-maze/protocol"
)

func main() {
	var (
		listen  string
		rate    int
		layout  string
		speed   float64
		seed    int64
		verbose bool
	)
	flag.StringVarP(&listen, "listen", "l", "tcp://*:8556", "publisher endpoint")
	flag.IntVar(&rate, "rate", 500, "samples per second")
	flag.StringVar(&layout, "layout", "position", "sample layout: position or ticks")
	flag.Float64Var(&speed, "speed", 20, "mean running speed in cm/s")
	flag.Int64Var(&seed, "seed", 1, "random seed of the trace")
	flag.BoolVar(&verbose, "verbose", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	l, err := protocol.ParseLayout(layout)
	if err != nil || rate <= 0 {
		fmt.Fprintln(os.Stderr, "posfeed: bad --layout or --rate")
		os.Exit(2)
	}

	pub, err := feed.NewPublisher(listen, feed.PublisherConfig{Logger: log})
	if err != nil {
		fmt.Fprintln(os.Stderr, "posfeed:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := pub.Serve(ctx); err != nil {
			log.Error("publisher stopped", "error", err)
		}
	}()
	log.Info("publishing", "addr", pub.Addr(), "rate", rate, "layout", string(l))

	w := newWheel(speed, rate, seed)
	interval := time.Second / time.Duration(rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	stats := time.NewTicker(5 * time.Second)
	defer stats.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			_ = pub.Close()
			published, dropped := pub.Counts()
			log.Info("stopped", "published", published, "dropped", dropped)
			return
		case now := <-ticker.C:
			ts := now.Sub(start).Milliseconds()
			pub.Publish(w.sample(l, ts))
		case <-stats.C:
			published, dropped := pub.Counts()
			log.Debug("stats", "subscribers", pub.Subscribers(), "published", published, "dropped", dropped)
		}
	}
}
