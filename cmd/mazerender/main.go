// File: cmd/mazerender/main.go
// Package main
// Render process with a headless window: listens for control commands,
// follows the position feed and applies scene reconfigurations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/momentics/hioload-maze/config"
	"github.com/momentics/hioload-maze/supervisor"
)

// defaultDisplayFile is picked up from the working directory when no
// display config is configured.
const defaultDisplayFile = "display_config.yaml"

func main() {
	var (
		configPath  string
		listen      string
		dataServer  string
		layout      string
		display     string
		textureDir  string
		fps         int
		logLevel    string
		logFormat   string
		broker      string
		showVersion bool
	)
	flag.StringVarP(&configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	flag.StringVar(&listen, "listen", "", "command endpoint, e.g. tcp://*:8557")
	flag.StringVar(&dataServer, "data-server", "", "position publisher to subscribe to at start-up")
	flag.StringVar(&layout, "layout", "", "position sample layout: position or ticks")
	flag.StringVar(&display, "display-config", "", "display geometry file, reloaded on change")
	flag.StringVar(&textureDir, "texture-dir", "", "directory texture names resolve against")
	flag.IntVar(&fps, "fps", 0, "frame rate of the headless window")
	flag.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flag.StringVar(&logFormat, "log-format", "", "text or json")
	flag.StringVar(&broker, "status-broker", "", "MQTT broker for status events, e.g. tcp://localhost:1883")
	flag.BoolVarP(&showVersion, "version", "v", false, "print version and exit")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(supervisor.ExitInternal)
		}
	}
	if showVersion {
		fmt.Printf("%s %s\n", cfg.Worker.Name, cfg.Worker.Version)
		return
	}

	set := func(name string, apply func()) {
		if flag.CommandLine.Changed(name) {
			apply()
		}
	}
	set("listen", func() { cfg.Server.Listen = listen })
	set("data-server", func() { cfg.Feed.Address = dataServer })
	set("layout", func() { cfg.Feed.Layout = layout })
	set("display-config", func() { cfg.Render.DisplayConfig = display })
	set("texture-dir", func() { cfg.Render.TextureDir = textureDir })
	set("fps", func() { cfg.Render.FPS = fps })
	set("log-level", func() { cfg.Log.Level = logLevel })
	set("log-format", func() { cfg.Log.Format = logFormat })
	set("status-broker", func() { cfg.Status.Broker = broker })

	if cfg.Render.DisplayConfig == "" {
		if _, err := os.Stat(defaultDisplayFile); err == nil {
			cfg.Render.DisplayConfig = defaultDisplayFile
		}
	}
	if err := cfg.ExpandPaths(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(supervisor.ExitInternal)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(supervisor.ExitInternal)
	}

	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(supervisor.ExitInternal)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// The render loop keeps its OS thread for the life of the process.
	runtime.LockOSThread()
	code := supervisor.Run(ctx, supervisor.Options{Config: cfg, Logger: logger})
	stop()
	os.Exit(code)
}
