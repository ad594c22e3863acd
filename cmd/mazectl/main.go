// File: cmd/mazectl/main.go
// Package main
// Operator tool: pushes one control command to every render process of a
// fleet with bounded retries and reports the outcome per target.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Usage:
//
//	mazectl [flags] version
//	mazectl [flags] load <maze.yaml>
//	mazectl [flags] data-server [<address>]
//	mazectl [flags] exit

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/momentics/hioload-maze/api"
	"github.com/momentics/hioload-maze/client"
	"github.com/momentics/hioload-maze/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] version | load <maze.yaml> | data-server [<address>] | exit\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var (
		fleetPath string
		targets   []string
		timeout   time.Duration
		retries   int
		verbose   bool
	)
	flag.StringVarP(&fleetPath, "fleet", "f", "", "fleet file (TOML) listing targets")
	flag.StringSliceVarP(&targets, "target", "t", nil, "target host or host:port (repeatable)")
	flag.DurationVar(&timeout, "timeout", 0, "per-attempt reply timeout (default 2.5s)")
	flag.IntVar(&retries, "retries", 0, "connections tried per target (default 3)")
	flag.BoolVar(&verbose, "verbose", false, "log every attempt")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	ccfg := client.DefaultConfig()
	ccfg.Logger = logger
	var defaults config.FleetDefaults
	var endpoints []string
	if fleetPath != "" {
		fleet, err := config.LoadFleet(fleetPath)
		if err != nil {
			fail(err)
		}
		defaults = fleet.Defaults
		endpoints = fleet.Endpoints()
		if defaults.RequestTimeout > 0 {
			ccfg.RequestTimeout = defaults.RequestTimeout.D()
		}
		if defaults.RequestRetries > 0 {
			ccfg.RequestRetries = defaults.RequestRetries
		}
	}
	for _, t := range targets {
		endpoints = append(endpoints, targetEndpoint(t))
	}
	if len(endpoints) == 0 {
		fail(fmt.Errorf("no targets: use --fleet or --target"))
	}
	if timeout > 0 {
		ccfg.RequestTimeout = timeout
	}
	if retries > 0 {
		ccfg.RequestRetries = retries
	}

	msg, err := buildMessage(args, defaults)
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := client.New(ccfg).Rollout(ctx, endpoints, msg, client.ExpectedFor(msg.Command))
	report(os.Stdout, results)
	if len(client.Failed(results)) > 0 {
		stop()
		os.Exit(1)
	}
}

func buildMessage(args []string, defaults config.FleetDefaults) (api.ControlMessage, error) {
	switch args[0] {
	case "version":
		return api.ControlMessage{Command: api.CmdQueryVersion}, nil
	case "load":
		if len(args) != 2 {
			return api.ControlMessage{}, fmt.Errorf("load needs a maze file")
		}
		mc, err := loadMaze(args[1])
		if err != nil {
			return api.ControlMessage{}, err
		}
		return api.ControlMessage{Command: api.CmdLoadModel, MazeConfig: mc}, nil
	case "data-server":
		addr := defaults.DataServer
		if len(args) > 1 {
			addr = args[1]
		}
		return api.ControlMessage{Command: api.CmdUpdateDataServer, DataServerAddress: addr}, nil
	case "exit":
		return api.ControlMessage{Command: api.CmdExit}, nil
	}
	return api.ControlMessage{}, fmt.Errorf("unknown command %q", args[0])
}

func report(w io.Writer, results []client.Result) {
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(w, "%-28s ok      %-20s attempts=%d elapsed=%s\n",
				r.Target, r.Reply, r.Attempts, r.Elapsed.Round(time.Millisecond))
			continue
		}
		fmt.Fprintf(w, "%-28s FAILED  %v\n", r.Target, r.Err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "mazectl:", err)
	os.Exit(1)
}
