// telemetry-agent reports this machine's free disk, processor count and
// free memory to a telemetryd collector.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/xtxerr/telemetryd/config"
	"github.com/xtxerr/telemetryd/internal/agent"
	"github.com/xtxerr/telemetryd/internal/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg agent.Config
	var every time.Duration
	var logLevel string

	flags := pflag.NewFlagSet("telemetry-agent", pflag.ContinueOnError)
	flags.StringVarP(&cfg.Server, "server", "s", "", "collector host:port (default: wait for an announcement)")
	flags.IntVar(&cfg.DiscoveryPort, "discovery-port", config.DefaultDiscoveryPort, "UDP port announcements arrive on")
	flags.DurationVar(&cfg.DiscoveryTimeout, "discovery-timeout", config.DefaultDiscoveryTimeout, "how long to wait for an announcement")
	flags.DurationVar(&cfg.DialTimeout, "timeout", config.DefaultDialTimeout, "connect and send timeout")
	flags.StringVar(&cfg.DiskPath, "disk", agent.DefaultDiskPath(), "filesystem to report free space for")
	flags.DurationVar(&every, "every", 0, "report repeatedly at this interval (default: once)")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logging.Init(logging.ParseLevel(logLevel), false)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if every <= 0 {
		return agent.Run(ctx, &cfg)
	}

	log := logging.Component("main")
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		// A fresh config per round so a collector that moved is rediscovered.
		round := cfg
		if err := agent.Run(ctx, &round); err != nil {
			log.Warn("report failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
