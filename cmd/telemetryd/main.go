// telemetryd is the LAN telemetry collector daemon.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/xtxerr/telemetryd/internal/console"
	"github.com/xtxerr/telemetryd/internal/discovery"
	"github.com/xtxerr/telemetryd/internal/loader"
	"github.com/xtxerr/telemetryd/internal/logging"
	"github.com/xtxerr/telemetryd/internal/server"
	"github.com/xtxerr/telemetryd/internal/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
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
	// CLI flags
	flags := pflag.NewFlagSet("telemetryd", pflag.ContinueOnError)
	cfgPath := flags.String("config", "telemetryd.yaml", "config file path")
	listen := flags.String("listen", "", "service listen address (overrides config)")
	discoveryPort := flags.Int("discovery-port", 0, "UDP discovery port (overrides config)")
	interval := flags.Duration("interval", 0, "broadcast interval (overrides config)")
	advertise := flags.String("advertise-host", "", "host to advertise (default: each source address)")
	mirror := flags.String("mirror", "", "JSON mirror path (overrides config)")
	logLevel := flags.String("log-level", "", "debug, info, warn or error (overrides config)")
	logJSON := flags.Bool("log-json", false, "log as JSON")
	noConsole := flags.Bool("no-console", false, "do not read commands from stdin")
	noDiscovery := flags.Bool("no-discovery", false, "do not broadcast announcements")
	version := flags.Bool("version", false, "print version and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *version {
		fmt.Println("telemetryd", Version)
		return nil
	}

	// Load config
	cfg, found, err := loader.LoadOrDefault(*cfgPath)
	if err != nil {
		return err
	}

	// CLI overrides
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *discoveryPort != 0 {
		cfg.Discovery.Port = *discoveryPort
	}
	if *interval != 0 {
		cfg.Discovery.Interval = loader.Duration(*interval)
	}
	if *advertise != "" {
		cfg.Discovery.AdvertiseHost = *advertise
	}
	if *mirror != "" {
		cfg.Store.MirrorPath = *mirror
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logJSON {
		cfg.Logging.JSON = true
	}
	if *noConsole {
		cfg.Console.Enabled = false
	}
	if *noDiscovery {
		cfg.Discovery.Enabled = false
	}

	if err := loader.Validate(cfg); err != nil {
		return err
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	log := logging.Component("main")
	log.Info("telemetryd starting", "version", Version)
	if !found {
		log.Info("no config file found, using defaults", "path", *cfgPath)
	}

	// =========================================================================
	// Initialize Store (seeded from the mirror)
	// =========================================================================

	st, err := store.Open(loader.ToStoreConfig(cfg))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	log.Info("store opened", "mirror", cfg.Store.MirrorPath, "peers", st.Len())

	// =========================================================================
	// Bind Acceptor (failure here is fatal)
	// =========================================================================

	srv := server.New(loader.ToServerConfig(cfg, st))
	if err := srv.Listen(); err != nil {
		return err
	}
	servicePort := srv.Addr().(*net.TCPAddr).Port

	// =========================================================================
	// Run
	// =========================================================================

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(srv.Run)

	// Stop accepting when anything ends the group.
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		srv.Shutdown()
		return nil
	})

	if cfg.Discovery.Enabled {
		b, err := discovery.New(loader.ToDiscoveryConfig(cfg, servicePort))
		if err != nil {
			stop()
			g.Wait()
			return err
		}
		g.Go(func() error { return b.Run(ctx) })
	} else {
		log.Info("discovery disabled")
	}

	// The console is outside the group so end of input does not stop the
	// daemon. It returns promptly once ctx is done.
	consoleDone := make(chan struct{})
	if cfg.Console.Enabled {
		con := console.New(&console.Config{
			Reader: st,
			Stats:  srv.Stats,
			Out:    os.Stdout,
			Prompt: cfg.Console.Prompt,
			Color:  term.IsTerminal(int(os.Stdout.Fd())),
			OnQuit: stop,
		})
		go func() {
			defer close(consoleDone)
			if err := con.Run(ctx, os.Stdin); err != nil {
				log.Warn("console stopped", "error", err)
			}
		}()
	} else {
		close(consoleDone)
	}

	err = g.Wait()
	<-consoleDone

	if ferr := st.Flush(); ferr != nil {
		log.Error("final flush failed", "error", ferr)
	}
	stats := srv.Stats()
	log.Info("stopped",
		"accepted", stats.Accepted,
		"stored", stats.Stored,
		"malformed", stats.Malformed,
		"persist_errors", stats.PersistErrors)
	return err
}
