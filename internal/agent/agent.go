// Package agent is the reporting side: it measures the local machine,
// finds the collector by listening for its announcement, and sends one
// report per connection.
package agent

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/xtxerr/telemetryd/config"
	"github.com/xtxerr/telemetryd/internal/constants"
	"github.com/xtxerr/telemetryd/internal/discovery"
	"github.com/xtxerr/telemetryd/internal/errors"
	"github.com/xtxerr/telemetryd/internal/logging"
	"github.com/xtxerr/telemetryd/internal/store"
	"github.com/xtxerr/telemetryd/internal/validation"
	"github.com/xtxerr/telemetryd/internal/wire"
)

var log = logging.Component("agent")

// Config holds agent configuration.
type Config struct {
	// Server is the collector address. Empty waits for an announcement.
	Server string

	// DiscoveryPort is the UDP port announcements arrive on.
	DiscoveryPort int

	// DiscoveryTimeout bounds the wait for an announcement.
	DiscoveryTimeout time.Duration

	// DialTimeout bounds connecting and sending.
	DialTimeout time.Duration

	// DiskPath is the filesystem whose free space is reported.
	DiskPath string
}

func (c *Config) applyDefaults() {
	if c.DiscoveryPort == 0 {
		c.DiscoveryPort = config.DefaultDiscoveryPort
	}
	if c.DiscoveryTimeout == 0 {
		c.DiscoveryTimeout = config.DefaultDiscoveryTimeout
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = config.DefaultDialTimeout
	}
	if c.DiskPath == "" {
		c.DiskPath = DefaultDiskPath()
	}
}

// DefaultDiskPath is the root filesystem of the running OS.
func DefaultDiskPath() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// =============================================================================
// Collection
// =============================================================================

// Collect measures the local machine. A metric that cannot be read is
// reported as unknown rather than failing the whole report.
func Collect(ctx context.Context, diskPath string) store.Record {
	var rec store.Record

	if usage, err := disk.UsageWithContext(ctx, diskPath); err != nil {
		log.Warn("disk usage unavailable", "path", diskPath, "error", err)
	} else {
		rec.FreeDiskGB = store.Gigabytes(float64(usage.Free) / constants.BytesPerGB)
	}

	if n, err := cpu.CountsWithContext(ctx, true); err != nil || n <= 0 {
		log.Warn("processor count unavailable", "error", err)
	} else {
		rec.CPUCount = store.Count(n)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Warn("memory stats unavailable", "error", err)
	} else {
		rec.FreeMemoryGB = store.Gigabytes(float64(vm.Available) / constants.BytesPerGB)
	}

	return rec
}

// =============================================================================
// Reporting
// =============================================================================

// Send delivers one report to addr over a fresh connection and waits for
// the collector to close it.
func Send(ctx context.Context, addr string, rec store.Record, timeout time.Duration) error {
	payload, err := wire.EncodeReport(rec)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return errors.Wrapf(errors.ErrConnectionFailed, "dial %s: %v", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if _, err := conn.Write(payload); err != nil {
		return errors.Wrapf(errors.ErrConnectionFailed, "send to %s: %v", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}

	// The collector closes after storing; a read error here is not a
	// delivery failure.
	var buf [1]byte
	conn.Read(buf[:])
	return nil
}

// Resolve returns the collector address: cfg.Server if set, otherwise
// the address from the first announcement heard.
func Resolve(ctx context.Context, cfg *Config) (string, error) {
	if cfg.Server != "" {
		ep, err := validation.ParseEndpoint(cfg.Server, validation.DialRules())
		if err != nil {
			return "", errors.NewInvalidValue("server", cfg.Server, err.Error())
		}
		return ep.String(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DiscoveryTimeout)
	defer cancel()

	log.Info("waiting for announcement", "port", cfg.DiscoveryPort)
	ann, err := discovery.Listen(ctx, cfg.DiscoveryPort)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", errors.Wrapf(errors.ErrTimeout, "no announcement on port %d within %s",
				cfg.DiscoveryPort, cfg.DiscoveryTimeout)
		}
		return "", err
	}
	log.Info("collector discovered", "announcement", ann.String())
	return ann.Addr(), nil
}

// Run resolves the collector, measures the machine, and reports once.
func Run(ctx context.Context, cfg *Config) error {
	cfg.applyDefaults()

	addr, err := Resolve(ctx, cfg)
	if err != nil {
		return fmt.Errorf("find collector: %w", err)
	}

	rec := Collect(ctx, cfg.DiskPath)
	if err := Send(ctx, addr, rec, cfg.DialTimeout); err != nil {
		return err
	}

	log.Info("report sent",
		"server", addr,
		"free_disk", store.FormatGigabytes(rec.FreeDiskGB),
		"cpus", store.FormatCount(rec.CPUCount),
		"free_memory", store.FormatGigabytes(rec.FreeMemoryGB))
	return nil
}
