// Package discovery advertises the server on the local network.
//
// Every interval the broadcaster sends one UDP datagram per local IPv4
// address to the broadcast address on the discovery port. Each datagram
// carries the announcement ('host', port) agents use to dial the service.
// A failure on one address is logged and does not affect the others.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/xtxerr/telemetryd/config"
	"github.com/xtxerr/telemetryd/internal/errors"
	"github.com/xtxerr/telemetryd/internal/logging"
	"github.com/xtxerr/telemetryd/internal/validation"
	"github.com/xtxerr/telemetryd/internal/wire"
)

var log = logging.Component("discovery")

// AddrSource lists the local addresses to broadcast from.
type AddrSource func() ([]net.IP, error)

// Config holds broadcaster configuration.
type Config struct {
	// Port is the UDP discovery port datagrams are sent to.
	Port int

	// BroadcastAddress is the destination host, normally 255.255.255.255.
	BroadcastAddress string

	// ServicePort is the TCP port placed in the announcement.
	ServicePort int

	// AdvertiseHost is the host placed in the announcement. Empty means
	// each datagram advertises the local address it is sent from.
	AdvertiseHost string

	// Interval is the delay between rounds.
	Interval time.Duration

	// Addresses overrides local address discovery (tests).
	Addresses AddrSource
}

// Outcome is the result of sending one datagram.
type Outcome struct {
	Source       net.IP
	Announcement wire.Announcement
	Err          error
}

// Broadcaster periodically announces the service.
type Broadcaster struct {
	cfg  *Config
	dest *net.UDPAddr
}

// New creates a broadcaster.
func New(cfg *Config) (*Broadcaster, error) {
	if cfg.Port == 0 {
		cfg.Port = config.DefaultDiscoveryPort
	}
	if cfg.BroadcastAddress == "" {
		cfg.BroadcastAddress = config.DefaultBroadcastAddress
	}
	if cfg.ServicePort == 0 {
		cfg.ServicePort = config.DefaultServicePort
	}
	if cfg.Interval <= 0 {
		cfg.Interval = config.DefaultBroadcastInterval
	}
	if cfg.Addresses == nil {
		cfg.Addresses = LocalIPv4Addrs
	}

	if cfg.AdvertiseHost != "" {
		if err := validation.ValidateHost(cfg.AdvertiseHost, validation.LenientHostRules()); err != nil {
			return nil, errors.NewInvalidValue("discovery.advertise_host", cfg.AdvertiseHost, err.Error())
		}
	}

	dest, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(cfg.BroadcastAddress, strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, errors.NewInvalidValue("discovery.broadcast_address", cfg.BroadcastAddress, err.Error())
	}

	return &Broadcaster{cfg: cfg, dest: dest}, nil
}

// Run broadcasts immediately and then every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	log.Info("broadcasting",
		"destination", b.dest.String(),
		"service_port", b.cfg.ServicePort,
		"interval", b.cfg.Interval)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		b.round(ctx)

		select {
		case <-ctx.Done():
			log.Info("broadcaster stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Broadcaster) round(ctx context.Context) {
	outcomes, err := b.BroadcastOnce(ctx)
	if err != nil {
		log.Warn("list local addresses", "error", err)
		return
	}

	sent := 0
	for _, o := range outcomes {
		if o.Err != nil {
			log.Warn("broadcast failed", "source", o.Source.String(), "error", o.Err)
			continue
		}
		sent++
		log.Debug("broadcast sent", "source", o.Source.String(), "announcement", o.Announcement.String())
	}
	if len(outcomes) > 0 && sent == 0 {
		log.Warn("no announcement sent this round", "addresses", len(outcomes))
	}
}

// BroadcastOnce sends one datagram from every local address and returns
// one outcome per address. The error is only set when the addresses
// themselves could not be listed.
func (b *Broadcaster) BroadcastOnce(ctx context.Context) ([]Outcome, error) {
	addrs, err := b.cfg.Addresses()
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, errors.ErrNoBroadcastSource
	}

	outcomes := make([]Outcome, 0, len(addrs))
	for _, src := range addrs {
		ann := wire.Announcement{Host: b.cfg.AdvertiseHost, Port: b.cfg.ServicePort}
		if ann.Host == "" {
			ann.Host = src.String()
		}
		outcomes = append(outcomes, Outcome{
			Source:       src,
			Announcement: ann,
			Err:          b.send(ctx, src, ann.Encode()),
		})
	}
	return outcomes, nil
}

// send binds a socket to src, enables broadcast and sends one datagram.
func (b *Broadcaster) send(ctx context.Context, src net.IP, payload []byte) error {
	lc := net.ListenConfig{Control: broadcastControl}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(src.String(), "0"))
	if err != nil {
		return fmt.Errorf("bind %s: %w", src, err)
	}
	defer pc.Close()

	if _, err := pc.WriteTo(payload, b.dest); err != nil {
		return fmt.Errorf("send to %s: %w", b.dest, err)
	}
	return nil
}

// LocalIPv4Addrs returns the IPv4 addresses of every interface that is up,
// loopback excluded.
func LocalIPv4Addrs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			log.Debug("skip interface", "interface", iface.Name, "error", err)
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				out = append(out, ip4)
			}
		}
	}
	return out, nil
}
