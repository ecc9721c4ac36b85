package discovery

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/xtxerr/telemetryd/internal/wire"
)

// Await listens on addr (e.g. ":5005") until a valid announcement arrives
// or ctx is done. An announcement for an unspecified host such as
// "0.0.0.0" is resolved to the address the datagram came from.
func Await(ctx context.Context, addr string) (wire.Announcement, error) {
	lc := net.ListenConfig{Control: reuseControl}
	pc, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return wire.Announcement{}, err
	}
	defer pc.Close()

	// Unblock ReadFrom when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		pc.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, 512)
	for {
		n, from, err := pc.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return wire.Announcement{}, ctx.Err()
			}
			return wire.Announcement{}, err
		}

		ann, err := wire.DecodeAnnouncement(buf[:n])
		if err != nil {
			log.Debug("ignoring datagram", "from", from.String(), "error", err)
			continue
		}
		return resolveHost(ann, from), nil
	}
}

func resolveHost(ann wire.Announcement, from net.Addr) wire.Announcement {
	ip := net.ParseIP(ann.Host)
	if ip == nil || !ip.IsUnspecified() {
		return ann
	}
	if udp, ok := from.(*net.UDPAddr); ok {
		ann.Host = udp.IP.String()
	}
	return ann
}

// Listen is Await on the given port of every interface.
func Listen(ctx context.Context, port int) (wire.Announcement, error) {
	return Await(ctx, ":"+strconv.Itoa(port))
}
