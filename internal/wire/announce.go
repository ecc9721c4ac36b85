package wire

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/xtxerr/telemetryd/internal/errors"
	"github.com/xtxerr/telemetryd/internal/validation"
)

// Announcement is the (host, port) pair a server broadcasts so agents can
// find it. On the wire it is the tuple text "('10.0.0.5', 5551)".
type Announcement struct {
	Host string
	Port int
}

// Addr returns the host:port dial address.
func (a Announcement) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// String returns the wire text.
func (a Announcement) String() string {
	return fmt.Sprintf("('%s', %d)", a.Host, a.Port)
}

// Encode returns the datagram payload.
func (a Announcement) Encode() []byte {
	return []byte(a.String())
}

// DecodeAnnouncement parses a datagram payload. Single or double quotes
// around the host are accepted.
func DecodeAnnouncement(data []byte) (Announcement, error) {
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return Announcement{}, fmt.Errorf("%q: not a tuple: %w", s, errors.ErrInvalidAnnounce)
	}
	body := s[1 : len(s)-1]

	i := strings.LastIndexByte(body, ',')
	if i < 0 {
		return Announcement{}, fmt.Errorf("%q: missing port: %w", s, errors.ErrInvalidAnnounce)
	}

	host := strings.TrimSpace(body[:i])
	if len(host) >= 2 && (host[0] == '\'' || host[0] == '"') && host[len(host)-1] == host[0] {
		host = host[1 : len(host)-1]
	} else {
		return Announcement{}, fmt.Errorf("%q: host not quoted: %w", s, errors.ErrInvalidAnnounce)
	}
	if err := validation.ValidateHost(host, validation.LenientHostRules()); err != nil {
		return Announcement{}, fmt.Errorf("%q: %v: %w", s, err, errors.ErrInvalidAnnounce)
	}

	port, err := strconv.Atoi(strings.TrimSpace(body[i+1:]))
	if err != nil || port <= 0 || port > 65535 {
		return Announcement{}, fmt.Errorf("%q: bad port: %w", s, errors.ErrInvalidAnnounce)
	}

	return Announcement{Host: host, Port: port}, nil
}
