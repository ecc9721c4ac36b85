// Package validation provides centralized input validation for telemetryd:
// host names, ports and host:port endpoints from config, flags and the wire.
package validation

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// =============================================================================
// Host Validation
// =============================================================================

// HostRules defines the validation rules for host names.
type HostRules struct {
	MaxLength      int
	MaxLabelLength int
	AllowUnders    bool
}

// DefaultHostRules returns the DNS rules for host names.
func DefaultHostRules() HostRules {
	return HostRules{
		MaxLength:      253,
		MaxLabelLength: 63,
		AllowUnders:    false,
	}
}

// LenientHostRules also allows underscores, which some LAN resolvers hand out.
func LenientHostRules() HostRules {
	rules := DefaultHostRules()
	rules.AllowUnders = true
	return rules
}

// ValidateHost accepts an IP literal or a host name following rules.
func ValidateHost(host string, rules HostRules) error {
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if len(host) > rules.MaxLength {
		return fmt.Errorf("host too long: maximum %d characters allowed", rules.MaxLength)
	}

	name := strings.TrimSuffix(host, ".")
	for _, label := range strings.Split(name, ".") {
		if err := validateLabel(label, rules); err != nil {
			return fmt.Errorf("invalid host %q: %w", host, err)
		}
	}
	return nil
}

func validateLabel(label string, rules HostRules) error {
	if label == "" {
		return fmt.Errorf("empty label")
	}
	if len(label) > rules.MaxLabelLength {
		return fmt.Errorf("label too long: maximum %d characters allowed", rules.MaxLabelLength)
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fmt.Errorf("label %q cannot start or end with '-'", label)
	}

	for i, r := range label {
		if r < 32 || r == 127 {
			return fmt.Errorf("control character at position %d", i)
		}
		if !isAllowedHostChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}
	return nil
}

func isAllowedHostChar(r rune, rules HostRules) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-':
		return true
	case r == '_':
		return rules.AllowUnders
	}
	return false
}

// =============================================================================
// Port Validation
// =============================================================================

// ValidatePort checks a TCP/UDP port. Zero is accepted only when
// allowZero is set, for "pick an ephemeral port" listen addresses.
func ValidatePort(port int, allowZero bool) error {
	if port == 0 && allowZero {
		return nil
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range 1-65535", port)
	}
	return nil
}

// =============================================================================
// Endpoint Validation
// =============================================================================

// Endpoint represents a parsed host:port.
type Endpoint struct {
	Host string
	Port int
}

// EndpointRules controls ParseEndpoint.
type EndpointRules struct {
	// AllowEmptyHost accepts ":5551", meaning every interface.
	AllowEmptyHost bool

	// AllowZeroPort accepts port 0.
	AllowZeroPort bool
}

// ListenRules are the rules for a listen address.
func ListenRules() EndpointRules {
	return EndpointRules{AllowEmptyHost: true, AllowZeroPort: true}
}

// DialRules are the rules for an address to connect to.
func DialRules() EndpointRules {
	return EndpointRules{}
}

// ParseEndpoint parses a "host:port" string.
func ParseEndpoint(addr string, rules EndpointRules) (*Endpoint, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty address")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address format: expected 'host:port', got '%s'", addr)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q in '%s'", portStr, addr)
	}
	if err := ValidatePort(port, rules.AllowZeroPort); err != nil {
		return nil, fmt.Errorf("invalid address '%s': %w", addr, err)
	}

	if host == "" {
		if !rules.AllowEmptyHost {
			return nil, fmt.Errorf("invalid address '%s': empty host", addr)
		}
	} else if err := ValidateHost(host, LenientHostRules()); err != nil {
		return nil, fmt.Errorf("invalid address '%s': %w", addr, err)
	}

	return &Endpoint{Host: host, Port: port}, nil
}

// String returns the string representation of the endpoint.
func (e *Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
