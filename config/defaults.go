// Package config provides configuration defaults and utilities
// for the telemetryd application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or command-line flags.
package config

import "time"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultServicePort is the TCP port agents connect to.
	// Override via config: server.listen
	DefaultServicePort = 5551

	// DefaultListenAddress is the default service listen address (all interfaces).
	// Override via config: server.listen
	DefaultListenAddress = "0.0.0.0:5551"

	// DefaultMaxReportSize bounds the single read performed per connection.
	// A report larger than this is truncated and rejected as malformed.
	// Override via config: server.max_report_size
	DefaultMaxReportSize = 1024

	// DefaultReadTimeout bounds how long a connected agent may stay silent.
	// Zero disables the deadline.
	// Override via config: server.read_timeout
	DefaultReadTimeout = 30 * time.Second
)

// =============================================================================
// Discovery Defaults
// =============================================================================

const (
	// DefaultDiscoveryPort is the UDP port announcements are sent to.
	// It must differ from the service port.
	// Override via config: discovery.port
	DefaultDiscoveryPort = 5005

	// DefaultBroadcastAddress is the limited broadcast address.
	// Override via config: discovery.broadcast_address
	DefaultBroadcastAddress = "255.255.255.255"

	// DefaultAdvertiseHost is the host placed in each announcement.
	// Empty means "the local address the datagram is sent from".
	// Override via config: discovery.advertise_host
	DefaultAdvertiseHost = ""

	// DefaultBroadcastInterval is the delay between announcement rounds.
	// Override via config: discovery.interval
	DefaultBroadcastInterval = 5 * time.Second
)

// =============================================================================
// Store Defaults
// =============================================================================

const (
	// DefaultMirrorPath is the durable JSON mirror of the telemetry store.
	// Override via config: store.mirror_path
	DefaultMirrorPath = "informacoes_sistema.json"

	// DefaultSketchAccuracy is the relative accuracy of summary percentiles.
	// Override via config: store.sketch_accuracy
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Rate Limiting Defaults
// =============================================================================

const (
	// DefaultMalformedLimit is the max malformed reports per IP per window.
	// After reaching a non-zero limit, further connections from the IP are
	// dropped on accept until the window expires. Zero disables limiting, so
	// a peer's well-formed report is always read.
	// Override via config: server.malformed_limit
	DefaultMalformedLimit = 0

	// DefaultMalformedWindow is the window for counting malformed reports.
	// Override via config: server.malformed_window
	DefaultMalformedWindow = time.Minute
)

// =============================================================================
// Agent Defaults
// =============================================================================

const (
	// DefaultDiscoveryTimeout is how long the reference agent waits for an
	// announcement before giving up.
	DefaultDiscoveryTimeout = 15 * time.Second

	// DefaultDialTimeout bounds the agent's TCP connect.
	DefaultDialTimeout = 10 * time.Second
)
