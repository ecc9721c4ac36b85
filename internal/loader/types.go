// Package loader - Configuration Types
//
// Defines the YAML configuration structure for telemetryd.
//
//	server:     TCP acceptor (listen address, report size, timeouts)
//	discovery:  UDP broadcaster (port, destination, interval)
//	store:      telemetry store and its JSON mirror
//	logging:    level and format
//	console:    operator console
package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/xtxerr/telemetryd/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for telemetryd.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
	Console   ConsoleConfig   `yaml:"console"`
}

// ServerConfig configures the TCP acceptor.
type ServerConfig struct {
	// Listen is the service address.
	// Default: "0.0.0.0:5551"
	Listen string `yaml:"listen"`

	// MaxReportSize bounds one report. Accepts "1KiB", "2048" etc.
	// Default: 1024
	MaxReportSize ByteSize `yaml:"max_report_size"`

	// ReadTimeout bounds how long a peer may stay silent. "0" disables it.
	// Default: 30s
	ReadTimeout Duration `yaml:"read_timeout"`

	// MalformedLimit is the number of malformed reports per window after
	// which a peer's connections are dropped. 0 disables the limit.
	// Default: 0
	MalformedLimit int `yaml:"malformed_limit"`

	// MalformedWindow is the window for MalformedLimit.
	// Default: 1m
	MalformedWindow Duration `yaml:"malformed_window"`
}

// DiscoveryConfig configures the broadcaster.
type DiscoveryConfig struct {
	// Enabled turns broadcasting on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Port is the UDP discovery port.
	// Default: 5005
	Port int `yaml:"port"`

	// BroadcastAddress is the datagram destination.
	// Default: "255.255.255.255"
	BroadcastAddress string `yaml:"broadcast_address"`

	// AdvertiseHost is the host put in announcements. Empty advertises
	// the address each datagram is sent from.
	AdvertiseHost string `yaml:"advertise_host"`

	// Interval between rounds.
	// Default: 5s
	Interval Duration `yaml:"interval"`
}

// StoreConfig configures the telemetry store.
type StoreConfig struct {
	// MirrorPath is the durable JSON mirror.
	// Default: "informacoes_sistema.json"
	MirrorPath string `yaml:"mirror_path"`

	// SketchAccuracy is the relative accuracy of summary percentiles.
	// Default: 0.01
	SketchAccuracy float64 `yaml:"sketch_accuracy"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// JSON switches to JSON log lines.
	JSON bool `yaml:"json"`
}

// ConsoleConfig configures the operator console.
type ConsoleConfig struct {
	// Enabled starts the console on stdin.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Prompt is the interactive prompt prefix.
	// Default: "telemetry> "
	Prompt string `yaml:"prompt"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          config.DefaultListenAddress,
			MaxReportSize:   ByteSize(config.DefaultMaxReportSize),
			ReadTimeout:     Duration(config.DefaultReadTimeout),
			MalformedLimit:  config.DefaultMalformedLimit,
			MalformedWindow: Duration(config.DefaultMalformedWindow),
		},
		Discovery: DiscoveryConfig{
			Enabled:          true,
			Port:             config.DefaultDiscoveryPort,
			BroadcastAddress: config.DefaultBroadcastAddress,
			AdvertiseHost:    config.DefaultAdvertiseHost,
			Interval:         Duration(config.DefaultBroadcastInterval),
		},
		Store: StoreConfig{
			MirrorPath:     config.DefaultMirrorPath,
			SketchAccuracy: config.DefaultSketchAccuracy,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Console: ConsoleConfig{
			Enabled: true,
			Prompt:  "telemetry> ",
		},
	}
}

// =============================================================================
// Custom Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
// Plain integers are seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// ByteSize is a size in bytes that can be unmarshaled from YAML.
// Supports: "1KiB", "2 kB", or plain bytes.
type ByteSize int64

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("parse byte size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

// Bytes returns the size in bytes.
func (b ByteSize) Bytes() int64 {
	return int64(b)
}
