// Package loader handles configuration file loading, validation, and
// conversion into the per-component configs.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Validating the result
//   - Converting between YAML and internal representations
package loader

import (
	"fmt"
	"os"

	"github.com/xtxerr/telemetryd/internal/discovery"
	"github.com/xtxerr/telemetryd/internal/errors"
	"github.com/xtxerr/telemetryd/internal/server"
	"github.com/xtxerr/telemetryd/internal/store"
	"github.com/xtxerr/telemetryd/internal/validation"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file on top of DefaultConfig.
// The returned error wraps os.ErrNotExist when the file is missing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault is Load, falling back to DefaultConfig when the file does
// not exist.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	// Server validation
	servicePort := 0
	if cfg.Server.Listen == "" {
		errs.AddField("server.listen", "cannot be empty")
	} else if ep, err := validation.ParseEndpoint(cfg.Server.Listen, validation.ListenRules()); err != nil {
		errs.AddField("server.listen", err.Error())
	} else {
		servicePort = ep.Port
	}
	if cfg.Server.MaxReportSize <= 0 {
		errs.AddField("server.max_report_size", "must be positive")
	}
	if cfg.Server.ReadTimeout < 0 {
		errs.AddField("server.read_timeout", "cannot be negative")
	}
	if cfg.Server.MalformedLimit < 0 {
		errs.AddField("server.malformed_limit", "cannot be negative")
	}

	// Discovery validation (if enabled)
	if cfg.Discovery.Enabled {
		if err := validation.ValidatePort(cfg.Discovery.Port, false); err != nil {
			errs.AddField("discovery.port", err.Error())
		} else if cfg.Discovery.Port == servicePort {
			errs.AddField("discovery.port", "must differ from the service port")
		}
		if cfg.Discovery.Interval.Duration() <= 0 {
			errs.AddField("discovery.interval", "must be positive")
		}
		if err := validation.ValidateHost(cfg.Discovery.BroadcastAddress, validation.DefaultHostRules()); err != nil {
			errs.AddField("discovery.broadcast_address", err.Error())
		}
		if cfg.Discovery.AdvertiseHost != "" {
			if err := validation.ValidateHost(cfg.Discovery.AdvertiseHost, validation.LenientHostRules()); err != nil {
				errs.AddField("discovery.advertise_host", err.Error())
			}
		}
	}

	// Store validation
	if cfg.Store.MirrorPath == "" {
		errs.AddMissing("store.mirror_path")
	}
	if cfg.Store.SketchAccuracy <= 0 || cfg.Store.SketchAccuracy >= 1 {
		errs.AddField("store.sketch_accuracy", "must be in (0, 1)")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs.AddField("logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level))
	}

	return errs.Err()
}

// =============================================================================
// Conversion: Config → Component Configs
// =============================================================================

// ServicePort returns the port of server.listen, or 0 if it has none.
func (c *Config) ServicePort() int {
	ep, err := validation.ParseEndpoint(c.Server.Listen, validation.ListenRules())
	if err != nil {
		return 0
	}
	return ep.Port
}

// ToServerConfig converts the server section.
func ToServerConfig(cfg *Config, st server.Merger) *server.Config {
	return &server.Config{
		Store:           st,
		Listen:          cfg.Server.Listen,
		MaxReportSize:   int(cfg.Server.MaxReportSize.Bytes()),
		ReadTimeout:     cfg.Server.ReadTimeout.Duration(),
		MalformedLimit:  cfg.Server.MalformedLimit,
		MalformedWindow: cfg.Server.MalformedWindow.Duration(),
	}
}

// ToDiscoveryConfig converts the discovery section. servicePort is the
// port the acceptor actually bound.
func ToDiscoveryConfig(cfg *Config, servicePort int) *discovery.Config {
	return &discovery.Config{
		Port:             cfg.Discovery.Port,
		BroadcastAddress: cfg.Discovery.BroadcastAddress,
		ServicePort:      servicePort,
		AdvertiseHost:    cfg.Discovery.AdvertiseHost,
		Interval:         cfg.Discovery.Interval.Duration(),
	}
}

// ToStoreConfig converts the store section.
func ToStoreConfig(cfg *Config) *store.Config {
	return &store.Config{
		MirrorPath:     cfg.Store.MirrorPath,
		SketchAccuracy: cfg.Store.SketchAccuracy,
	}
}
