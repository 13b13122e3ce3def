// Package config loads and validates the service configuration from
// JSON. Configuration is read once at startup; components receive the
// pieces they need by value, not through ambient globals.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fhirfactory/pegacorn-communicate-iris-sub001/errors"
)

// Config is the complete service configuration.
type Config struct {
	Service   ServiceConfig   `json:"service"`
	NATS      NATSConfig      `json:"nats"`
	Identity  IdentityConfig  `json:"identity"`
	Directory DirectoryConfig `json:"directory"`
	Router    RouterConfig    `json:"router"`
	Ingest    IngestConfig    `json:"ingest"`
	Metrics   MetricsConfig   `json:"metrics"`
}

// ServiceConfig identifies the service instance.
type ServiceConfig struct {
	Name        string `json:"name"`
	Environment string `json:"environment,omitempty"`
}

// NATSConfig defines NATS connection settings.
type NATSConfig struct {
	URLs          []string      `json:"urls,omitempty"`
	MaxReconnects int           `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration `json:"reconnect_wait,omitempty"`
	Username      string        `json:"username,omitempty"`
	Password      string        `json:"password,omitempty"`
	Token         string        `json:"token,omitempty"`

	// IngressSubjectPrefix scopes the subjects the service consumes;
	// EgressSubject is where terminal units of work are delivered.
	IngressSubjectPrefix string `json:"ingress_subject_prefix,omitempty"`
	EgressSubject        string `json:"egress_subject,omitempty"`

	// KVBucket names the JetStream bucket persisting identity mappings.
	// Empty disables persistence.
	KVBucket string `json:"kv_bucket,omitempty"`
}

// IdentityConfig tunes the identity mapping caches.
type IdentityConfig struct {
	MappingTTL      time.Duration `json:"mapping_ttl,omitempty"`
	CleanupInterval time.Duration `json:"cleanup_interval,omitempty"`
}

// DirectoryConfig tunes the collaborator lookups and room classification.
type DirectoryConfig struct {
	LookupTimeout time.Duration `json:"lookup_timeout,omitempty"`
	RoleMarker    string        `json:"role_marker,omitempty"`
	ServiceMarker string        `json:"service_marker,omitempty"`
}

// RouterConfig tunes stimulus dispatch.
type RouterConfig struct {
	LaneCount      int           `json:"lane_count,omitempty"`
	QueueSize      int           `json:"queue_size,omitempty"`
	HandlerTimeout time.Duration `json:"handler_timeout,omitempty"`
	TimerPeriod    time.Duration `json:"timer_period,omitempty"`
}

// IngestConfig tunes the ingress worker pool.
type IngestConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`
}

// MetricsConfig controls the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "communicate-iris",
			Environment: "dev",
		},
		NATS: NATSConfig{
			URLs:                 []string{"nats://localhost:4222"},
			MaxReconnects:        -1,
			ReconnectWait:        2 * time.Second,
			IngressSubjectPrefix: "iris.ingress",
			EgressSubject:        "iris.egress",
			KVBucket:             "iris-identity",
		},
		Identity: IdentityConfig{
			MappingTTL:      30 * 24 * time.Hour,
			CleanupInterval: time.Minute,
		},
		Directory: DirectoryConfig{
			LookupTimeout: 5 * time.Second,
		},
		Router: RouterConfig{
			LaneCount:      16,
			QueueSize:      256,
			HandlerTimeout: 30 * time.Second,
			TimerPeriod:    60 * time.Second,
		},
		Ingest: IngestConfig{
			Workers:   8,
			QueueSize: 512,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// Load reads a configuration file and merges it over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config", "Load", "read "+path)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "config", "Load", "parse "+path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "config", "Validate", "service.name")
	}
	if len(c.NATS.URLs) == 0 {
		return errors.WrapFatal(errors.ErrMissingConfig, "config", "Validate", "nats.urls")
	}
	if c.NATS.EgressSubject == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "config", "Validate", "nats.egress_subject")
	}
	if c.Identity.MappingTTL < 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("identity.mapping_ttl %s is negative", c.Identity.MappingTTL))
	}
	if c.Directory.LookupTimeout <= 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			"directory.lookup_timeout must be positive")
	}
	if c.Router.LaneCount < 0 || c.Router.QueueSize < 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "config", "Validate",
			"router lane_count and queue_size must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "config", "Validate", "metrics.addr")
	}
	return nil
}
