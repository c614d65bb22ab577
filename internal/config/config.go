// Package config loads the server process configuration from defaults,
// environment variables and command-line flags, in that order of
// increasing priority.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Transport selectors.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// EnvPrefix namespaces the server's own environment variables, distinct
// from the BAUPLAN_* credential variables read by the provisioner.
const EnvPrefix = "BAUPLAN_MCP_"

// Config is the resolved process configuration.
type Config struct {
	// Transport selects how the server speaks MCP: "stdio" or "http".
	Transport string `koanf:"transport"`
	// Host and Port bind the HTTP listener; ignored for stdio.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	// Profile names the ~/.bauplan/config.yml profile to provision
	// clients from. Empty means the active profile.
	Profile string `koanf:"profile"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// Addr returns the HTTP bind address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load resolves the configuration. flags may be nil; only flags the
// user actually set override the environment.
func Load(flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"transport": TransportStdio,
		"host":      "0.0.0.0",
		"port":      8000,
		"profile":   "",
		"log_level": "info",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// BAUPLAN_MCP_LOG_LEVEL -> log_level
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Transport = strings.ToLower(cfg.Transport)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated fields and the port range.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport %q, must be %q or %q", c.Transport, TransportStdio, TransportHTTP)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q, must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
