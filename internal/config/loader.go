// Package config loads and validates the run configuration file.
//
// Example YAML:
//
//	host: http://localhost:3000
//	users: 100
//	spawnRate: 10
//	runTime: 60s
//	profiles:
//	  GameServerUser: {weight: 2}
//	  StressTestUser: {weight: 0}
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultHost      = "http://localhost:3000"
	DefaultUsers     = 1
	DefaultSpawnRate = 1.0
	DefaultTimeout   = 30 * time.Second
)

// Config is the run configuration.
type Config struct {
	Host      string   `yaml:"host,omitempty" json:"host,omitempty"`
	Users     int      `yaml:"users,omitempty" json:"users,omitempty"`
	SpawnRate float64  `yaml:"spawnRate,omitempty" json:"spawnRate,omitempty"`
	RunTime   Duration `yaml:"runTime,omitempty" json:"runTime,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	LogLevel  string   `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`

	// Profiles overrides per-profile settings, keyed by profile name.
	Profiles map[string]ProfileConfig `yaml:"profiles,omitempty" json:"profiles,omitempty"`
}

// ProfileConfig overrides one profile.
type ProfileConfig struct {
	// Weight of zero disables the profile.
	Weight *int `yaml:"weight,omitempty" json:"weight,omitempty"`
}

// Duration is a time.Duration that decodes from "90s"-style strings or a
// plain number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON renders the duration as a Go duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ParseDuration parses "30s", "1m30s" or a bare number of seconds.
// The empty string is zero.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use a number of seconds or a value like 30s, 5m, 1h", s)
	}
	return d, nil
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Users == 0 {
		cfg.Users = DefaultUsers
	}
	if cfg.SpawnRate == 0 {
		cfg.SpawnRate = DefaultSpawnRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = Duration(DefaultTimeout)
	}
}

// Load reads, schema-checks, decodes, defaults and validates a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates YAML configuration bytes.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
