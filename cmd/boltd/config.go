package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is boltd's YAML-file configuration, overridable by serve's flags.
type Config struct {
	Addr        string        `yaml:"addr"`
	MaxSessions int           `yaml:"max_sessions"`
	IdleTimeout time.Duration `yaml:"-"`
	DataDir     string        `yaml:"data_dir"`
	RequireAuth bool          `yaml:"require_auth"`
}

// UnmarshalYAML parses idle_timeout as a Go duration string ("30s", "5m")
// rather than yaml.v3's default int64 encoding for time.Duration.
func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	type rawConfig struct {
		Addr        string `yaml:"addr"`
		MaxSessions int    `yaml:"max_sessions"`
		IdleTimeout string `yaml:"idle_timeout"`
		DataDir     string `yaml:"data_dir"`
		RequireAuth bool   `yaml:"require_auth"`
	}
	var raw rawConfig
	if err := unmarshal(&raw); err != nil {
		return err
	}

	c.Addr = raw.Addr
	c.MaxSessions = raw.MaxSessions
	c.DataDir = raw.DataDir
	c.RequireAuth = raw.RequireAuth

	if raw.IdleTimeout != "" {
		d, err := time.ParseDuration(raw.IdleTimeout)
		if err != nil {
			return fmt.Errorf("parsing idle_timeout %q: %w", raw.IdleTimeout, err)
		}
		c.IdleTimeout = d
	}
	return nil
}

// defaultConfig mirrors bolt.DefaultConfig's address, with an empty
// DataDir meaning the in-memory demo backend.
func defaultConfig() *Config {
	return &Config{Addr: "127.0.0.1:7687"}
}

// loadConfig reads path if non-empty, overlaying its values onto
// defaultConfig. A missing path is not an error; it is how boltd runs
// entirely from flags and defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}
