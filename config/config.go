// Package config loads optional YAML-backed endpoint defaults — log level,
// a bootstrap forwarder table, and the listen address — for the
// cmd/grainrpc-relay demo. The endpoint itself still takes options
// programmatically; this is purely an ambient convenience for the CLI
// front-end.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ForwarderSpec describes one bootstrap forwarder entry: route fwdName to
// the peer named Peer, rewriting fwdDest to FwdDest.
type ForwarderSpec struct {
	Name    string `yaml:"name"`
	Peer    string `yaml:"peer"`
	FwdDest string `yaml:"fwdDest"`
}

// Config is the on-disk shape loaded by cmd/grainrpc-relay.
type Config struct {
	LogLevel   string          `yaml:"logLevel"`
	Forwarders []ForwarderSpec `yaml:"forwarders"`
	ListenAddr string          `yaml:"listenAddr"`
}

// Default returns the built-in defaults used when no config file is given.
func Default() *Config {
	return &Config{LogLevel: "info", ListenAddr: ":8377"}
}

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
