// Package config is the application-level configuration store, in the
// shape of the teacher's app.AppConfig: a small JSON document loaded
// once at startup, narrowed to what this core actually needs — node
// endpoints, the default poll interval, and which device transport to
// use — rather than the teacher's multi-wallet/provider-list shape.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	Version string `json:"version"`

	Node      NodeConfig      `json:"node"`
	Transport TransportConfig `json:"transport"`
	Poll      PollConfig      `json:"poll"`
}

// NodeConfig names the node endpoints the facade talks to.
type NodeConfig struct {
	HTTPBaseURL  string        `json:"httpBaseUrl"`
	WebSocketURL string        `json:"webSocketUrl"`
	Timeout      time.Duration `json:"timeout"`
}

// TransportKind selects the device.Transport implementation.
type TransportKind string

const (
	TransportHID      TransportKind = "hid"
	TransportLoopback TransportKind = "loopback"
)

// TransportConfig selects and parameterizes the device transport.
type TransportConfig struct {
	Kind TransportKind `json:"kind"`
}

// PollConfig controls the default status-polling cadence.
type PollConfig struct {
	Interval time.Duration `json:"interval"`
}

// Default returns the configuration the demo CLI falls back to when
// no config file is given.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Node: NodeConfig{
			HTTPBaseURL:  "https://mainnet.radixdlt.com",
			WebSocketURL: "wss://mainnet.radixdlt.com/ws",
			Timeout:      15 * time.Second,
		},
		Transport: TransportConfig{Kind: TransportHID},
		Poll:      PollConfig{Interval: time.Second},
	}
}

// Load reads and parses a Config from path on top of Default, so any
// field the file leaves out keeps its Default value and a partial
// config file is still usable. A field the file sets explicitly, even
// to a zero value, keeps the file's value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
