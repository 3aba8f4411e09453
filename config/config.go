// Package config loads the per-tier settings each cmd/* binary needs:
// listen addresses, the peer to dial on startup, poll intervals and
// worker counts. Load starts from DefaultConfig and only overrides the
// fields present in the YAML document.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"
)

// UniverseConfig configures the root broker.
type UniverseConfig struct {
	ListenAddr         string        `yaml:"listenAddr"`
	CheckpointPath     string        `yaml:"checkpointPath"`
	CheckpointInterval time.Duration `yaml:"checkpointInterval"`
	Recover            bool          `yaml:"recover"`
}

// SpaceConfig configures an intermediate scheduler.
type SpaceConfig struct {
	ListenAddr   string        `yaml:"listenAddr"`
	UniverseAddr string        `yaml:"universeAddr"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// ComputerConfig configures a worker process.
type ComputerConfig struct {
	ListenAddr   string        `yaml:"listenAddr"`
	SpaceAddr    string        `yaml:"spaceAddr"`
	WorkerCount  int           `yaml:"workerCount"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// ServerConfig configures a client process.
type ServerConfig struct {
	ListenAddr   string        `yaml:"listenAddr"`
	UniverseAddr string        `yaml:"universeAddr"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Config is the serialisable union of every tier's settings. A deployment
// only ever populates the section its binary needs; the zero value for
// every other section is simply unused.
type Config struct {
	Universe UniverseConfig `yaml:"universe"`
	Space    SpaceConfig    `yaml:"space"`
	Computer ComputerConfig `yaml:"computer"`
	Server   ServerConfig   `yaml:"server"`
}

// DefaultConfig returns a Config populated with fixed defaults: a 10s
// checkpoint cadence and 100ms polling across every tier.
func DefaultConfig() *Config {
	return &Config{
		Universe: UniverseConfig{
			ListenAddr:         ":9000",
			CheckpointPath:     "recovery/universe.gob",
			CheckpointInterval: 10 * time.Second,
		},
		Space: SpaceConfig{
			ListenAddr:   ":9100",
			PollInterval: 100 * time.Millisecond,
		},
		Computer: ComputerConfig{
			ListenAddr:   ":9200",
			WorkerCount:  4,
			PollInterval: 100 * time.Millisecond,
		},
		Server: ServerConfig{
			PollInterval: 100 * time.Millisecond,
		},
	}
}

// Load reads and decodes a YAML config file at path, backed by afs so the
// same binary can read from local disk or a remote store without this
// package knowing which (mirrors checkpoint.Service's storage
// abstraction). Values not present in the file keep DefaultConfig's.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Validate returns an error naming the first invalid setting, or nil.
func (c *UniverseConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("universe.listenAddr must be set")
	}
	if c.CheckpointInterval <= 0 {
		return fmt.Errorf("universe.checkpointInterval must be > 0")
	}
	return nil
}

// Validate returns an error naming the first invalid setting, or nil.
func (c *SpaceConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("space.listenAddr must be set")
	}
	if c.UniverseAddr == "" {
		return fmt.Errorf("space.universeAddr must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("space.pollInterval must be > 0")
	}
	return nil
}

// Validate returns an error naming the first invalid setting, or nil.
func (c *ComputerConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("computer.listenAddr must be set")
	}
	if c.SpaceAddr == "" {
		return fmt.Errorf("computer.spaceAddr must be set")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("computer.workerCount must be > 0")
	}
	return nil
}

// Validate returns an error naming the first invalid setting, or nil.
func (c *ServerConfig) Validate() error {
	if c.UniverseAddr == "" {
		return fmt.Errorf("server.universeAddr must be set")
	}
	return nil
}
