// Package config loads the project configuration file.
package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// DefaultFile is the project configuration file name.
const DefaultFile = "uascm.hcl"

// Config is the decoded project configuration.
type Config struct {
	Project ProjectConfig `hcl:"project,block"`
	Server  ServerConfig  `hcl:"server,block"`
	Sync    *SyncConfig   `hcl:"sync,block"`
	Watch   *WatchConfig  `hcl:"watch,block"`
}

// ProjectConfig names the source directory and the node subtrees the project
// tracks.
type ProjectConfig struct {
	Source string   `hcl:"source"`
	Nodes  []string `hcl:"nodes"`
}

// ServerConfig locates the remote bridge.
type ServerConfig struct {
	Endpoint       string `hcl:"endpoint"`
	Token          string `hcl:"token,optional"`
	ConnectTimeout string `hcl:"connect_timeout,optional"`
}

// SyncConfig tunes batch operations.
type SyncConfig struct {
	Concurrency  int      `hcl:"concurrency,optional"`
	MaxAttempts  int      `hcl:"max_attempts,optional"`
	Transformers []string `hcl:"transformers,optional"`
}

// WatchConfig tunes continuous sync.
type WatchConfig struct {
	Debounce   string `hcl:"debounce,optional"`
	ReloadAddr string `hcl:"reload_addr,optional"`
}

// Load reads and validates a project configuration file.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if cfg.Project.Source == "" {
		return nil, fmt.Errorf("load %s: project.source is required", path)
	}
	if cfg.Server.Endpoint == "" {
		return nil, fmt.Errorf("load %s: server.endpoint is required", path)
	}
	if cfg.Sync == nil {
		cfg.Sync = &SyncConfig{}
	}
	if cfg.Sync.Concurrency <= 0 {
		cfg.Sync.Concurrency = 8
	}
	if cfg.Sync.MaxAttempts <= 0 {
		cfg.Sync.MaxAttempts = 3
	}
	if len(cfg.Sync.Transformers) == 0 {
		cfg.Sync.Transformers = []string{"display", "script", "quickdynamic"}
	}
	if cfg.Watch == nil {
		cfg.Watch = &WatchConfig{}
	}
	if cfg.Watch.ReloadAddr == "" {
		cfg.Watch.ReloadAddr = "localhost:35729"
	}
	return &cfg, nil
}

// ConnectTimeout parses the configured connect timeout, defaulting to 10s.
func (c *Config) ConnectTimeout() time.Duration {
	return parseDuration(c.Server.ConnectTimeout, 10*time.Second)
}

// Debounce parses the configured watch debounce, defaulting to 100ms.
func (c *Config) Debounce() time.Duration {
	return parseDuration(c.Watch.Debounce, 100*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
