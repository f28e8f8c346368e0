// Package config provides TOML configuration loading for posecast.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Default multicast endpoints, one group per message kind.
const (
	DefaultPoses    = "239.0.0.22:7072"
	DefaultClouds   = "239.0.0.22:7075"
	DefaultCommands = "239.0.0.22:7076"
)

// Config is the top-level configuration structure.
type Config struct {
	Multicast MulticastConfig `toml:"multicast"`
	Log       LogConfig       `toml:"log"`
	Monitor   MonitorConfig   `toml:"monitor"`
	Publisher PublisherConfig `toml:"publisher"`
	Recorder  RecorderConfig  `toml:"recorder"`
}

// MulticastConfig holds the group endpoint for each message kind.
type MulticastConfig struct {
	Poses    string `toml:"poses"`
	Clouds   string `toml:"clouds"`
	Commands string `toml:"commands"`
}

// LogConfig selects the log level and output format ("console" or "json").
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MonitorConfig holds settings for the headless viewer.
type MonitorConfig struct {
	Tick        string `toml:"tick"`
	RPCSocket   string `toml:"rpc_socket"`
	StatusAddr  string `toml:"status_addr"`
	ClearScreen bool   `toml:"clear_screen"`
}

// PublisherConfig holds the pacing of the demo publishers.
type PublisherConfig struct {
	Interval         string `toml:"interval"`
	HostloadInterval string `toml:"hostload_interval"`
}

// RecorderConfig holds settings for capture sessions.
type RecorderConfig struct {
	DBPath    string `toml:"db_path"`
	Retention string `toml:"retention"`
}

// ParseTick parses the monitor tick string to a time.Duration.
func (m *MonitorConfig) ParseTick() (time.Duration, error) {
	return parseDuration(m.Tick, 50*time.Millisecond)
}

// ParseInterval parses the publisher interval string to a time.Duration.
func (p *PublisherConfig) ParseInterval() (time.Duration, error) {
	return parseDuration(p.Interval, 20*time.Millisecond)
}

// ParseHostloadInterval parses the hostload interval string to a time.Duration.
func (p *PublisherConfig) ParseHostloadInterval() (time.Duration, error) {
	return parseDuration(p.HostloadInterval, time.Second)
}

// ParseRetention parses the recorder retention string to a time.Duration.
func (r *RecorderConfig) ParseRetention() (time.Duration, error) {
	return parseDuration(r.Retention, 7*24*time.Hour)
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.expandPaths()
	return cfg
}

// Load reads and parses a TOML config file, applying defaults for unset values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(cfg)
	cfg.expandPaths()
	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when path does not
// exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func (cfg *Config) expandPaths() {
	cfg.Monitor.RPCSocket = ExpandPath(cfg.Monitor.RPCSocket)
	cfg.Recorder.DBPath = ExpandPath(cfg.Recorder.DBPath)
}

// ExpandPath expands tilde (~) to the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		return path
	}
	if path == "~" {
		return usr.HomeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(usr.HomeDir, path[2:])
	}
	return path
}

func applyDefaults(cfg *Config) {

	// Multicast defaults
	if cfg.Multicast.Poses == "" {
		cfg.Multicast.Poses = DefaultPoses
	}
	if cfg.Multicast.Clouds == "" {
		cfg.Multicast.Clouds = DefaultClouds
	}
	if cfg.Multicast.Commands == "" {
		cfg.Multicast.Commands = DefaultCommands
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	// Monitor defaults
	if cfg.Monitor.Tick == "" {
		cfg.Monitor.Tick = "50ms"
	}
	if cfg.Monitor.RPCSocket == "" {
		cfg.Monitor.RPCSocket = filepath.Join(os.TempDir(), "posecast.sock")
	}

	// Publisher defaults
	if cfg.Publisher.Interval == "" {
		cfg.Publisher.Interval = "20ms"
	}
	if cfg.Publisher.HostloadInterval == "" {
		cfg.Publisher.HostloadInterval = "1s"
	}

	// Recorder defaults
	if cfg.Recorder.DBPath == "" {
		cfg.Recorder.DBPath = "~/.local/share/posecast/recordings.db"
	}
	if cfg.Recorder.Retention == "" {
		cfg.Recorder.Retention = "168h"
	}
}

// Template is written by "posecast edit" when the file does not exist yet.
const Template = `[multicast]
  poses    = "239.0.0.22:7072"
  clouds   = "239.0.0.22:7075"
  commands = "239.0.0.22:7076"

[log]
  level  = "info"
  format = "console"   # or "json"

[monitor]
  tick         = "50ms"
  rpc_socket   = "/tmp/posecast.sock"
  status_addr  = ""    # e.g. "127.0.0.1:9107" to serve /metrics and /api
  clear_screen = true

[publisher]
  interval          = "20ms"
  hostload_interval = "1s"

[recorder]
  db_path   = "~/.local/share/posecast/recordings.db"
  retention = "168h"
`
