package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults returns a Config rooted under the user config directory.
func Defaults() *Config {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	root := filepath.Join(base, "deskbridge")

	return &Config{
		Service: ServiceConfig{
			Name:               "deskbridge",
			LogLevel:           "info",
			HeartbeatInterval:  5 * time.Second,
			SweepInterval:      5 * time.Second,
			GracePeriod:        5 * time.Second,
			SettleDelay:        2 * time.Second,
			ResultPollInterval: 500 * time.Millisecond,
			ResultWaitTimeout:  10 * time.Second,
			StatusStaleAfter:   15 * time.Second,
		},
		Paths: PathsConfig{
			BridgeDir:  filepath.Join(root, "bridge"),
			ConfigFile: filepath.Join(root, "app_config.json"),
		},
	}
}

// Load reads a YAML config file over Defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDerived fills fields whose defaults depend on other fields.
func (c *Config) applyDerived() {
	if c.Paths.BackupDir == "" && c.Paths.ConfigFile != "" {
		c.Paths.BackupDir = filepath.Dir(c.Paths.ConfigFile)
	}
}

// Validate checks the loaded configuration for unusable values.
func (c *Config) Validate() error {
	if c.Paths.BridgeDir == "" {
		return fmt.Errorf("paths.bridge_dir is empty")
	}
	if c.Paths.ConfigFile == "" {
		return fmt.Errorf("paths.config_file is empty")
	}
	if c.Service.HeartbeatInterval <= 0 {
		return fmt.Errorf("service.heartbeat_interval must be positive")
	}
	if c.Service.SweepInterval <= 0 {
		return fmt.Errorf("service.sweep_interval must be positive")
	}
	if c.Service.GracePeriod < 0 || c.Service.SettleDelay < 0 {
		return fmt.Errorf("service grace_period and settle_delay must not be negative")
	}
	if c.Service.ResultPollInterval <= 0 {
		return fmt.Errorf("service.result_poll_interval must be positive")
	}
	return nil
}

// StatusFile is the heartbeat record path inside the bridge directory.
func (c *Config) StatusFile() string {
	return filepath.Join(c.Paths.BridgeDir, "bridge_status.json")
}

// HistoryFile is the SQLite action history path inside the bridge directory.
func (c *Config) HistoryFile() string {
	return filepath.Join(c.Paths.BridgeDir, "history.db")
}

// LockFile is the single-instance PID lock path inside the bridge directory.
func (c *Config) LockFile() string {
	return filepath.Join(c.Paths.BridgeDir, "bridged.pid")
}
