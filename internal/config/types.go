package config

import "time"

// Config is the complete deskbridge configuration, constructed once at startup
// and passed by reference to every component.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Paths   PathsConfig   `yaml:"paths"`
	App     AppConfig     `yaml:"app"`
	Interop InteropConfig `yaml:"interop,omitempty"`
}

// ServiceConfig defines timing and logging for the bridge daemon and client.
type ServiceConfig struct {
	Name               string        `yaml:"name"`
	LogLevel           string        `yaml:"log_level"`
	HeartbeatInterval  time.Duration `yaml:"heartbeat_interval"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	GracePeriod        time.Duration `yaml:"grace_period"`
	SettleDelay        time.Duration `yaml:"settle_delay"`
	ResultPollInterval time.Duration `yaml:"result_poll_interval"`
	ResultWaitTimeout  time.Duration `yaml:"result_wait_timeout"`
	StatusStaleAfter   time.Duration `yaml:"status_stale_after"`
}

// PathsConfig locates the queue directory and the managed app's config file.
type PathsConfig struct {
	// BridgeDir holds pending/, completed/, failed/, the status file, the
	// history database and the PID lock.
	BridgeDir string `yaml:"bridge_dir"`

	// ConfigFile is the managed application's JSON configuration.
	ConfigFile string `yaml:"config_file"`

	// BackupDir receives pre-mutation snapshots. Defaults to the directory
	// containing ConfigFile.
	BackupDir string `yaml:"backup_dir,omitempty"`
}

// AppConfig identifies the managed application.
type AppConfig struct {
	// Executable is the full path used both to match running processes and
	// to launch new instances.
	Executable string `yaml:"executable"`
}

// InteropConfig configures the auxiliary host/guest path translation helpers.
type InteropConfig struct {
	MountRoot    string `yaml:"mount_root,omitempty"`
	ShellCommand string `yaml:"shell_command,omitempty"`
}
