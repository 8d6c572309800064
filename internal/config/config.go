package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Monitor configuration
	Monitor MonitorConfig `toml:"monitor"`

	// Recorder configuration
	Recorder RecorderConfig `toml:"recorder"`

	// Database configuration
	Database DatabaseConfig `toml:"database"`

	// Daemon configuration
	Daemon DaemonConfig `toml:"daemon"`

	// Log configuration
	Log LogConfig `toml:"log"`
}

// MonitorConfig holds sampling behaviour
type MonitorConfig struct {
	IntervalSeconds int    `toml:"interval_seconds"` // Spacing between ticks
	SuspendMinutes  int    `toml:"suspend_minutes"`  // Idle time before emission is suspended
	Display         string `toml:"display"`          // Empty means $DISPLAY
}

// RecorderConfig holds output sink configuration
type RecorderConfig struct {
	File string `toml:"file"` // Rotating log file, "~" is expanded
	Echo bool   `toml:"echo"` // Mirror every line to stderr
}

// DatabaseConfig holds the optional SQLite mirror
type DatabaseConfig struct {
	Path string `toml:"path"` // Empty disables the mirror
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `toml:"pid_file"`
}

// LogConfig holds diagnostic logging configuration
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn or error
	File  string `toml:"file"`  // Diagnostics of the background daemon
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Monitor: MonitorConfig{
			IntervalSeconds: 5,
			SuspendMinutes:  15,
		},
		Recorder: RecorderConfig{
			File: "~/.logs/xusing.log",
			Echo: true,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("/tmp/xusing-%d.pid", os.Getuid()),
		},
		Log: LogConfig{
			Level: "info",
			File:  fmt.Sprintf("/tmp/xusing-%d.log", os.Getuid()),
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Monitor.IntervalSeconds < 1 {
		return fmt.Errorf("interval must be at least 1 second, got %d", c.Monitor.IntervalSeconds)
	}

	if c.Monitor.SuspendMinutes < 0 {
		return fmt.Errorf("suspend threshold cannot be negative, got %d", c.Monitor.SuspendMinutes)
	}

	if c.Recorder.File == "" && !c.Recorder.Echo && c.Database.Path == "" {
		return fmt.Errorf("no output configured: set a file, enable echo or set a database path")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	if c.Log.File == "" {
		return fmt.Errorf("log file path cannot be empty")
	}

	return nil
}

// PollInterval returns the tick spacing
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// SuspendThreshold returns the idle duration at which emission is suspended
func (c *Config) SuspendThreshold() time.Duration {
	return time.Duration(c.Monitor.SuspendMinutes) * time.Minute
}

// RecorderPath returns the record file with a leading "~" expanded
func (c *Config) RecorderPath() (string, error) {
	return ExpandHome(c.Recorder.File)
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Monitor:
    Interval: %v
    Suspend Threshold: %v
    Display: %s
  Recorder:
    File: %s
    Echo: %v
  Database:
    Path: %s
  Daemon:
    PID File: %s
  Log:
    Level: %s
    File: %s`,
		c.PollInterval(),
		c.SuspendThreshold(),
		c.Monitor.Display,
		c.Recorder.File,
		c.Recorder.Echo,
		c.Database.Path,
		c.Daemon.PIDFile,
		c.Log.Level,
		c.Log.File,
	)
}
