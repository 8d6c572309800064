package config

import (
	"os"
	"strconv"
)

// LoadFromEnv loads configuration from environment variables
// Environment variables override file and default values
func LoadFromEnv(cfg *Config) {
	// Monitor configuration
	if interval := os.Getenv("XUSING_INTERVAL"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil && seconds > 0 {
			cfg.Monitor.IntervalSeconds = seconds
		}
	}

	if suspend := os.Getenv("XUSING_SUSPEND"); suspend != "" {
		if minutes, err := strconv.Atoi(suspend); err == nil && minutes >= 0 {
			cfg.Monitor.SuspendMinutes = minutes
		}
	}

	if display := os.Getenv("XUSING_DISPLAY"); display != "" {
		cfg.Monitor.Display = display
	}

	// Recorder configuration
	if file := os.Getenv("XUSING_FILE"); file != "" {
		cfg.Recorder.File = file
	}

	if echo := os.Getenv("XUSING_ECHO"); echo != "" {
		if val, err := strconv.ParseBool(echo); err == nil {
			cfg.Recorder.Echo = val
		}
	}

	// Database configuration
	if dbPath := os.Getenv("XUSING_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	// Daemon configuration
	if pidFile := os.Getenv("XUSING_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if level := os.Getenv("XUSING_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if logFile := os.Getenv("XUSING_LOG_FILE"); logFile != "" {
		cfg.Log.File = logFile
	}
}

// New creates a Config from defaults, the config file at path (if it
// exists) and the environment, in that order of precedence.
func New(path string) (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}
	LoadFromEnv(cfg)
	return cfg, nil
}
