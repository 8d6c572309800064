package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	defaultConfigDir  = ".config/xusing"
	defaultConfigName = "config.toml"
)

// DefaultConfigPath returns ~/.config/xusing/config.toml, or $XUSING_CONFIG
// when set.
func DefaultConfigPath() string {
	if p := os.Getenv("XUSING_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(home, defaultConfigDir, defaultConfigName)
}

// LoadFile overlays the TOML file at path onto cfg. A missing file is not an
// error; keys absent from the file keep their current values.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
