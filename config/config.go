// Package config holds the CLI's persisted default behaviour, loaded
// from a TOML file and overridden per-invocation by flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config represents the assembler's default command-line behaviour.
type Config struct {
	Assemble struct {
		Clamp       bool `toml:"clamp"`
		Quiet       bool `toml:"quiet"`
		SpinReals   bool `toml:"spin_reals"`
		NoSkipPad   bool `toml:"no_skip_pad"`
		Binary      bool `toml:"binary"`
		ProgramSlot int  `toml:"program_slot"`
		ErrorLimit  int  `toml:"error_limit"`
	} `toml:"assemble"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Assemble.Clamp = false
	cfg.Assemble.Quiet = false
	cfg.Assemble.SpinReals = false
	cfg.Assemble.NoSkipPad = false
	cfg.Assemble.Binary = false
	cfg.Assemble.ProgramSlot = -1 // -1 = no -p override
	cfg.Assemble.ErrorLimit = 10

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\fv1asm\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "fv1asm")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/fv1asm/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "fv1asm")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file. A missing
// file is not an error: it yields the default configuration, matching
// a fresh pedal-board build pipeline with no prior `-config` save.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
