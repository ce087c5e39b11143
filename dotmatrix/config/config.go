// Package config loads the emulator's TOML configuration, writing the
// defaults on first run.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the user-facing configuration file.
type Config struct {
	Controls Controls `toml:"controls"`
	Display  Display  `toml:"display"`
	Speed    Speed    `toml:"speed"`
}

// Controls maps joypad inputs to host key names; the backend resolves the
// names against its own key table.
type Controls struct {
	Up     string `toml:"up"`
	Down   string `toml:"down"`
	Left   string `toml:"left"`
	Right  string `toml:"right"`
	A      string `toml:"a"`
	B      string `toml:"b"`
	Select string `toml:"select"`
	Start  string `toml:"start"`
}

type Display struct {
	Scale     int    `toml:"scale"`
	Palette   string `toml:"palette"`
	Scanlines bool   `toml:"scanlines"`
}

type Speed struct {
	// FastForwardMultiplier is a host pacing hint: 0 = uncapped, 2 = 2x.
	FastForwardMultiplier int `toml:"fast_forward_multiplier"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Controls: Controls{
			Up:     "Up",
			Down:   "Down",
			Left:   "Left",
			Right:  "Right",
			A:      "Z",
			B:      "X",
			Select: "Backspace",
			Start:  "Enter",
		},
		Display: Display{
			Scale:   4,
			Palette: "Classic",
		},
		Speed: Speed{},
	}
}

// Path returns the config file location under the user config directory.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "dotmatrix", "config.toml")
}

// Load reads the config file, falling back to (and writing) defaults when
// it is missing. A malformed file logs a warning and yields defaults
// without overwriting the user's file.
func Load() Config {
	path := Path()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if werr := writeDefaults(path, cfg); werr != nil {
			slog.Warn("could not write default config", "path", path, "error", werr)
		}
		return cfg
	}
	if err != nil {
		slog.Warn("could not read config", "path", path, "error", err)
		return Default()
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		slog.Warn("could not parse config, using defaults", "path", path, "error", err)
		return Default()
	}
	return cfg
}

func writeDefaults(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	slog.Info("wrote default config", "path", path)
	return nil
}
