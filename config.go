package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the compiler driver's on-disk configuration, loaded from
// lispvm.toml in the working directory if present.
type Config struct {
	Output struct {
		Dir         string `toml:"dir"`
		HexFile     string `toml:"hex_file"`
		ListFile    string `toml:"list_file"`
		EmitListing bool   `toml:"emit_listing"`
	} `toml:"output"`
}

// DefaultConfig returns the configuration used when no lispvm.toml exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Output.Dir = "."
	cfg.Output.HexFile = "program.hex"
	cfg.Output.ListFile = "program.lst"
	cfg.Output.EmitListing = true
	return cfg
}

// LoadConfig reads configuration from path, falling back to DefaultConfig
// when the file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
