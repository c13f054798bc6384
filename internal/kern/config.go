package kern

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"

	"tinyrt/internal/board"
)

// Config mirrors config.yml. Fields left at zero are filled from the
// selected board profile (ApplyBoard) or from kernel fallbacks (New).
type Config struct {
	Board        string `yaml:"board"`         // profile supplying defaults
	TickMS       int    `yaml:"tick_ms"`       // scheduler tick period
	HeapBytes    int    `yaml:"heap_bytes"`    // budget task stacks are carved from
	DefaultStack int    `yaml:"default_stack"` // stack for specs that leave it zero
}

func defaultConfig() Config {
	return Config{
		Board:        "esp32",
		DefaultStack: 4096,
	}
}

// Load reads YAML and overrides defaults. An empty path or a missing file
// yields defaults only; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("kern: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("kern: parse config %s: %w", path, err)
	}

	// sanity clamps
	if cfg.TickMS < 0 {
		cfg.TickMS = 0
	}
	if cfg.HeapBytes < 0 {
		cfg.HeapBytes = 0
	}
	if cfg.DefaultStack > 0 && cfg.DefaultStack < MinStackBytes {
		cfg.DefaultStack = MinStackBytes
	}

	return cfg, nil
}

// ApplyBoard fills unset timebase and memory fields from the profile.
func (c *Config) ApplyBoard(p board.Profile) {
	if c.TickMS <= 0 {
		c.TickMS = p.TickMS
	}
	if c.HeapBytes <= 0 {
		c.HeapBytes = p.HeapBytes
	}
}
