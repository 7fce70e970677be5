package vm

import (
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds the VM's tunable limits and precision. GlobalMax sizes the
// global table; SET_GLOBAL/PUSH_GLOBAL take a single-byte index, so
// bytecode can only address slots 0-255 whatever the table size.
type Config struct {
	StackMax     int     `yaml:"stack_max"`
	GlobalMax    int     `yaml:"global_max"`
	NumPrecision float64 `yaml:"num_precision"`
	TraceLevel   string  `yaml:"trace_level"` // "", "debug"
}

// DefaultConfig returns a 256-slot stack, a 256-slot global table, and a
// 1e-7 numeric precision.
func DefaultConfig() Config {
	return Config{
		StackMax:     256,
		GlobalMax:    256,
		NumPrecision: numPrecision,
	}
}

// LoadConfig reads a YAML configuration file, falling back to
// DefaultConfig's zero-value fields for anything left unset.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.StackMax <= 0 {
		cfg.StackMax = DefaultConfig().StackMax
	}
	if cfg.GlobalMax <= 0 {
		cfg.GlobalMax = DefaultConfig().GlobalMax
	}
	if cfg.NumPrecision == 0 {
		cfg.NumPrecision = numPrecision
	}
	return cfg, nil
}
