package model

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the resolved iocwriter configuration
type Config struct {
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Watch       WatchConfig       `yaml:"watch" mapstructure:"watch"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ConcurrencyConfig controls parallel file loading
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"min=1,max=256"`
}

// CacheConfig controls the conversion cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // empty keeps the cache in memory
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl" validate:"gte=0"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl" validate:"gte=0"`
}

// OutputConfig controls console output and the text dump
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	Separator string `yaml:"separator" mapstructure:"separator" validate:"required"`
	Params    bool   `yaml:"params" mapstructure:"params"` // show parameters in dumps
}

// WatchConfig throttles conversions triggered by filesystem events
type WatchConfig struct {
	EventsPerSecond float64       `yaml:"events_per_second" mapstructure:"events_per_second" validate:"gt=0"`
	Burst           int           `yaml:"burst" mapstructure:"burst" validate:"min=1"`
	Settle          time.Duration `yaml:"settle" mapstructure:"settle" validate:"gte=0"` // wait for writers to finish
}

// LogConfig controls the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `yaml:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			Enabled:   false,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Output: OutputConfig{
			Separator: "  ",
			Params:    true,
		},
		Watch: WatchConfig{
			EventsPerSecond: 5,
			Burst:           10,
			Settle:          200 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

var validate = validator.New()

// Validate checks the configuration for out-of-range values
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
