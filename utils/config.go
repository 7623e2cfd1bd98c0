// File: utils/config.go
package utils

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configurable simulation parameters.
type Config struct {
	// Grid
	Width  int `yaml:"width" json:"width"`   // Number of cells along X (at least 3)
	Height int `yaml:"height" json:"height"` // Number of cells along Y (at least 3)

	// Cell timing
	PacingInterval time.Duration `yaml:"pacingInterval" json:"pacingInterval"` // Sleep at the top of every cell iteration
	LifePeriod     time.Duration `yaml:"lifePeriod" json:"lifePeriod"`         // A cell older than this dies on its next evaluation

	// Initial state
	Seed        int64   `yaml:"seed" json:"seed"`               // Seed for the random initial state
	Density     float64 `yaml:"density" json:"density"`         // Chance (0.0 to 1.0) of a cell starting alive
	Pattern     string  `yaml:"pattern" json:"pattern"`         // Named pattern, overrides the random state
	PatternFile string  `yaml:"patternFile" json:"patternFile"` // Plaintext .cells file, overrides Pattern

	// Consumers
	RenderInterval    time.Duration `yaml:"renderInterval" json:"renderInterval"`       // Terminal redraw period
	BroadcastInterval time.Duration `yaml:"broadcastInterval" json:"broadcastInterval"` // Websocket push period
	ListenAddr        string        `yaml:"listenAddr" json:"listenAddr"`               // HTTP listen address
	StatsInterval     time.Duration `yaml:"statsInterval" json:"statsInterval"`         // Population sampling period
	StatsFile         string        `yaml:"statsFile" json:"statsFile"`                 // CSV output, empty disables sampling

	// Process
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"` // Max wait for cells to finish after stop
	LogLevel        string        `yaml:"logLevel" json:"logLevel"`               // debug, info, warn or error
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() Config {
	return Config{
		// Grid
		Width:  40,
		Height: 20,

		// Cell timing
		PacingInterval: 1 * time.Millisecond,
		LifePeriod:     2 * time.Second,

		// Initial state
		Seed:    1,
		Density: 0.35,

		// Consumers
		RenderInterval:    100 * time.Millisecond,
		BroadcastInterval: 100 * time.Millisecond,
		ListenAddr:        ":3001",
		StatsInterval:     1 * time.Second,

		// Process
		ShutdownTimeout: 2 * time.Second,
		LogLevel:        "info",
	}
}

// LoadConfig overlays the YAML file at path on DefaultConfig.
// Only keys present in the file are overwritten. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values the simulation cannot run without.
func (c Config) Validate() error {
	switch {
	case c.Width < 3 || c.Height < 3:
		return fmt.Errorf("%w: grid %dx%d is smaller than 3x3", ErrInvalidConfig, c.Width, c.Height)
	case c.PacingInterval <= 0:
		return fmt.Errorf("%w: pacingInterval must be positive", ErrInvalidConfig)
	case c.LifePeriod <= 0:
		return fmt.Errorf("%w: lifePeriod must be positive", ErrInvalidConfig)
	case c.Density < 0 || c.Density > 1:
		return fmt.Errorf("%w: density %v outside [0,1]", ErrInvalidConfig, c.Density)
	case c.RenderInterval <= 0 || c.BroadcastInterval <= 0 || c.StatsInterval <= 0:
		return fmt.Errorf("%w: consumer intervals must be positive", ErrInvalidConfig)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
