// Package config loads host settings for a simulation run.
//
// Settings are read from YAML with strict field checking and filled with
// defaults for anything left out:
//
//	speed: 1.5
//	target_fps: 12
//	tick_interval: 16ms
//	reduced_motion: false
//	log_level: debug
//	scenario: single-delivery
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pipesim/internal/logging"
	"github.com/roach88/pipesim/internal/render"
)

// Defaults.
const (
	DefaultSpeed        = 1.0
	DefaultTickInterval = 16 * time.Millisecond
	DefaultLogLevel     = "info"
)

// Settings holds host-side knobs. None of them change simulation semantics;
// speed is clamped again by the engine.
type Settings struct {
	Speed         float64       `yaml:"speed"`
	TargetFPS     int           `yaml:"target_fps"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	ReducedMotion bool          `yaml:"reduced_motion"`
	LogLevel      string        `yaml:"log_level"`

	// Pipeline is a directory of CUE files; empty means the built-in topology.
	Pipeline string `yaml:"pipeline,omitempty"`
	// Scenario is loaded at startup when set.
	Scenario string `yaml:"scenario,omitempty"`
	// Database is a SQLite path for the run recorder; empty disables recording.
	Database string `yaml:"database,omitempty"`
}

// Default returns the settings used when no file is given.
func Default() Settings {
	return Settings{
		Speed:        DefaultSpeed,
		TargetFPS:    render.DefaultTargetFPS,
		TickInterval: DefaultTickInterval,
		LogLevel:     DefaultLogLevel,
	}
}

// Load reads settings from path.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML settings over the defaults and validates the result.
// Unknown fields are rejected.
func Parse(data []byte) (Settings, error) {
	s := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks value ranges. Returns the first problem found.
func (s Settings) Validate() error {
	if math.IsNaN(s.Speed) || s.Speed <= 0 {
		return fmt.Errorf("speed must be positive, got %g", s.Speed)
	}
	if s.TargetFPS < render.MinTargetFPS || s.TargetFPS > render.MaxTargetFPS {
		return fmt.Errorf("target_fps must be in [%d, %d], got %d",
			render.MinTargetFPS, render.MaxTargetFPS, s.TargetFPS)
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", s.TickInterval)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}
