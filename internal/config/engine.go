package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/call-scheduler/internal/scheduler"
)

// EngineSettings is the engine tuning after applying the YAML overlay.
type EngineSettings struct {
	Engine scheduler.Config
	// Seed is only meaningful when SeedSet is true.
	Seed    uint64
	SeedSet bool
}

// engineFile mirrors the tuning YAML. Absent keys keep the defaults.
type engineFile struct {
	MaxAttempts    *int    `yaml:"max_attempts"`
	MinGap         *string `yaml:"min_gap"`
	MaxGap         *string `yaml:"max_gap"`
	JitterWindow   *string `yaml:"jitter_window"`
	PreferredHours []int   `yaml:"preferred_hours"`
	Seed           *uint64 `yaml:"seed"`
}

// LoadEngine reads the tuning file at path. An empty path returns the defaults.
func LoadEngine(path string) (EngineSettings, error) {
	if path == "" {
		return EngineSettings{Engine: scheduler.DefaultConfig()}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return EngineSettings{}, fmt.Errorf("engine config: %w", err)
	}
	defer f.Close()
	return ParseEngine(f)
}

// ParseEngine decodes a tuning document and validates the result. Unknown keys
// are rejected.
func ParseEngine(r io.Reader) (EngineSettings, error) {
	settings := EngineSettings{Engine: scheduler.DefaultConfig()}

	var file engineFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return EngineSettings{}, fmt.Errorf("engine config: %w", err)
	}

	if file.MaxAttempts != nil {
		settings.Engine.MaxAttempts = *file.MaxAttempts
	}
	durations := []struct {
		field string
		raw   *string
		dst   *time.Duration
	}{
		{"min_gap", file.MinGap, &settings.Engine.MinGap},
		{"max_gap", file.MaxGap, &settings.Engine.MaxGap},
		{"jitter_window", file.JitterWindow, &settings.Engine.JitterWindow},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		value, err := time.ParseDuration(*d.raw)
		if err != nil {
			return EngineSettings{}, fmt.Errorf("engine config: %s: %w", d.field, err)
		}
		*d.dst = value
	}
	if file.PreferredHours != nil {
		settings.Engine.PreferredHours = file.PreferredHours
	}
	if file.Seed != nil {
		settings.Seed = *file.Seed
		settings.SeedSet = true
	}

	if err := settings.Engine.Validate(); err != nil {
		return EngineSettings{}, fmt.Errorf("engine config: %w", err)
	}
	return settings, nil
}
