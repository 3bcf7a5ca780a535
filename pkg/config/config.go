// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the saturation runner configuration from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// configValidate is the package-level validator instance.
var configValidate = validator.New()

// =============================================================================
// Configuration Types
// =============================================================================

// ProverKind names a supported prover back-end.
type ProverKind string

const (
	// ProverVampire selects the interactive prompt back-end.
	ProverVampire ProverKind = "vampire"

	// ProverIProver selects the TCP relay back-end.
	ProverIProver ProverKind = "iprover"
)

// ProverConfig configures one prover back-end.
type ProverConfig struct {
	// Kind selects the back-end protocol.
	Kind ProverKind `yaml:"kind" validate:"required,oneof=vampire iprover"`

	// BinaryPath is the prover executable.
	BinaryPath string `yaml:"binary_path" validate:"required"`
}

// EpisodeConfig bounds one episode.
type EpisodeConfig struct {
	// MaxClauses truncates the episode when exceeded without a proof.
	MaxClauses int `yaml:"max_clauses" validate:"gt=0"`

	// StepLimit caps interactive steps per episode. Zero means unlimited.
	StepLimit int `yaml:"step_limit" validate:"gte=0"`

	// Seed seeds problem selection and the random baseline policy.
	Seed int64 `yaml:"seed"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`

	// Dir receives JSON log files when non-empty.
	Dir string `yaml:"dir"`

	// JSON switches the stderr handler to JSON output.
	JSON bool `yaml:"json"`
}

// Config is the root runner configuration.
type Config struct {
	Prover   ProverConfig  `yaml:"prover" validate:"required"`
	Episode  EpisodeConfig `yaml:"episode"`
	Logging  LoggingConfig `yaml:"logging"`
	Problems []string      `yaml:"problems" validate:"required,min=1,dive,required"`
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the configuration used when a field is omitted.
func Default() Config {
	return Config{
		Prover: ProverConfig{
			Kind:       ProverVampire,
			BinaryPath: "vampire",
		},
		Episode: EpisodeConfig{
			MaxClauses: 1000,
			StepLimit:  0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads, parses and validates a YAML configuration file.
//
// Omitted fields keep their Default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	return configValidate.Struct(c)
}
