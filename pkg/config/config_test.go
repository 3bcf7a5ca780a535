// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// TestLoad verifies a full config round trip.
func TestLoad(t *testing.T) {
	path := writeConfig(t, `
prover:
  kind: iprover
  binary_path: /usr/local/bin/iproveropt
episode:
  max_clauses: 500
  step_limit: 100
  seed: 42
logging:
  level: debug
  json: true
problems:
  - TPTP/Problems/TST/TST001-1.p
  - TPTP/Problems/TST/TST002-1.p
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Prover.Kind != ProverIProver {
		t.Errorf("Prover.Kind = %q, want iprover", cfg.Prover.Kind)
	}
	if cfg.Episode.MaxClauses != 500 {
		t.Errorf("Episode.MaxClauses = %d, want 500", cfg.Episode.MaxClauses)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if len(cfg.Problems) != 2 {
		t.Errorf("len(Problems) = %d, want 2", len(cfg.Problems))
	}
}

// TestLoad_DefaultsFillOmittedFields checks partial configs inherit the
// defaults.
func TestLoad_DefaultsFillOmittedFields(t *testing.T) {
	path := writeConfig(t, `
problems:
  - TST001-1.p
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	def := Default()
	if cfg.Prover.Kind != def.Prover.Kind {
		t.Errorf("Prover.Kind = %q, want default %q", cfg.Prover.Kind, def.Prover.Kind)
	}
	if cfg.Episode.MaxClauses != def.Episode.MaxClauses {
		t.Errorf("Episode.MaxClauses = %d, want default %d",
			cfg.Episode.MaxClauses, def.Episode.MaxClauses)
	}
}

// TestLoad_Rejections covers the validation failures.
func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown prover kind",
			content: `
prover:
  kind: metis
  binary_path: metis
problems: [TST001-1.p]
`,
		},
		{
			name: "missing binary path",
			content: `
prover:
  kind: vampire
  binary_path: ""
problems: [TST001-1.p]
`,
		},
		{
			name: "no problems",
			content: `
prover:
  kind: vampire
  binary_path: vampire
problems: []
`,
		},
		{
			name: "negative step limit",
			content: `
episode:
  step_limit: -5
problems: [TST001-1.p]
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load() succeeded, want validation error")
			}
		})
	}
}

// TestLoad_MissingFile checks the error path for an absent file.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() succeeded on a missing file")
	}
}

// TestDefault_IsValidExceptProblems checks the defaults pass validation
// once a problem list is supplied.
func TestDefault_IsValidExceptProblems(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("Default() validated without problems, want an error")
	}
	cfg.Problems = []string{"TST001-1.p"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default() with problems failed validation: %v", err)
	}
}
