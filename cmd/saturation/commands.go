// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	configPath string
	problem    string
	agentName  string
	stepLimit  int
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "saturation",
		Short: "Drive external saturation provers through given-clause episodes",
		Long: `saturation wraps interactive theorem provers behind a discrete-time
episode interface: at each step an agent nominates the next given clause
and the prover reports the clauses it derived in response.`,
	}

	solveCmd = &cobra.Command{
		Use:   "solve",
		Short: "Run one episode with a baseline clause-selection agent",
		RunE:  runSolve, // Defined in cmd_solve.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	solveCmd.Flags().StringVarP(&problem, "problem", "p", "", "Problem file to solve (default: random from config)")
	solveCmd.Flags().StringVarP(&agentName, "agent", "a", "size", "Baseline agent: age, size or random")
	solveCmd.Flags().IntVar(&stepLimit, "step-limit", 0, "Maximum interactive steps (0 = config value)")

	rootCmd.AddCommand(solveCmd)
}
