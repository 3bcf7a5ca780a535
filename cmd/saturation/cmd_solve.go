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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/saturation/pkg/agents"
	"github.com/AleutianAI/saturation/pkg/config"
	"github.com/AleutianAI/saturation/pkg/iprover"
	"github.com/AleutianAI/saturation/pkg/logging"
	"github.com/AleutianAI/saturation/pkg/prover"
	"github.com/AleutianAI/saturation/pkg/telemetry"
	"github.com/AleutianAI/saturation/pkg/vampire"
)

// runSolve runs one baseline episode and prints a short report.
func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(level),
		LogDir:  cfg.Logging.Dir,
		Service: "saturation",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()

	metrics, err := telemetry.NewMetrics(otel.Meter("saturation"))
	if err != nil {
		return err
	}

	var driver prover.Driver
	switch cfg.Prover.Kind {
	case config.ProverVampire:
		driver = vampire.NewDriver(cfg.Prover.BinaryPath, logger)
	case config.ProverIProver:
		driver = iprover.NewDriver(cfg.Prover.BinaryPath, logger)
	default:
		return fmt.Errorf("unsupported prover kind %q", cfg.Prover.Kind)
	}

	env, err := prover.NewEnv(prover.EnvConfig{
		Driver:     driver,
		Problems:   cfg.Problems,
		MaxClauses: cfg.Episode.MaxClauses,
		Seed:       cfg.Episode.Seed,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}
	defer env.Close()

	agent, err := buildAgent(agentName, cfg.Episode.Seed)
	if err != nil {
		return err
	}

	limit := stepLimit
	if limit <= 0 {
		limit = cfg.Episode.StepLimit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := agents.RunEpisode(ctx, env, agent, problem, limit)
	if err != nil {
		return err
	}

	solved, _ := env.Problem()
	if result.ProofFound {
		fmt.Printf("PROOF_FOUND %s: %d steps, proof length %d, %d clauses\n",
			solved, len(result.Transitions), result.ProofSteps, len(result.FinalClauses))
	} else {
		fmt.Printf("%s %s: %d steps, %d clauses\n",
			env.Phase(), solved, len(result.Transitions), len(result.FinalClauses))
	}
	return nil
}

// buildAgent maps an agent name to a baseline policy.
func buildAgent(name string, seed int64) (agents.Agent, error) {
	switch name {
	case "age":
		return agents.AgeAgent{}, nil
	case "size":
		return agents.SizeAgent{}, nil
	case "random":
		return agents.NewRandomAgent(seed), nil
	default:
		return nil, fmt.Errorf("unknown agent %q (want age, size or random)", name)
	}
}
