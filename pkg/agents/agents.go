// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agents provides baseline clause-selection policies and an
// episode runner over pkg/prover environments.
//
// The baselines mirror the classic given-clause heuristics: pick the
// oldest unprocessed clause (age), the shortest one (size), or a random
// one. They exist for smoke-testing prover integrations and as floor
// baselines for learned policies.
package agents

import (
	"context"
	"errors"
	"math/rand"

	"github.com/AleutianAI/saturation/pkg/prover"
)

// Agent selects the next given clause from an observation.
type Agent interface {
	// Action returns the insertion-order index of the clause to process
	// next, or an error when no unprocessed clause remains.
	Action(clauses []prover.Clause, reward float64, info prover.Info) (int, error)
}

// ErrNoChoice is returned when every clause has already been processed.
var ErrNoChoice = errors.New("agents: no unprocessed clause to select")

// unprocessed returns the insertion-order indices of selectable clauses.
func unprocessed(clauses []prover.Clause) []int {
	var out []int
	for i, c := range clauses {
		if !c.Processed {
			out = append(out, i)
		}
	}
	return out
}

// =============================================================================
// BASELINE POLICIES
// =============================================================================

// AgeAgent always selects the oldest unprocessed clause.
type AgeAgent struct{}

func (AgeAgent) Action(clauses []prover.Clause, _ float64, _ prover.Info) (int, error) {
	candidates := unprocessed(clauses)
	if len(candidates) == 0 {
		return 0, ErrNoChoice
	}
	return candidates[0], nil
}

// SizeAgent selects the shortest unprocessed clause, measured by the
// length of its literal text. Ties go to the older clause.
type SizeAgent struct{}

func (SizeAgent) Action(clauses []prover.Clause, _ float64, _ prover.Info) (int, error) {
	candidates := unprocessed(clauses)
	if len(candidates) == 0 {
		return 0, ErrNoChoice
	}
	best := candidates[0]
	for _, i := range candidates[1:] {
		if len(clauses[i].Literals) < len(clauses[best].Literals) {
			best = i
		}
	}
	return best, nil
}

// RandomAgent selects a uniformly random unprocessed clause.
type RandomAgent struct {
	rng *rand.Rand
}

// NewRandomAgent creates a random policy with a fixed seed.
func NewRandomAgent(seed int64) *RandomAgent {
	return &RandomAgent{rng: rand.New(rand.NewSource(seed))}
}

func (a *RandomAgent) Action(clauses []prover.Clause, _ float64, _ prover.Info) (int, error) {
	candidates := unprocessed(clauses)
	if len(candidates) == 0 {
		return 0, ErrNoChoice
	}
	return candidates[a.rng.Intn(len(candidates))], nil
}

// =============================================================================
// EPISODE RUNNER
// =============================================================================

// Transition records one step of an episode for later analysis.
type Transition struct {
	Action     int
	Reward     float64
	Terminated bool
	Truncated  bool
	Info       prover.Info
}

// EpisodeResult is the outcome of one RunEpisode call.
type EpisodeResult struct {
	// Transitions holds one record per completed step, in order.
	Transitions []Transition

	// FinalClauses is the proof state at the end of the episode.
	FinalClauses []prover.Clause

	// ProofFound reports whether the episode terminated with a proof.
	ProofFound bool

	// ProofSteps is the refutation proof length, or -1 without a proof.
	ProofSteps int
}

// RunEpisode drives one episode of env with the given policy.
//
// Description:
//
//	Resets the environment on the named problem (empty string picks a
//	random configured problem) and steps until the episode terminates,
//	truncates, the step limit is exhausted, or the agent runs out of
//	unprocessed clauses. A non-positive stepLimit means unlimited.
//
// Outputs:
//
//	*EpisodeResult - The transition log and proof analysis.
//	error - The first environment, driver or agent error.
func RunEpisode(ctx context.Context, env *prover.Env, agent Agent, problem string, stepLimit int) (*EpisodeResult, error) {
	var opts *prover.ResetOptions
	if problem != "" {
		opts = &prover.ResetOptions{Problem: problem}
	}
	reset, err := env.Reset(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &EpisodeResult{ProofSteps: -1}
	clauses := reset.Clauses
	reward := 0.0
	info := reset.Info
	done := reset.Terminated || reset.Truncated

	for step := 0; !done && (stepLimit <= 0 || step < stepLimit); step++ {
		action, err := agent.Action(clauses, reward, info)
		if errors.Is(err, ErrNoChoice) {
			break
		}
		if err != nil {
			return nil, err
		}
		res, err := env.Step(ctx, action)
		if err != nil {
			return nil, err
		}
		result.Transitions = append(result.Transitions, Transition{
			Action:     action,
			Reward:     res.Reward,
			Terminated: res.Terminated,
			Truncated:  res.Truncated,
			Info:       res.Info,
		})
		clauses = res.Clauses
		reward = res.Reward
		info = res.Info
		done = res.Terminated || res.Truncated
	}

	result.FinalClauses = clauses
	if env.Phase() == prover.PhaseTerminated {
		result.ProofFound = true
		result.ProofSteps = ProofLength(clauses)
	}
	return result, nil
}

// ProofLength measures a refutation proof in distinct birth steps.
//
// Description:
//
//	Walks the inference ancestry backwards from the falsehood clause and
//	counts the distinct birth steps among the clauses visited. Returns
//	-1 when no falsehood clause is present.
func ProofLength(clauses []prover.Clause) int {
	byLabel := make(map[string]prover.Clause, len(clauses))
	var falsehood *prover.Clause
	for i, c := range clauses {
		byLabel[c.Label] = c
		if falsehood == nil && c.IsFalsehood() {
			falsehood = &clauses[i]
		}
	}
	if falsehood == nil {
		return -1
	}

	steps := make(map[int]struct{})
	visited := make(map[string]struct{})
	queue := []string{falsehood.Label}
	for len(queue) > 0 {
		label := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if _, ok := visited[label]; ok {
			continue
		}
		visited[label] = struct{}{}
		c, ok := byLabel[label]
		if !ok {
			continue
		}
		steps[c.BirthStep] = struct{}{}
		queue = append(queue, c.InferenceParents...)
	}
	return len(steps)
}
