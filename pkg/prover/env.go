// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prover

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/AleutianAI/saturation/pkg/logging"
	"github.com/AleutianAI/saturation/pkg/telemetry"
)

// =============================================================================
// DRIVER CONTRACT
// =============================================================================

// Driver translates one concrete prover's interactive protocol into
// batches of Clause records.
//
// A Driver owns at most one prover session at a time. Start tears down
// any previous session before opening a new one. Advance nominates a
// given clause by label and returns the clauses the prover produced in
// response; an unknown or stale label is a no-op returning no clauses.
// Terminate is idempotent, tolerates a session that already died, and
// never blocks without a bound.
//
// Drivers provide no internal timeout: an Advance call blocks until the
// prover responds. Callers impose their own deadline around the call if
// they need one.
type Driver interface {
	// Start opens a fresh prover session on the given problem file and
	// returns the initial clause batch.
	Start(ctx context.Context, problem string) ([]Clause, error)

	// Advance nominates the clause with the given label and returns the
	// newly produced clauses.
	Advance(ctx context.Context, label string) ([]Clause, error)

	// Terminate tears down the session.
	Terminate() error
}

// =============================================================================
// EPISODE STATE MACHINE
// =============================================================================

// Phase is the episode state machine state.
//
// Transitions: Uninitialized→Running on Reset; Running→Running on a step
// while neither terminal condition holds; Running→Terminated when a
// falsehood clause appears; Running→Truncated when the clause bound is
// exceeded without one. Terminated and Truncated are absorbing: further
// Step calls are pure reads.
type Phase int

const (
	// PhaseUninitialized means Reset has never been called.
	PhaseUninitialized Phase = iota

	// PhaseRunning means the episode accepts actions.
	PhaseRunning

	// PhaseTerminated means a refutation proof was found.
	PhaseTerminated

	// PhaseTruncated means the clause bound was hit without a proof.
	PhaseTruncated
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	names := []string{"uninitialized", "running", "terminated", "truncated"}
	if int(p) < len(names) {
		return names[p]
	}
	return "unknown"
}

// Info carries episode metadata alongside observations.
type Info struct {
	// EpisodeID uniquely identifies the episode.
	EpisodeID string

	// Problem is the full path of the problem file being solved.
	Problem string

	// StepNumber is the number of completed interactive steps.
	StepNumber int
}

// ResetResult is the outcome of Env.Reset.
//
// Terminated may already be true: a prover can refute the problem during
// preprocessing, before any interactive step.
type ResetResult struct {
	Clauses    []Clause
	Terminated bool
	Truncated  bool
	Info       Info
}

// StepResult is the outcome of one Env.Step call.
type StepResult struct {
	Clauses    []Clause
	Reward     float64
	Terminated bool
	Truncated  bool
	Info       Info
}

// EnvConfig configures an Env.
type EnvConfig struct {
	// Driver is the prover back-end. Required.
	Driver Driver

	// Problems lists candidate problem files. Reset picks one at random
	// unless ResetOptions names a specific file.
	Problems []string

	// MaxClauses bounds the proof state. Non-positive selects
	// DefaultMaxClauses.
	MaxClauses int

	// Seed seeds problem selection. Zero seeds from the default source.
	Seed int64

	// Logger receives episode lifecycle logs. Nil selects the default
	// stderr logger.
	Logger *logging.Logger

	// Metrics receives episode counters. Nil disables telemetry.
	Metrics *telemetry.Metrics
}

// Env drives one prover episode at a time through a Driver.
//
// Reset, Step and Close are synchronous and intended for a single calling
// thread. The reward range is fixed at [0,1]: 1.0 exactly on the step
// where the falsehood clause first appears, 0.0 on every other step.
type Env struct {
	driver     Driver
	problems   []string
	maxClauses int
	rng        *rand.Rand
	logger     *logging.Logger
	metrics    *telemetry.Metrics

	state     *ProofState
	phase     Phase
	problem   string
	episodeID string
	closed    bool
}

// ResetOptions selects the problem for the next episode.
type ResetOptions struct {
	// Problem is the full path of a problem file. Empty picks a random
	// entry from the configured list.
	Problem string
}

// NewEnv creates an environment around the given driver.
//
// Outputs:
//
//	*Env - The environment in the Uninitialized phase.
//	error - Non-nil if the configuration is unusable.
func NewEnv(cfg EnvConfig) (*Env, error) {
	if cfg.Driver == nil {
		return nil, fmt.Errorf("prover: EnvConfig.Driver is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NewNopMetrics()
	}
	return &Env{
		driver:     cfg.Driver,
		problems:   cfg.Problems,
		maxClauses: cfg.MaxClauses,
		rng:        rand.New(rand.NewSource(seedOrDefault(cfg.Seed))),
		logger:     logger,
		metrics:    metrics,
		phase:      PhaseUninitialized,
	}, nil
}

// Reset discards any previous episode and starts a fresh one.
//
// Description:
//
//	Tears down the previous prover session (the driver does this as part
//	of Start), populates a fresh proof state from the driver's first
//	clause batch and resets the step counter to 0. If the falsehood
//	clause is already present in the first batch the episode starts in
//	the Terminated phase.
//
// Outputs:
//
//	*ResetResult - Initial observation and episode info.
//	error - ErrClosed after Close; protocol violations from the driver.
func (e *Env) Reset(ctx context.Context, opts *ResetOptions) (*ResetResult, error) {
	if e.closed {
		return nil, ErrClosed
	}
	problem, err := e.pickProblem(opts)
	if err != nil {
		return nil, err
	}
	e.problem = problem
	e.episodeID = uuid.NewString()
	e.state = NewProofState(e.maxClauses)
	e.phase = PhaseUninitialized

	e.logger.Info("episode reset",
		"episode_id", e.episodeID,
		"problem", e.problem,
	)

	initial, err := e.driver.Start(ctx, e.problem)
	if err != nil {
		e.countViolation(ctx, err)
		return nil, fmt.Errorf("start prover on %s: %w", e.problem, err)
	}
	for _, c := range initial {
		if c.BirthStep == BirthStepUnset {
			c.BirthStep = 0
		}
		e.state.Add(c)
	}
	e.phase = PhaseRunning
	e.updatePhase(ctx)
	e.metrics.EpisodesTotal.Add(ctx, 1)

	return &ResetResult{
		Clauses:    e.state.Clauses(),
		Terminated: e.phase == PhaseTerminated,
		Truncated:  e.phase == PhaseTruncated,
		Info:       e.info(),
	}, nil
}

// Step performs one given-clause round.
//
// Description:
//
//	Maps the action index to a clause label in insertion order, delegates
//	the deduction round to the driver, merges new clauses into the proof
//	state and advances the step counter. On an episode that has already
//	terminated or truncated, Step is a pure read: the clause set is
//	returned unchanged with reward 0 and no driver call is made.
//
//	A label the backing prover no longer recognizes is a no-op step: no
//	new clauses, but the step counter still advances.
//
// Inputs:
//
//	action - Insertion-order index of the given clause.
//
// Outputs:
//
//	*StepResult - Observation, reward and terminal flags.
//	error - ErrNotStarted before the first Reset, ErrClosed after Close,
//	        ErrInvalidAction for an out-of-range index, protocol
//	        violations from the driver.
func (e *Env) Step(ctx context.Context, action int) (*StepResult, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.phase == PhaseUninitialized {
		return nil, ErrNotStarted
	}
	if e.phase == PhaseTerminated || e.phase == PhaseTruncated {
		return &StepResult{
			Clauses:    e.state.Clauses(),
			Reward:     0.0,
			Terminated: e.phase == PhaseTerminated,
			Truncated:  e.phase == PhaseTruncated,
			Info:       e.info(),
		}, nil
	}
	if action < 0 || action >= e.state.Len() {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidAction, action, e.state.Len())
	}

	label := e.state.At(action).Label
	updated, err := e.driver.Advance(ctx, label)
	if err != nil {
		e.countViolation(ctx, err)
		return nil, fmt.Errorf("advance on clause %s: %w", label, err)
	}

	e.state.MarkProcessed(label)
	e.state.AdvanceStep()
	for _, c := range updated {
		e.state.Add(c)
	}
	terminatedNow := e.phase == PhaseRunning && e.state.Terminated()
	e.updatePhase(ctx)
	e.metrics.StepsTotal.Add(ctx, 1)

	reward := 0.0
	if terminatedNow {
		reward = 1.0
	}
	return &StepResult{
		Clauses:    e.state.Clauses(),
		Reward:     reward,
		Terminated: e.phase == PhaseTerminated,
		Truncated:  e.phase == PhaseTruncated,
		Info:       e.info(),
	}, nil
}

// Close releases prover resources.
//
// Safe to call multiple times and safe to call before Reset. After Close
// the environment rejects Reset and Step with ErrClosed.
func (e *Env) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.driver.Terminate()
}

// Phase returns the current episode phase.
func (e *Env) Phase() Phase {
	return e.phase
}

// Problem returns the problem file of the current episode.
//
// Returns ErrNotStarted before the first Reset.
func (e *Env) Problem() (string, error) {
	if e.problem == "" {
		return "", ErrNotStarted
	}
	return e.problem, nil
}

// State exposes the proof state for read-only inspection.
func (e *Env) State() *ProofState {
	return e.state
}

// pickProblem resolves the problem file for the next episode.
func (e *Env) pickProblem(opts *ResetOptions) (string, error) {
	if opts != nil && opts.Problem != "" {
		return opts.Problem, nil
	}
	if len(e.problems) == 0 {
		return "", fmt.Errorf("prover: no problem files configured")
	}
	return e.problems[e.rng.Intn(len(e.problems))], nil
}

// updatePhase folds the proof-state predicates into the phase and records
// terminal transitions.
func (e *Env) updatePhase(ctx context.Context) {
	if e.phase != PhaseRunning {
		return
	}
	switch {
	case e.state.Terminated():
		e.phase = PhaseTerminated
		e.metrics.ProofsFoundTotal.Add(ctx, 1)
		e.logger.Info("proof found",
			"episode_id", e.episodeID,
			"problem", e.problem,
			"steps", e.state.StepNumber(),
			"clauses", e.state.Len(),
		)
	case e.state.Truncated():
		e.phase = PhaseTruncated
		e.metrics.TruncationsTotal.Add(ctx, 1)
		e.logger.Info("episode truncated",
			"episode_id", e.episodeID,
			"problem", e.problem,
			"clauses", e.state.Len(),
			"max_clauses", e.state.MaxClauses(),
		)
	}
}

func (e *Env) countViolation(ctx context.Context, err error) {
	if errors.Is(err, ErrProtocol) {
		e.metrics.ProtocolViolationsTotal.Add(ctx, 1)
		e.logger.Error("prover protocol violation",
			"episode_id", e.episodeID,
			"problem", e.problem,
			"error", err.Error(),
		)
	}
}

func (e *Env) info() Info {
	return Info{
		EpisodeID:  e.episodeID,
		Problem:    e.problem,
		StepNumber: e.state.StepNumber(),
	}
}

func seedOrDefault(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return int64(uuid.New().ID())
}
