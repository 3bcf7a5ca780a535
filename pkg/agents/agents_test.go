// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/saturation/pkg/prover"
)

// sequenceDriver replays canned batches: Start returns the initial
// batch, each Advance the next scripted one.
type sequenceDriver struct {
	initial []prover.Clause
	script  [][]prover.Clause
	calls   int
}

func (d *sequenceDriver) Start(context.Context, string) ([]prover.Clause, error) {
	d.calls = 0
	return d.initial, nil
}

func (d *sequenceDriver) Advance(context.Context, string) ([]prover.Clause, error) {
	if d.calls >= len(d.script) {
		return nil, nil
	}
	batch := d.script[d.calls]
	d.calls++
	return batch, nil
}

func (d *sequenceDriver) Terminate() error { return nil }

func testClauses() []prover.Clause {
	return []prover.Clause{
		{Label: "c1", Literals: "p(a)|q(a)|r(a)"},
		{Label: "c2", Literals: "~p(X)"},
		{Label: "c3", Literals: "q(b)|r(b)", Processed: true},
	}
}

func TestAgeAgent_PicksOldestUnprocessed(t *testing.T) {
	idx, err := AgeAgent{}.Action(testClauses(), 0, prover.Info{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestSizeAgent_PicksShortestUnprocessed(t *testing.T) {
	idx, err := SizeAgent{}.Action(testClauses(), 0, prover.Info{})
	require.NoError(t, err)
	// c2 has the shortest literal text; c3 is shorter than c1 but
	// already processed.
	assert.Equal(t, 1, idx)
}

func TestRandomAgent_OnlyPicksUnprocessed(t *testing.T) {
	agent := NewRandomAgent(7)
	for i := 0; i < 50; i++ {
		idx, err := agent.Action(testClauses(), 0, prover.Info{})
		require.NoError(t, err)
		assert.Contains(t, []int{0, 1}, idx)
	}
}

func TestAgents_NoUnprocessedClause(t *testing.T) {
	clauses := []prover.Clause{
		{Label: "c1", Literals: "p(a)", Processed: true},
	}
	for _, agent := range []Agent{AgeAgent{}, SizeAgent{}, NewRandomAgent(1)} {
		_, err := agent.Action(clauses, 0, prover.Info{})
		assert.ErrorIs(t, err, ErrNoChoice)
	}
}

// TestRunEpisode_FindsProof runs an age-ordered episode to a refutation
// and checks the transition log and proof analysis.
func TestRunEpisode_FindsProof(t *testing.T) {
	driver := &sequenceDriver{
		initial: []prover.Clause{
			{Label: "c1", Literals: "p(a)", Role: prover.RoleAxiom, BirthStep: prover.BirthStepUnset},
			{Label: "c2", Literals: "~p(X)", Role: prover.RoleAxiom, BirthStep: prover.BirthStepUnset},
		},
		script: [][]prover.Clause{
			{{Label: "c3", Literals: prover.FalsehoodSymbol,
				InferenceRule:    "resolution",
				InferenceParents: []string{"c1", "c2"},
				BirthStep:        prover.BirthStepUnset}},
		},
	}
	env, err := prover.NewEnv(prover.EnvConfig{Driver: driver})
	require.NoError(t, err)
	defer env.Close()

	result, err := RunEpisode(context.Background(), env, AgeAgent{}, "TST001-1.p", 10)
	require.NoError(t, err)

	assert.True(t, result.ProofFound)
	require.Len(t, result.Transitions, 1)
	assert.Equal(t, 1.0, result.Transitions[0].Reward)
	assert.True(t, result.Transitions[0].Terminated)
	assert.Equal(t, 2, result.ProofSteps, "falsehood born at step 1, parents at step 0")
}

// TestRunEpisode_StepLimit stops an unproductive episode at the limit.
func TestRunEpisode_StepLimit(t *testing.T) {
	driver := &sequenceDriver{
		initial: []prover.Clause{
			{Label: "c1", Literals: "p(a)"},
			{Label: "c2", Literals: "q(a)"},
			{Label: "c3", Literals: "r(a)"},
			{Label: "c4", Literals: "s(a)"},
		},
	}
	env, err := prover.NewEnv(prover.EnvConfig{Driver: driver})
	require.NoError(t, err)
	defer env.Close()

	result, err := RunEpisode(context.Background(), env, AgeAgent{}, "TST002-1.p", 3)
	require.NoError(t, err)

	assert.False(t, result.ProofFound)
	assert.Equal(t, -1, result.ProofSteps)
	assert.Len(t, result.Transitions, 3)
}

// TestRunEpisode_StopsWhenChoicesRunOut covers an agent that exhausts
// the unprocessed set before the step limit.
func TestRunEpisode_StopsWhenChoicesRunOut(t *testing.T) {
	driver := &sequenceDriver{
		initial: []prover.Clause{
			{Label: "c1", Literals: "p(a)"},
			{Label: "c2", Literals: "q(a)"},
		},
	}
	env, err := prover.NewEnv(prover.EnvConfig{Driver: driver})
	require.NoError(t, err)
	defer env.Close()

	result, err := RunEpisode(context.Background(), env, AgeAgent{}, "TST003-1.p", 0)
	require.NoError(t, err)
	assert.Len(t, result.Transitions, 2, "one step per initial clause, then no choice left")
	assert.False(t, result.ProofFound)
}

// TestProofLength measures the ancestor walk, including clauses outside
// the proof that must not be counted.
func TestProofLength(t *testing.T) {
	clauses := []prover.Clause{
		{Label: "c1", Literals: "p(a)", BirthStep: 0},
		{Label: "c2", Literals: "~p(X)|q(X)", BirthStep: 0},
		{Label: "noise", Literals: "z(z)", BirthStep: 1},
		{Label: "c3", Literals: "q(a)", InferenceParents: []string{"c1", "c2"}, BirthStep: 1},
		{Label: "c4", Literals: prover.FalsehoodSymbol, InferenceParents: []string{"c3"}, BirthStep: 2},
	}
	assert.Equal(t, 3, ProofLength(clauses), "distinct birth steps 0, 1 and 2")

	assert.Equal(t, -1, ProofLength(clauses[:3]), "no falsehood clause")
	assert.Equal(t, -1, ProofLength(nil))
}
