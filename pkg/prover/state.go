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
	"fmt"
	"strings"
)

// DefaultMaxClauses bounds the proof state when the caller does not
// configure a limit. Hitting the bound without a proof truncates the
// episode; it is a terminal state, not an error.
const DefaultMaxClauses = 1000

// =============================================================================
// PROOF STATE
// =============================================================================

// ProofState owns the clause set of one episode.
//
// Clauses are kept in insertion order, which is discovery order; action
// indices address clauses by that order. The state is append-only:
// clauses are never removed and never edited in place.
type ProofState struct {
	clauses    []Clause
	index      map[string]int
	stepNumber int
	maxClauses int
}

// NewProofState creates an empty proof state with the given clause bound.
//
// A non-positive maxClauses selects DefaultMaxClauses.
func NewProofState(maxClauses int) *ProofState {
	if maxClauses <= 0 {
		maxClauses = DefaultMaxClauses
	}
	return &ProofState{
		index:      make(map[string]int),
		maxClauses: maxClauses,
	}
}

// Add appends a newly produced clause.
//
// A clause whose label is already present is dropped silently and Add
// returns false: labels are never reused within an episode, so the first
// record for a label wins. When the clause carries BirthStepUnset the
// current step number is stamped on it.
func (s *ProofState) Add(c Clause) bool {
	if _, ok := s.index[c.Label]; ok {
		return false
	}
	if c.BirthStep == BirthStepUnset {
		c.BirthStep = s.stepNumber
	}
	s.index[c.Label] = len(s.clauses)
	s.clauses = append(s.clauses, c)
	return true
}

// Len returns the number of stored clauses.
func (s *ProofState) Len() int {
	return len(s.clauses)
}

// At returns the clause at the given insertion-order position.
func (s *ProofState) At(i int) Clause {
	return s.clauses[i]
}

// Get returns the clause with the given label.
func (s *ProofState) Get(label string) (Clause, bool) {
	i, ok := s.index[label]
	if !ok {
		return Clause{}, false
	}
	return s.clauses[i], true
}

// MarkProcessed flags the clause with the given label as processed.
// Returns false for an unknown label.
func (s *ProofState) MarkProcessed(label string) bool {
	i, ok := s.index[label]
	if !ok {
		return false
	}
	s.clauses[i].Processed = true
	return true
}

// Clauses returns a copy of the clause set in insertion order.
func (s *ProofState) Clauses() []Clause {
	out := make([]Clause, len(s.clauses))
	copy(out, s.clauses)
	return out
}

// StepNumber returns the number of completed interactive steps.
func (s *ProofState) StepNumber() int {
	return s.stepNumber
}

// AdvanceStep increments the step counter. Env calls this once per
// interactive step, before merging the step's new clauses, so that
// stamped birth steps name the step that produced them.
func (s *ProofState) AdvanceStep() {
	s.stepNumber++
}

// MaxClauses returns the configured clause bound.
func (s *ProofState) MaxClauses() int {
	return s.maxClauses
}

// hasFalsehood reports whether any stored clause is the falsehood clause.
func (s *ProofState) hasFalsehood() bool {
	for _, c := range s.clauses {
		if c.IsFalsehood() {
			return true
		}
	}
	return false
}

// Terminated reports whether a refutation proof has been found: at least
// one stored clause is the falsehood clause.
func (s *ProofState) Terminated() bool {
	return s.hasFalsehood()
}

// Truncated reports whether the clause bound was exceeded without a proof.
// Terminated and Truncated are mutually exclusive: a falsehood clause
// always wins.
func (s *ProofState) Truncated() bool {
	return len(s.clauses) > s.maxClauses && !s.hasFalsehood()
}

// String renders one clause per line, for logs and debugging.
func (s *ProofState) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "proof state: %d clauses, step %d\n", len(s.clauses), s.stepNumber)
	for _, c := range s.clauses {
		fmt.Fprintf(&b, "  %s\n", c)
	}
	return b.String()
}
