// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prover defines the proof-state data model and the episode state
// machine shared by all saturation-prover back-ends.
//
// The package is back-end agnostic: a Driver translates one concrete
// prover's interactive protocol (a stdout REPL, a socket session) into
// batches of Clause records, and Env turns those batches into a
// discrete-time episode a single-threaded caller can step through.
//
// # Episode Lifecycle
//
//	env, _ := prover.NewEnv(prover.EnvConfig{Driver: driver, Problems: problems})
//	defer env.Close()
//
//	reset, err := env.Reset(ctx, nil)
//	for !reset.Terminated {
//	    step, err := env.Step(ctx, action)
//	    ...
//	}
//
// # Thread Safety
//
// Env, ProofState and Clause are NOT safe for concurrent use. One episode
// is driven by exactly one caller thread; back-end drivers own whatever
// internal concurrency they need (see pkg/iprover).
package prover

import "fmt"

// FalsehoodSymbol is the distinguished literal text signalling a completed
// refutation proof. A clause whose literals equal this symbol terminates
// the episode.
const FalsehoodSymbol = "$false"

// =============================================================================
// CLAUSE ROLES
// =============================================================================

// Role classifies the provenance of a clause in the TPTP sense.
//
// The enumeration is closed: anything a prover emits outside the named
// roles maps to RoleUnknown, which callers may treat as RolePlain. Roles
// carry no logical meaning inside this package; they exist so that clause
// text can be re-rendered faithfully.
type Role int

const (
	// RoleUnknown is the zero value for unrecognized role strings.
	RoleUnknown Role = iota

	// RoleAxiom marks a clause taken from the input problem.
	RoleAxiom

	// RoleHypothesis marks an assumption local to the problem.
	RoleHypothesis

	// RoleLemma marks an intermediate proven formula.
	RoleLemma

	// RoleNegatedConjecture marks the negated goal of a refutation proof.
	RoleNegatedConjecture

	// RolePlain marks a derived clause with no special standing.
	RolePlain
)

// String returns the lowercase TPTP spelling of the role.
func (r Role) String() string {
	switch r {
	case RoleAxiom:
		return "axiom"
	case RoleHypothesis:
		return "hypothesis"
	case RoleLemma:
		return "lemma"
	case RoleNegatedConjecture:
		return "negated_conjecture"
	case RolePlain:
		return "plain"
	default:
		return "unknown"
	}
}

// ParseRole maps a TPTP role string to a Role.
//
// Unrecognized strings map to RoleUnknown rather than failing: role
// strings come from prover output and new roles must not break parsing.
func ParseRole(s string) Role {
	switch s {
	case "axiom":
		return RoleAxiom
	case "hypothesis":
		return RoleHypothesis
	case "lemma":
		return RoleLemma
	case "negated_conjecture":
		return RoleNegatedConjecture
	case "plain":
		return RolePlain
	default:
		return RoleUnknown
	}
}

// =============================================================================
// CLAUSE RECORD
// =============================================================================

// BirthStepUnset is the sentinel BirthStep value for a clause whose birth
// step is not yet known. ProofState stamps the current step number on
// insert when it sees this sentinel.
const BirthStepUnset = -1

// Clause describes one logical clause and its provenance.
//
// A Clause is terminal data: once produced by a driver and inserted into a
// ProofState it is never edited in place. Labels are unique across all
// clauses ever produced in one episode; a label is never reused even after
// the clause it names is logically subsumed.
//
// Literals is opaque formula text. This package never parses it into
// logical structure; the only text it interprets is equality with
// FalsehoodSymbol.
type Clause struct {
	// Label identifies the clause within one episode.
	Label string

	// Role is the TPTP role of the clause.
	Role Role

	// Literals is the formula text, treated as an atomic string.
	Literals string

	// InferenceRule names the rule that produced the clause.
	// Empty when the prover reported no derivation.
	InferenceRule string

	// InferenceParents lists the labels of the premises, in the order
	// the prover reported them. Empty for input clauses.
	InferenceParents []string

	// BirthStep is the step at which the clause entered the unprocessed
	// set: 0 for clauses from the original problem, BirthStepUnset when
	// the driver could not tell.
	BirthStep int

	// Processed reports whether the clause has left the passive set.
	// Only meaningful for drivers that track a passive/active split.
	Processed bool
}

// IsFalsehood reports whether the clause is the distinguished falsehood
// clause that completes a refutation proof.
func (c Clause) IsFalsehood() bool {
	return c.Literals == FalsehoodSymbol
}

// String renders a short human-readable form, for logs and test failures.
func (c Clause) String() string {
	return fmt.Sprintf("%s: %s [%s]", c.Label, c.Literals, c.InferenceRule)
}
