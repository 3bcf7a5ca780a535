// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vampire

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/saturation/pkg/prover"
)

// =============================================================================
// RESPONSE TAGS
// =============================================================================

// responseTag classifies one event line of Vampire's interactive output.
//
// The enumeration is deliberately closed. Every tagged line the prover
// emits must fall into the retain set (a clause entered or stayed in the
// passive set) or the ignore set (internal bookkeeping); anything else is
// a protocol violation that fails the episode. The driver must never
// silently swallow unrecognized prover behavior.
type responseTag int

const (
	tagUnknown responseTag = iota

	// Retained: the line carries a clause for the proof state.
	tagNew
	tagPassive
	tagFnDefDiscovered

	// Ignored: bookkeeping events with no new clause content.
	tagActive
	tagForwardReduce
	tagBackwardReduce
	tagNewPropositional
	tagFinal
	tagInput
)

// tagByName maps the literal tag text of an event line to its tag.
var tagByName = map[string]responseTag{
	"new":               tagNew,
	"passive":           tagPassive,
	"fn def discovered": tagFnDefDiscovered,
	"active":            tagActive,
	"forward reduce":    tagForwardReduce,
	"backward reduce":   tagBackwardReduce,
	"new propositional": tagNewPropositional,
	"final":             tagFinal,
	"input":             tagInput,
}

// retained reports whether lines with this tag materialize a clause.
func (t responseTag) retained() bool {
	switch t {
	case tagNew, tagPassive, tagFnDefDiscovered:
		return true
	case tagActive, tagForwardReduce, tagBackwardReduce, tagNewPropositional, tagFinal, tagInput:
		return false
	default:
		return false
	}
}

// =============================================================================
// OUTPUT PARSING
// =============================================================================

// Event line markers. With --show_everything Vampire prefixes saturation
// events with "[SA] " and preprocessing events with "[PP] "; both markers
// are exactly five bytes.
const (
	markerSaturation    = "[SA] "
	markerPreprocessing = "[PP] "
	markerLen           = 5
)

// parseResponse extracts clause records from one block of interactive
// output (everything read up to a prompt or end-of-stream).
//
// Description:
//
//	Each marker line has the shape
//
//	    <marker><tag>: <label>. <formula>[<annotation>]
//
//	Lines without a marker (banners, proof summaries, statistics) are
//	skipped. Marker lines with an unrecognized or malformed tag raise a
//	protocol violation naming the offense. Retained lines become Clause
//	records; ignored tags are dropped silently.
//
// Outputs:
//
//	[]prover.Clause - Records in output order.
//	int - Count of recognized event lines, retained or ignored.
//	error - prover.ErrProtocol on any unrecognized tag.
func parseResponse(output string) ([]prover.Clause, int, error) {
	var clauses []prover.Clause
	events := 0
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, markerSaturation) && !strings.HasPrefix(line, markerPreprocessing) {
			continue
		}
		name, body, ok := strings.Cut(line[markerLen:], ": ")
		if !ok {
			return nil, events, fmt.Errorf("%w: malformed event line %q", prover.ErrProtocol, line)
		}
		tag, known := tagByName[name]
		if !known {
			return nil, events, fmt.Errorf("%w: unexpected response tag %q", prover.ErrProtocol, name)
		}
		events++
		if !tag.retained() {
			continue
		}
		label, text, ok := strings.Cut(body, ". ")
		if !ok {
			return nil, events, fmt.Errorf("%w: event line without clause label %q", prover.ErrProtocol, line)
		}
		clause, err := parseClause(label, text)
		if err != nil {
			return nil, events, err
		}
		clauses = append(clauses, clause)
	}
	return clauses, events, nil
}

// parseClause splits one retained clause body into formula text and its
// bracketed inference annotation.
//
// When the annotation has more than one space-separated token the last
// token is a comma-separated parent-label list and the preceding tokens,
// joined by underscores, name the inference rule. A single token is a
// bare rule name with no parents (input clauses).
func parseClause(label, text string) (prover.Clause, error) {
	formula, rest, ok := strings.Cut(text, "[")
	if !ok {
		return prover.Clause{}, fmt.Errorf(
			"%w: clause %s without inference annotation: %q", prover.ErrProtocol, label, text)
	}
	annotation, _, _ := strings.Cut(rest, "]")

	clause := prover.Clause{
		Label:     label,
		Role:      prover.RolePlain,
		Literals:  strings.TrimSpace(formula),
		BirthStep: prover.BirthStepUnset,
	}
	tokens := strings.Fields(annotation)
	switch {
	case len(tokens) > 1:
		clause.InferenceRule = strings.Join(tokens[:len(tokens)-1], "_")
		clause.InferenceParents = strings.Split(tokens[len(tokens)-1], ",")
	case len(tokens) == 1:
		clause.InferenceRule = tokens[0]
		if clause.InferenceRule == "input" {
			clause.Role = prover.RoleAxiom
		}
	}
	return clause, nil
}
