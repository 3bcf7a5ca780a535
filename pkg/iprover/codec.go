// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package iprover

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	jsoniter "github.com/json-iterator/go"

	"github.com/AleutianAI/saturation/pkg/prover"
)

// json is the codec for relay wire messages. iProver emits plain UTF-8
// JSON; the drop-in config keeps the behavior of encoding/json.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// =============================================================================
// WIRE MESSAGES
// =============================================================================

// Message is one framed JSON object of the relay protocol. Every object
// carries a tag; the remaining fields are populated per message kind.
type Message struct {
	// Tag names the message kind. Control tags are TagQueriesStart and
	// TagSessionEnd; everything else is data.
	Tag string `json:"tag"`

	// Clauses carries a batch of annotated clauses, when present.
	Clauses []BatchClause `json:"clauses,omitempty"`

	// SZSStatus carries the prover's final SZS verdict, when present.
	SZSStatus string `json:"szs_status,omitempty"`
}

// BatchClause is one element of a clauses batch.
type BatchClause struct {
	// Clause is the TPTP-style annotated clause text.
	Clause string `json:"clause"`

	// Features carries per-clause bookkeeping.
	Features ClauseFeatures `json:"clause_features,omitempty"`
}

// ClauseFeatures is the subset of iProver's clause bookkeeping this
// package reads.
type ClauseFeatures struct {
	// Born is the 1-based step at which the clause was generated.
	Born int `json:"born,omitempty"`
}

// queriesEndMsg acknowledges a request batch.
type queriesEndMsg struct {
	Tag string `json:"tag"`
}

// givenClauseMsg carries the clause-selection decision.
type givenClauseMsg struct {
	Tag            string `json:"tag"`
	GivenClause    int    `json:"given_clause"`
	PassiveIsEmpty bool   `json:"passive_is_empty"`
}

// decodeMessage parses one reassembled wire record.
func decodeMessage(record []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(record, &msg); err != nil {
		return Message{}, fmt.Errorf("decode relay record %q: %w", record, err)
	}
	return msg, nil
}

// encodeDecision frames the two-part response to a request batch: the
// queries-end acknowledgement followed by the clause-selection decision,
// each independently terminated by the record separator.
func encodeDecision(givenClause int) ([]byte, error) {
	ack, err := json.Marshal(queriesEndMsg{Tag: TagQueriesEnd})
	if err != nil {
		return nil, fmt.Errorf("encode queries-end: %w", err)
	}
	decision, err := json.Marshal(givenClauseMsg{
		Tag:         TagGivenClause,
		GivenClause: givenClause,
	})
	if err != nil {
		return nil, fmt.Errorf("encode given-clause: %w", err)
	}
	var frame []byte
	frame = append(frame, ack...)
	frame = append(frame, RecordSeparator...)
	frame = append(frame, decision...)
	frame = append(frame, RecordSeparator...)
	return frame, nil
}

// =============================================================================
// CLAUSE TEXT CODEC
// =============================================================================

// clausePattern matches one whitespace-stripped annotated clause:
//
//	cnf(<label>,<role>,<literals>,<inference-record>).
//
// where the inference record is either an inference(...) term or a
// file(...) provenance term. The format is a fixed microformat, not a
// grammar; the pattern is deliberately narrow.
var clausePattern = regexp.MustCompile(`^cnf\((\w+),(\w+),(.+),((?:inference|file)\(.+)\)\.$`)

// inferencePattern extracts the rule name and the parent list from an
// inference record with its status annotation already stripped.
var inferencePattern = regexp.MustCompile(`^inference\((\w+),\[[^\[\]]*\],\[(.*)\]\)$`)

// statusPattern matches the [status(...)] annotation inside an inference
// record.
var statusPattern = regexp.MustCompile(`\[status\([^)]*\)\]`)

// SyntheticSource is the provenance file name given to re-materialized
// input clauses. iProver reports the real path the clause came from;
// rendering normalizes it to this fixed marker so that rendered clause
// sets are position-independent.
const SyntheticSource = "input_file.p"

// ParseClause parses one TPTP-style annotated clause from a relay batch.
//
// Description:
//
//	The raw text is stripped of all whitespace and matched against the
//	fixed clause pattern. Clauses whose inference record indicates file
//	provenance become axiom-role records with rule "input"; all others
//	become plain-role records with the rule and parent labels extracted
//	from the inference record (status annotation dropped).
//
// Inputs:
//
//	raw - The annotated clause text, possibly multi-line.
//	birthStep - The birth step to stamp, or prover.BirthStepUnset.
//
// Outputs:
//
//	prover.Clause - The parsed record.
//	error - prover.ErrProtocol when the text does not match the format.
func ParseClause(raw string, birthStep int) (prover.Clause, error) {
	stripped := stripSpace(raw)
	m := clausePattern.FindStringSubmatch(stripped)
	if m == nil {
		return prover.Clause{}, fmt.Errorf("%w: unparsable clause %q", prover.ErrProtocol, stripped)
	}
	label, literals, record := m[1], m[3], m[4]

	clause := prover.Clause{
		Label:     label,
		Literals:  literals,
		BirthStep: birthStep,
	}
	if strings.HasPrefix(record, "file(") {
		clause.Role = prover.RoleAxiom
		clause.InferenceRule = "input"
		return clause, nil
	}

	record = statusPattern.ReplaceAllString(record, "[]")
	im := inferencePattern.FindStringSubmatch(record)
	if im == nil {
		return prover.Clause{}, fmt.Errorf(
			"%w: unparsable inference record %q in clause %s", prover.ErrProtocol, record, label)
	}
	clause.Role = prover.RolePlain
	clause.InferenceRule = im[1]
	if im[2] != "" {
		clause.InferenceParents = strings.Split(im[2], ",")
	}
	return clause, nil
}

// RenderClause reproduces the normalized textual form of a clause parsed
// by ParseClause.
//
// Parsing a rendered clause yields the same record back: ParseClause and
// RenderClause are mutually inverse on the normalized form. The only
// lossy step is the first parse, which normalizes file provenance to
// SyntheticSource and drops the status annotation.
func RenderClause(c prover.Clause) string {
	if c.Role == prover.RoleAxiom {
		return fmt.Sprintf("cnf(%s,axiom,%s,file('%s',%s)).",
			c.Label, c.Literals, SyntheticSource, c.Label)
	}
	return fmt.Sprintf("cnf(%s,plain,%s,inference(%s,[],[%s])).",
		c.Label, c.Literals, c.InferenceRule, strings.Join(c.InferenceParents, ","))
}

// stripSpace removes every whitespace rune. iProver pretty-prints
// clauses across lines; the wire format is defined on the stripped text.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
