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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/saturation/pkg/prover"
)

// TestParseResponse_RetainAndIgnore feeds a realistic output block and
// checks the retain/ignore partition of event tags.
func TestParseResponse_RetainAndIgnore(t *testing.T) {
	output := strings.Join([]string{
		"% Running in auto input_syntax mode.",
		"[PP] input: 1. p(a) [input]",
		"[SA] new: 2. ~p(X) | q(X) [input]",
		"[SA] passive: 2. ~p(X) | q(X) [input]",
		"[SA] active: 2. ~p(X) | q(X) [input]",
		"[SA] new: 3. q(a) [resolution 1,2]",
		"[SA] forward reduce: 3. q(a) [resolution 1,2]",
		"[SA] fn def discovered: 4. f(X) = g(X) [function definition 3]",
		"Pick a clause:",
	}, "\n")

	clauses, events, err := parseResponse(output)
	require.NoError(t, err)
	assert.Equal(t, 7, events, "every marker line is a recognized event")

	var labels []string
	for _, c := range clauses {
		labels = append(labels, c.Label)
	}
	// Retained: new, passive, fn def discovered. Ignored: input, active,
	// forward reduce.
	assert.Equal(t, []string{"2", "2", "3", "4"}, labels)
}

// TestParseResponse_RuleAndParents checks annotation splitting: last
// token is the parent list, the rest is the rule name.
func TestParseResponse_RuleAndParents(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantRule    string
		wantParents []string
		wantRole    prover.Role
	}{
		{
			name:        "single parent rule",
			line:        "[SA] new: 5. q(a) [resolution 1,2]",
			wantRule:    "resolution",
			wantParents: []string{"1", "2"},
			wantRole:    prover.RolePlain,
		},
		{
			name:        "multi word rule",
			line:        "[SA] new: 6. r(b) [forward demodulation 5,3]",
			wantRule:    "forward_demodulation",
			wantParents: []string{"5", "3"},
			wantRole:    prover.RolePlain,
		},
		{
			name:     "input clause",
			line:     "[SA] new: 7. p(a) [input]",
			wantRule: "input",
			wantRole: prover.RoleAxiom,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clauses, _, err := parseResponse(tt.line)
			require.NoError(t, err)
			require.Len(t, clauses, 1)
			c := clauses[0]
			assert.Equal(t, tt.wantRule, c.InferenceRule)
			assert.Equal(t, tt.wantParents, c.InferenceParents)
			assert.Equal(t, tt.wantRole, c.Role)
			assert.Equal(t, prover.BirthStepUnset, c.BirthStep)
		})
	}
}

// TestParseResponse_UnknownTag checks the closed-enumeration rule: an
// unrecognized tag is a protocol violation naming the tag.
func TestParseResponse_UnknownTag(t *testing.T) {
	_, _, err := parseResponse("[SA] mystery event: 9. p(a) [input]")
	require.Error(t, err)
	assert.ErrorIs(t, err, prover.ErrProtocol)
	assert.Contains(t, err.Error(), "mystery event")
}

// TestParseResponse_MalformedLines checks marker lines that do not fit
// the event shape are rejected, not skipped.
func TestParseResponse_MalformedLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"no tag separator", "[SA] new 9. p(a) [input]"},
		{"no clause label", "[SA] new: p(a) [input]"},
		{"no annotation", "[SA] new: 9. p(a)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseResponse(tt.line)
			assert.ErrorIs(t, err, prover.ErrProtocol)
		})
	}
}

// TestParseResponse_NonMarkerLinesSkipped checks banners and summaries
// between events are ignored without error.
func TestParseResponse_NonMarkerLinesSkipped(t *testing.T) {
	output := strings.Join([]string{
		"% SZS status Unsatisfiable for TST001-1",
		"% Refutation found. Thanks to Tanya!",
		"[SA] new: 2. $false [subsumption resolution 1,4]",
		"% Memory used [KB]: 1024",
	}, "\n")

	clauses, events, err := parseResponse(output)
	require.NoError(t, err)
	assert.Equal(t, 1, events)
	require.Len(t, clauses, 1)
	assert.True(t, clauses[0].IsFalsehood())
	assert.Equal(t, "subsumption_resolution", clauses[0].InferenceRule)
}

// TestParseResponse_CarriageReturns tolerates CRLF output.
func TestParseResponse_CarriageReturns(t *testing.T) {
	clauses, _, err := parseResponse("[SA] new: 2. p(a) [input]\r\n")
	require.NoError(t, err)
	require.Len(t, clauses, 1)
	assert.Equal(t, "p(a)", clauses[0].Literals)
}
