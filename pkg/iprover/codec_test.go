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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/saturation/pkg/prover"
)

// TestDecodeMessage parses the message kinds the relay sees.
func TestDecodeMessage(t *testing.T) {
	t.Run("control tag", func(t *testing.T) {
		msg, err := decodeMessage([]byte(`{"tag":"server_queries_start"}`))
		require.NoError(t, err)
		assert.Equal(t, TagQueriesStart, msg.Tag)
	})

	t.Run("clause batch", func(t *testing.T) {
		record := `{"tag":"passive_clauses","clauses":[` +
			`{"clause":"cnf(c_50,plain,(p(a)),inference(superposition,[status(thm)],[c_12,c_31])).",` +
			`"clause_features":{"born":3}}]}`
		msg, err := decodeMessage([]byte(record))
		require.NoError(t, err)
		require.Len(t, msg.Clauses, 1)
		assert.Equal(t, 3, msg.Clauses[0].Features.Born)
	})

	t.Run("szs status", func(t *testing.T) {
		msg, err := decodeMessage([]byte(`{"tag":"proof_out","szs_status":"% SZS status Unsatisfiable"}`))
		require.NoError(t, err)
		assert.Equal(t, TagSessionEnd, msg.Tag)
		assert.Contains(t, msg.SZSStatus, "Unsatisfiable")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := decodeMessage([]byte("not json at all"))
		assert.Error(t, err)
	})
}

// TestEncodeDecision checks the two-part response frame: acknowledgement
// then decision, each terminated by the record separator.
func TestEncodeDecision(t *testing.T) {
	frame, err := encodeDecision(42)
	require.NoError(t, err)

	parts := strings.Split(string(frame), RecordSeparator)
	require.Len(t, parts, 3, "two records plus a trailing empty segment")
	assert.Empty(t, parts[2])

	ack, err := decodeMessage([]byte(parts[0]))
	require.NoError(t, err)
	assert.Equal(t, TagQueriesEnd, ack.Tag)

	assert.JSONEq(t, `{"tag":"given_clause_res","given_clause":42,"passive_is_empty":false}`, parts[1])
}

// TestParseClause_InferenceRecord covers derived clauses, including
// pretty-printed multi-line text and the status annotation.
func TestParseClause_InferenceRecord(t *testing.T) {
	raw := "cnf(c_54, plain,\n" +
		"    ( p(X) | q(X) ),\n" +
		"    inference(superposition, [status(thm)], [c_12, c_31]) )."

	c, err := ParseClause(raw, 2)
	require.NoError(t, err)
	assert.Equal(t, "c_54", c.Label)
	assert.Equal(t, prover.RolePlain, c.Role)
	assert.Equal(t, "(p(X)|q(X))", c.Literals, "literals are whitespace-stripped")
	assert.Equal(t, "superposition", c.InferenceRule)
	assert.Equal(t, []string{"c_12", "c_31"}, c.InferenceParents)
	assert.Equal(t, 2, c.BirthStep)
}

// TestParseClause_FileProvenance checks input clauses become axioms with
// rule "input" no matter which file they came from.
func TestParseClause_FileProvenance(t *testing.T) {
	raw := "cnf(c_21,axiom,(p(a)),file('/tmp/TPTP/Problems/TST/TST001-1.p',c_21))."
	c, err := ParseClause(raw, prover.BirthStepUnset)
	require.NoError(t, err)
	assert.Equal(t, prover.RoleAxiom, c.Role)
	assert.Equal(t, "input", c.InferenceRule)
	assert.Empty(t, c.InferenceParents)
	assert.Equal(t, prover.BirthStepUnset, c.BirthStep)
}

// TestParseClause_NoParents covers an inference record with an empty
// premise list.
func TestParseClause_NoParents(t *testing.T) {
	raw := "cnf(c_9,plain,($false),inference(simplify,[status(thm)],[]))."
	c, err := ParseClause(raw, 4)
	require.NoError(t, err)
	assert.True(t, c.IsFalsehood())
	assert.Equal(t, "simplify", c.InferenceRule)
	assert.Empty(t, c.InferenceParents)
}

// TestParseClause_Unparsable checks off-format text is a protocol
// violation, not a silent skip.
func TestParseClause_Unparsable(t *testing.T) {
	tests := []string{
		"fof(f1,axiom,p(a),file('x.p',f1)).",
		"cnf(c_1,plain,p(a)).",
		"cnf(c_1,plain,p(a),inference(sup,[status(thm)],[c_2]))",
	}
	for _, raw := range tests {
		_, err := ParseClause(raw, 0)
		assert.ErrorIs(t, err, prover.ErrProtocol, "input: %q", raw)
	}
}

// TestRenderClause_RoundTrip checks ParseClause and RenderClause are
// mutually inverse on the normalized form.
func TestRenderClause_RoundTrip(t *testing.T) {
	raws := []string{
		"cnf(c_54,plain,(p(X)|q(X)),inference(superposition,[status(thm)],[c_12,c_31])).",
		"cnf(c_21,axiom,(p(a)),file('/some/where/TST001-1.p',c_21)).",
		"cnf(c_9,plain,($false),inference(simplify,[status(thm)],[c_54])).",
	}
	for _, raw := range raws {
		first, err := ParseClause(raw, 1)
		require.NoError(t, err)

		second, err := ParseClause(RenderClause(first), 1)
		require.NoError(t, err)
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("round trip mismatch for %q (-first +second):\n%s", raw, diff)
		}
	}
}

// TestRenderClause_NormalizesProvenance checks the rendered file path is
// the fixed synthetic marker, not the original path.
func TestRenderClause_NormalizesProvenance(t *testing.T) {
	c, err := ParseClause("cnf(c_21,axiom,(p(a)),file('/machine/specific/path.p',c_21)).", 0)
	require.NoError(t, err)
	rendered := RenderClause(c)
	assert.Contains(t, rendered, SyntheticSource)
	assert.NotContains(t, rendered, "/machine/specific")
}
