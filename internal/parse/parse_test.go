// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreambleAndFence(t *testing.T) {
	reply := "Sure! Here are your questions:\n\n```json\n" +
		`[{"question": "Which organelle produces ATP?", "options": ["Nucleus", "Mitochondrion", "Ribosome", "Golgi"], "correctAnswer": 1, "explanation": "Mitochondria run respiration."}]` +
		"\n```\nLet me know if you need more."

	res, err := Parse(reply)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, float64(1), res.Records[0]["correctAnswer"])
	assert.Empty(t, res.Repairs)
}

func TestParseFencedTrailingCommasAndSingleQuotes(t *testing.T) {
	reply := "```\n[\n  {'question': 'What is osmosis?', 'options': ['a', 'b', 'c', 'd',], 'correctAnswer': 2,},\n  {'question': 'Define entropy', 'hint': 'Think about disorder',},\n  {'question': 'Which layer, transport: or network, handles routing?', 'hint': 'Recall the OSI model, layer 3.',},\n]\n```"
	corrected := `[{"question": "What is osmosis?", "options": ["a", "b", "c", "d"], "correctAnswer": 2},
		{"question": "Define entropy", "hint": "Think about disorder"},
		{"question": "Which layer, transport: or network, handles routing?", "hint": "Recall the OSI model, layer 3."}]`

	res, err := Parse(reply)
	require.NoError(t, err)

	var want []map[string]any
	require.NoError(t, json.Unmarshal([]byte(corrected), &want))
	require.Len(t, res.Records, len(want))
	for i := range want {
		assert.Equal(t, want[i], map[string]any(res.Records[i]))
	}
	assert.Contains(t, res.Repairs, "trailing-commas")
	assert.Contains(t, res.Repairs, "single-quotes")
}

func TestParseBareKeysAndRawNewlines(t *testing.T) {
	reply := "[{question: \"Explain the water cycle\nin detail\", points: 10}]"

	res, err := Parse(reply)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Explain the water cycle in detail", res.Records[0]["question"])
	assert.Equal(t, []string{"bare-keys", "raw-whitespace"}, res.Repairs)
}

func TestParseBareKeysKeepSingleQuotedValues(t *testing.T) {
	reply := "[{question: 'Which layer, transport: or network, handles routing?', options: ['Transport', 'Network', 'Session', 'Link'], correctAnswer: 1}]"

	res, err := Parse(reply)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Which layer, transport: or network, handles routing?", res.Records[0]["question"])
	assert.Equal(t, []any{"Transport", "Network", "Session", "Link"}, res.Records[0]["options"])
	assert.Equal(t, []string{"bare-keys", "single-quotes"}, res.Repairs)
}

func TestParseSkipsNonObjects(t *testing.T) {
	res, err := Parse(`[1, "two", {"question": "kept"}, null]`)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "kept", res.Records[0]["question"])
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantStage string
	}{
		{name: "no brackets at all", reply: "I could not generate questions for this document.", wantStage: StageExtract},
		{name: "empty reply", reply: "", wantStage: StageExtract},
		{name: "closing before opening", reply: "] oops [", wantStage: StageExtract},
		{name: "bracketed prose", reply: "See [1] and [2] for details.", wantStage: StageDecode},
		{name: "array of scalars", reply: "[1, 2, 3]", wantStage: StageDecode},
		{name: "unrecoverable syntax", reply: `[{"question": "a" "options": }]`, wantStage: StageDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.reply)
			var perr *Error
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, tt.wantStage, perr.Stage)
			if tt.wantStage == StageDecode {
				assert.NotEmpty(t, perr.Candidate)
			}
		})
	}
}

func TestExtractArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "greedy object array", in: `x [{"a":1}, {"b":2}] y`, want: `[{"a":1}, {"b":2}]`, ok: true},
		{name: "fallback slice", in: `list: [1, 2] end`, want: `[1, 2]`, ok: true},
		{name: "prose brackets widen the slice", in: `[note] then [1]`, want: `[note] then [1]`, ok: true},
		{name: "nothing", in: "plain", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractArray(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `[{"a":1}]`, StripFences("```json\n[{\"a\":1}]\n```"))
	assert.Equal(t, `[{"a":1}]`, StripFences("  [{\"a\":1}]  "))
}
