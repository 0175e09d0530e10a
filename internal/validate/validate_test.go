// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/assessment-engine/internal/parse"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

func quizRecord() parse.Record {
	return parse.Record{
		"question":      "Which organelle produces most ATP?",
		"options":       []any{"Nucleus", "Mitochondrion", "Ribosome", "Golgi body"},
		"correctAnswer": float64(1),
		"explanation":   "Oxidative phosphorylation happens in mitochondria.",
	}
}

func with(rec parse.Record, key string, v any) parse.Record {
	out := parse.Record{}
	for k, val := range rec {
		out[k] = val
	}
	if v == nil {
		delete(out, key)
	} else {
		out[key] = v
	}
	return out
}

func TestQuiz(t *testing.T) {
	tests := []struct {
		name   string
		rec    parse.Record
		accept bool
	}{
		{name: "valid", rec: quizRecord(), accept: true},
		{name: "short question", rec: with(quizRecord(), "question", "What is?"), accept: false},
		{name: "question of exactly ten chars", rec: with(quizRecord(), "question", "0123456789"), accept: false},
		{name: "three options", rec: with(quizRecord(), "options", []any{"a", "b", "c"}), accept: false},
		{name: "five options", rec: with(quizRecord(), "options", []any{"a", "b", "c", "d", "e"}), accept: false},
		{name: "blank option", rec: with(quizRecord(), "options", []any{"a", " ", "c", "d"}), accept: false},
		{name: "non-string option", rec: with(quizRecord(), "options", []any{"a", 2.0, "c", "d"}), accept: false},
		{name: "index out of range", rec: with(quizRecord(), "correctAnswer", float64(4)), accept: false},
		{name: "negative index", rec: with(quizRecord(), "correctAnswer", float64(-1)), accept: false},
		{name: "fractional index", rec: with(quizRecord(), "correctAnswer", 1.5), accept: false},
		{name: "string index", rec: with(quizRecord(), "correctAnswer", "1"), accept: false},
		{name: "missing explanation", rec: with(quizRecord(), "explanation", nil), accept: false},
		{name: "empty explanation", rec: with(quizRecord(), "explanation", ""), accept: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, rep, err := Quiz([]parse.Record{tt.rec})
			require.NoError(t, err)
			if tt.accept {
				require.Len(t, items, 1)
				assert.Equal(t, Report{Accepted: 1}, rep)
				return
			}
			assert.Empty(t, items)
			assert.Equal(t, Report{Dropped: 1}, rep)
		})
	}
}

func TestQuizDecodes(t *testing.T) {
	items, _, err := Quiz([]parse.Record{quizRecord()})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.QuizItem{
		Question:           "Which organelle produces most ATP?",
		Options:            []string{"Nucleus", "Mitochondrion", "Ribosome", "Golgi body"},
		CorrectAnswerIndex: 1,
		Explanation:        "Oxidative phosphorylation happens in mitochondria.",
	}, items[0])
}

func TestQuizAliases(t *testing.T) {
	rec := parse.Record{
		"question":           "Which gas do plants absorb?",
		"choices":            []any{"Oxygen", "Carbon dioxide", "Nitrogen", "Helium"},
		"correctAnswerIndex": float64(1),
		"explanation":        "Photosynthesis fixes CO2.",
	}
	items, rep, err := Quiz([]parse.Record{rec})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, rep.Accepted)
	assert.Equal(t, 1, items[0].CorrectAnswerIndex)
	assert.Equal(t, "Carbon dioxide", items[0].Options[1])

	// The canonical key wins over an alias.
	both := with(quizRecord(), "answer", float64(3))
	items, _, err = Quiz([]parse.Record{both})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].CorrectAnswerIndex)
}

func TestQuizMixedBatch(t *testing.T) {
	records := []parse.Record{
		quizRecord(),
		with(quizRecord(), "options", []any{"only one"}),
		with(quizRecord(), "question", "Which enzyme unwinds DNA?"),
	}
	items, rep, err := Quiz(records)
	require.NoError(t, err)
	assert.Equal(t, Report{Accepted: 2, Dropped: 1}, rep)
	require.Len(t, items, 2)
	assert.Equal(t, "Which enzyme unwinds DNA?", items[1].Question)
}

func theoryRecord() parse.Record {
	return parse.Record{
		"question":        "Explain how natural selection drives adaptation.",
		"points":          float64(10),
		"expected_length": "2-3 paragraphs",
		"solution":        strings.Repeat("Organisms with favorable traits reproduce more. ", 3),
		"key_points":      []any{"variation", "heritability", "differential survival"},
	}
}

func TestTheory(t *testing.T) {
	tests := []struct {
		name   string
		rec    parse.Record
		accept bool
	}{
		{name: "valid with snake_case aliases", rec: theoryRecord(), accept: true},
		{name: "short question", rec: with(theoryRecord(), "question", "Explain evolution."), accept: false},
		{name: "short solution", rec: with(theoryRecord(), "solution", "Too brief."), accept: false},
		{name: "points not integer", rec: with(theoryRecord(), "points", "ten"), accept: false},
		{name: "key points not strings", rec: with(theoryRecord(), "key_points", []any{1.0}), accept: false},
		{name: "missing key points", rec: with(theoryRecord(), "key_points", nil), accept: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, rep, err := Theory([]parse.Record{tt.rec})
			require.NoError(t, err)
			if !tt.accept {
				assert.Empty(t, items)
				assert.Equal(t, 1, rep.Dropped)
				return
			}
			require.Len(t, items, 1)
			assert.Equal(t, 10, items[0].Points)
			assert.Equal(t, "2-3 paragraphs", items[0].ExpectedLength)
			assert.Equal(t, []string{"variation", "heritability", "differential survival"}, items[0].KeyPoints)
		})
	}
}

func TestStudy(t *testing.T) {
	records := []parse.Record{
		{"question": "What limits enzyme activity?", "hint": "Temperature and pH"},
		{"question": "Why do cells divide?"},
		{"question": "   "},
		{"hint": "orphan hint"},
	}
	items, rep, err := Study(records)
	require.NoError(t, err)
	assert.Equal(t, Report{Accepted: 2, Dropped: 2}, rep)
	require.Len(t, items, 2)
	assert.Equal(t, types.StudyItem{Question: "What limits enzyme activity?", Hint: "Temperature and pH"}, items[0])
	assert.Equal(t, "", items[1].Hint)
}

func TestInto(t *testing.T) {
	p := &types.Payload{Mode: types.ModeQuiz}
	rep, err := Into(p, []parse.Record{quizRecord()})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Accepted)
	assert.Len(t, p.Quiz, 1)

	_, err = Into(&types.Payload{Mode: types.ModeSummary}, nil)
	assert.Error(t, err)
}
