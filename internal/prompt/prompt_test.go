// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/assessment-engine/pkg/types"
)

func TestBuildEmbedsParameters(t *testing.T) {
	text := "Cellular respiration converts glucose into usable energy in the form of ATP molecules.\n\nShort."

	tests := []struct {
		mode     types.Mode
		wantKeys []string
	}{
		{types.ModeQuiz, []string{`"correctAnswer"`, `"options"`, `"explanation"`}},
		{types.ModeTheory, []string{`"solution"`, `"keyPoints"`, `"expectedLength"`}},
		{types.ModeQuestions, []string{`"hint"`}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got, err := Build(tt.mode, text, 7, types.DifficultyHard)
			require.NoError(t, err)

			assert.Contains(t, got, "7 ")
			assert.Contains(t, got, "hard difficulty")
			assert.Contains(t, got, "ONLY a JSON array")
			assert.Contains(t, got, "code fences")
			assert.Contains(t, got, "- Cellular respiration converts glucose")
			assert.Contains(t, got, text)
			for _, k := range tt.wantKeys {
				assert.Contains(t, got, k)
			}
		})
	}
}

func TestBuildSummary(t *testing.T) {
	got, err := Build(types.ModeSummary, "Some document text.", 0, "")
	require.NoError(t, err)
	assert.Contains(t, got, "Summarize")
	assert.NotContains(t, got, "JSON array")
}

func TestBuildUnknownMode(t *testing.T) {
	_, err := Build("poetry", "text", 1, types.DifficultyEasy)
	assert.Error(t, err)
}

func TestBuildTruncatesToBudget(t *testing.T) {
	doc := strings.Repeat("x", QuizBudget) + "TAIL-MARKER"

	quiz, err := Build(types.ModeQuiz, doc, 5, types.DifficultyModerate)
	require.NoError(t, err)
	assert.NotContains(t, quiz, "TAIL-MARKER")
	assert.Contains(t, quiz, strings.Repeat("x", QuizBudget))

	theory, err := Build(types.ModeTheory, doc, 5, types.DifficultyModerate)
	require.NoError(t, err)
	assert.NotContains(t, theory, strings.Repeat("x", TheoryBudget+1))
}

func TestBuildDeterministic(t *testing.T) {
	text := strings.Repeat("Enzymes lower the activation energy of reactions. ", 40)
	a, err := Build(types.ModeQuiz, text, 3, types.DifficultyEasy)
	require.NoError(t, err)
	b, err := Build(types.ModeQuiz, text, 3, types.DifficultyEasy)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestKeyTopics(t *testing.T) {
	long := func(prefix string) string { return prefix + strings.Repeat(" filler", 30) }
	paras := []string{
		"too short",
		long("alpha"),
		long("beta"),
		"exactly fifty characters long, not more, not less.",
		long("gamma"),
		long("delta"),
		long("epsilon"),
		long("zeta"),
	}
	got := KeyTopics(strings.Join(paras, "\n\n"))
	lines := strings.Split(got, "\n")

	require.Len(t, lines, maxKeyTopics)
	for i, want := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		assert.True(t, strings.HasPrefix(lines[i], "- "+want), "line %d = %q", i, lines[i])
		assert.LessOrEqual(t, utf8.RuneCountInString(lines[i]), topicPreviewChars+2)
	}
	assert.NotContains(t, got, "zeta")
	assert.NotContains(t, got, "too short")
}

func TestKeyTopicsNone(t *testing.T) {
	assert.Equal(t, "- (no distinct topics detected)", KeyTopics("tiny\n\ntext"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "", Truncate("héllo", 0))
}

func TestChat(t *testing.T) {
	history := []types.Message{
		{Role: types.RoleDocument, Content: "Photosynthesis happens in chloroplasts."},
		{Role: types.RoleAssistant, Content: "The document covers photosynthesis."},
	}
	got, err := Chat(history, "Where does it happen?")
	require.NoError(t, err)

	assert.Contains(t, got, "document: Photosynthesis happens in chloroplasts.")
	assert.Contains(t, got, "assistant: The document covers photosynthesis.")
	assert.True(t, strings.HasSuffix(got, "user: Where does it happen?\nassistant:"))
}
