// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the instruction text sent to the generative model
// for each assessment mode. Rendering is deterministic and side-effect free.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/pdiddy/assessment-engine/pkg/types"
)

// Character budgets for the document excerpt embedded in each prompt.
const (
	QuizBudget      = 12000
	TheoryBudget    = 8000
	QuestionsBudget = 8000
	SummaryBudget   = 10000
)

const (
	maxKeyTopics      = 5
	minTopicChars     = 50
	topicPreviewChars = 120
)

// Budget returns the document character budget for mode.
func Budget(mode types.Mode) int {
	switch mode {
	case types.ModeQuiz:
		return QuizBudget
	case types.ModeTheory:
		return TheoryBudget
	case types.ModeQuestions:
		return QuestionsBudget
	default:
		return SummaryBudget
	}
}

const strictArrayRule = `Respond with ONLY a JSON array. Do not write any text before or after the array. Do not wrap the array in code fences or markdown.`

var quizTmpl = template.Must(template.New("quiz").Parse(`You are an assessment author. Write {{.Count}} multiple-choice questions at {{.Difficulty}} difficulty that test understanding of the document below.

{{.Guidance}}

Rules:
- Every question must be answerable from the document alone.
- Each question has exactly 4 options and exactly one correct option.
- "correctAnswer" is the zero-based index (0-3) of the correct option.
- "explanation" says why the correct option is right, citing the document.

Key topics:
{{.KeyTopics}}

` + strictArrayRule + ` Each element must have this shape:
[{"question": "...", "options": ["...", "...", "...", "..."], "correctAnswer": 0, "explanation": "..."}]

Document:
{{.Document}}
`))

var theoryTmpl = template.Must(template.New("theory").Parse(`You are an assessment author. Write {{.Count}} long-answer theory questions at {{.Difficulty}} difficulty based on the document below.

{{.Guidance}}

Rules:
- Each question must be at least 20 characters and require explanation, not recall of a single fact.
- "points" is the integer mark allocation.
- "expectedLength" describes the expected answer length, for example "2-3 paragraphs".
- "solution" is a model answer of at least 50 characters grounded in the document.
- "keyPoints" lists the ideas a complete answer must cover.

Key topics:
{{.KeyTopics}}

` + strictArrayRule + ` Each element must have this shape:
[{"question": "...", "points": 10, "expectedLength": "...", "solution": "...", "keyPoints": ["...", "..."]}]

Document:
{{.Document}}
`))

var questionsTmpl = template.Must(template.New("questions").Parse(`You are a study coach. Write {{.Count}} open study questions at {{.Difficulty}} difficulty that a student could use to review the document below.

{{.Guidance}}

Key topics:
{{.KeyTopics}}

` + strictArrayRule + ` Each element must have this shape:
[{"question": "...", "hint": "..."}]

Document:
{{.Document}}
`))

var summaryTmpl = template.Must(template.New("summary").Parse(`Summarize the document below for a student. Cover the main ideas, important definitions, and any conclusions. Use short paragraphs.

Key topics:
{{.KeyTopics}}

Document:
{{.Document}}
`))

var chatTmpl = template.Must(template.New("chat").Parse(`You are a tutor answering questions about a document the student uploaded. Answer only from the conversation so far; say so if the document does not cover the question.
{{range .History}}
{{.Role}}: {{.Content}}
{{end}}
user: {{.Question}}
assistant:`))

var difficultyGuidance = map[types.Difficulty]string{
	types.DifficultyEasy:     "Focus on definitions and facts stated directly in the text.",
	types.DifficultyModerate: "Mix direct recall with questions that connect two related ideas.",
	types.DifficultyHard:     "Prefer questions that require applying or comparing concepts rather than recalling them.",
}

type promptData struct {
	Count      int
	Difficulty types.Difficulty
	Guidance   string
	KeyTopics  string
	Document   string
}

// Build renders the prompt for mode. The document text is truncated to the
// mode's budget and a key-topics excerpt is derived from its paragraphs.
func Build(mode types.Mode, text string, count int, difficulty types.Difficulty) (string, error) {
	var tmpl *template.Template
	switch mode {
	case types.ModeQuiz:
		tmpl = quizTmpl
	case types.ModeTheory:
		tmpl = theoryTmpl
	case types.ModeQuestions:
		tmpl = questionsTmpl
	case types.ModeSummary:
		tmpl = summaryTmpl
	default:
		return "", fmt.Errorf("no prompt for mode %q", mode)
	}

	data := promptData{
		Count:      count,
		Difficulty: difficulty,
		Guidance:   difficultyGuidance[difficulty],
		KeyTopics:  KeyTopics(text),
		Document:   Truncate(text, Budget(mode)),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", mode, err)
	}
	return buf.String(), nil
}

// Chat renders a follow-up question against a conversation history.
func Chat(history []types.Message, question string) (string, error) {
	var buf bytes.Buffer
	err := chatTmpl.Execute(&buf, struct {
		History  []types.Message
		Question string
	}{History: history, Question: question})
	if err != nil {
		return "", fmt.Errorf("rendering chat prompt: %w", err)
	}
	return buf.String(), nil
}

// KeyTopics returns a bullet list of the first paragraphs longer than the
// minimum length, each cut to a short preview.
func KeyTopics(text string) string {
	var topics []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.Join(strings.Fields(para), " ")
		if utf8.RuneCountInString(para) <= minTopicChars {
			continue
		}
		topics = append(topics, "- "+Truncate(para, topicPreviewChars))
		if len(topics) == maxKeyTopics {
			break
		}
	}
	if len(topics) == 0 {
		return "- (no distinct topics detected)"
	}
	return strings.Join(topics, "\n")
}

// Truncate returns at most limit characters of s, cut on a rune boundary.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
