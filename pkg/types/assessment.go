// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the assessment-engine pipeline.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mode selects what the pipeline produces for a document.
type Mode string

const (
	ModeSummary   Mode = "summary"
	ModeQuiz      Mode = "quiz"
	ModeTheory    Mode = "theory"
	ModeQuestions Mode = "questions"
)

// Generative reports whether the mode produces structured items and
// therefore goes through parsing, validation, and fallback.
func (m Mode) Generative() bool {
	return m == ModeQuiz || m == ModeTheory || m == ModeQuestions
}

// ParseMode converts a user-supplied label into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeSummary, ModeQuiz, ModeTheory, ModeQuestions:
		return m, nil
	case "":
		return "", fmt.Errorf("mode is required")
	default:
		return "", fmt.Errorf("unknown mode %q: use summary, quiz, theory, or questions", s)
	}
}

// Difficulty is the requested difficulty label for generated items.
type Difficulty string

const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// ParseDifficulty converts a label into a Difficulty. An empty label
// yields DifficultyModerate.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return d, nil
	case "":
		return DifficultyModerate, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q: use easy, moderate, or hard", s)
	}
}

// DefaultItemCount is used when a request does not specify a count.
const DefaultItemCount = 5

// AssessmentRequest carries the per-request parameters.
type AssessmentRequest struct {
	Mode       Mode       `json:"mode" yaml:"mode"`
	Count      int        `json:"count" yaml:"count"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`

	// ConversationID, when set on a summary request, seeds that conversation
	// with the document excerpt and the summary.
	ConversationID string `json:"conversationId,omitempty" yaml:"conversation_id,omitempty"`
}

// Normalize validates the request and fills defaults.
func (r AssessmentRequest) Normalize() (AssessmentRequest, error) {
	mode, err := ParseMode(string(r.Mode))
	if err != nil {
		return r, err
	}
	diff, err := ParseDifficulty(string(r.Difficulty))
	if err != nil {
		return r, err
	}
	if r.Count < 0 {
		return r, fmt.Errorf("count must be positive, got %d", r.Count)
	}
	if r.Count == 0 {
		r.Count = DefaultItemCount
	}
	r.Mode = mode
	r.Difficulty = diff
	return r, nil
}

// QuizItem is a multiple-choice question. Options always has four entries
// and CorrectAnswerIndex is in [0,3].
type QuizItem struct {
	Question           string   `json:"question" yaml:"question" mapstructure:"question"`
	Options            []string `json:"options" yaml:"options" mapstructure:"options"`
	CorrectAnswerIndex int      `json:"correctAnswer" yaml:"correctAnswer" mapstructure:"correctAnswer"`
	Explanation        string   `json:"explanation" yaml:"explanation" mapstructure:"explanation"`
}

// TheoryItem is a long-form question with a model solution.
type TheoryItem struct {
	Question       string   `json:"question" yaml:"question" mapstructure:"question"`
	Points         int      `json:"points" yaml:"points" mapstructure:"points"`
	ExpectedLength string   `json:"expectedLength" yaml:"expectedLength" mapstructure:"expectedLength"`
	Solution       string   `json:"solution" yaml:"solution" mapstructure:"solution"`
	KeyPoints      []string `json:"keyPoints" yaml:"keyPoints" mapstructure:"keyPoints"`
}

// StudyItem is an open study prompt with a hint.
type StudyItem struct {
	Question string `json:"question" yaml:"question" mapstructure:"question"`
	Hint     string `json:"hint" yaml:"hint" mapstructure:"hint"`
}

// Source records where a payload's items came from. It is not part of the
// wire format; callers cannot tell model output from fallback output.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Payload is the per-mode response body.
type Payload struct {
	Mode   Mode   `json:"-" yaml:"-"`
	Source Source `json:"-" yaml:"-"`

	Summary              string `json:"summary,omitempty" yaml:"summary,omitempty"`
	ExtractedTextPreview string `json:"extractedTextPreview,omitempty" yaml:"extractedTextPreview,omitempty"`

	Quiz   []QuizItem   `json:"-" yaml:"-"`
	Theory []TheoryItem `json:"-" yaml:"-"`
	Study  []StudyItem  `json:"-" yaml:"-"`
}

// Len returns the number of items (or 1 for a summary).
func (p *Payload) Len() int {
	switch p.Mode {
	case ModeQuiz:
		return len(p.Quiz)
	case ModeTheory:
		return len(p.Theory)
	case ModeQuestions:
		return len(p.Study)
	default:
		return 1
	}
}

type quizBody struct {
	Questions []QuizItem `json:"questions" yaml:"questions"`
}

type theoryBody struct {
	TheoryQuestions []TheoryItem `json:"theoryQuestions" yaml:"theoryQuestions"`
}

type studyBody struct {
	Questions []StudyItem `json:"questions" yaml:"questions"`
}

type summaryBody struct {
	Summary              string `json:"summary" yaml:"summary"`
	ExtractedTextPreview string `json:"extractedTextPreview" yaml:"extractedTextPreview"`
}

// body returns the mode-specific response shape: quiz and questions share
// the "questions" key, theory uses "theoryQuestions".
func (p Payload) body() any {
	switch p.Mode {
	case ModeQuiz:
		return quizBody{p.Quiz}
	case ModeTheory:
		return theoryBody{p.Theory}
	case ModeQuestions:
		return studyBody{p.Study}
	default:
		return summaryBody{p.Summary, p.ExtractedTextPreview}
	}
}

// MarshalJSON emits the wire shape for p.Mode.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.body())
}

// MarshalYAML emits the same shape as MarshalJSON.
func (p Payload) MarshalYAML() (any, error) {
	return p.body(), nil
}
