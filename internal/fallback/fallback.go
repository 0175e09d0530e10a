// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fallback builds minimal valid assessment items directly from the
// source text when model output is unusable. Every function here is
// deterministic and returns at least one item.
package fallback

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/assessment-engine/pkg/types"
)

const (
	minSentenceChars = 30
	maxSentenceChars = 200 // exclusive
	maxQuizItems     = 5
	maxStudyItems    = 5
	maxTheoryItems   = 3
	quoteChars       = 120
	minPassageChars  = 40
	passagesPerItem  = 3
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+`)

var distractors = [3]string{
	"This statement is not supported by the document.",
	"The document states the opposite of this.",
	"The document does not discuss this topic.",
}

// Sentences splits text on terminal punctuation into sentence candidates
// in order; text after the last terminal punctuation is kept as a final
// candidate. Line breaks are not boundaries. Whitespace runs inside a
// candidate collapse to one space, so every candidate is a substring of
// collapseSpace(text).
func Sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if s := collapseSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if rest := collapseSpace(text[last:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

// collapseSpace trims s and replaces every whitespace run with one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// qualifying returns sentences whose length lies in [30, 200) characters.
func qualifying(text string) []string {
	var out []string
	for _, s := range Sentences(text) {
		n := utf8.RuneCountInString(s)
		if n >= minSentenceChars && n < maxSentenceChars {
			out = append(out, s)
		}
	}
	return out
}

// Quote returns a prefix of s of at most limit characters, cut at a word
// boundary when one exists in the second half. It never adds an ellipsis,
// so the result stays a verbatim substring of s.
func Quote(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:limit])
	if i := strings.LastIndexAny(cut, " \t"); i >= len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \t,;:")
}

func clampCount(count, limit, available int) int {
	if count < 1 {
		count = 1
	}
	return min(count, limit, available)
}

// Quiz builds up to min(count, 5) items, one per qualifying sentence. The
// correct option is always index 0 and quotes the sentence.
func Quiz(text string, count int) []types.QuizItem {
	sentences := qualifying(text)
	n := clampCount(count, maxQuizItems, len(sentences))
	if n == 0 {
		return []types.QuizItem{genericQuiz(text)}
	}

	items := make([]types.QuizItem, n)
	for i := range n {
		items[i] = types.QuizItem{
			Question:           fmt.Sprintf("Which of the following statements is supported by the document? (passage %d)", i+1),
			Options:            []string{Quote(sentences[i], quoteChars), distractors[0], distractors[1], distractors[2]},
			CorrectAnswerIndex: 0,
			Explanation:        "The correct option is quoted directly from the document.",
		}
	}
	return items
}

func genericQuiz(text string) types.QuizItem {
	excerpt := firstLine(text)
	if excerpt == "" {
		excerpt = "The document contains no readable text."
	}
	return types.QuizItem{
		Question:           "Which of the following is an excerpt from the uploaded document?",
		Options:            []string{Quote(excerpt, quoteChars), distractors[0], distractors[1], distractors[2]},
		CorrectAnswerIndex: 0,
		Explanation:        "The correct option is taken from the beginning of the document.",
	}
}

var theoryQuestions = [maxTheoryItems]string{
	"Explain the key concepts presented in the document and how they relate to each other.",
	"Describe the main process or argument covered in the document, using examples from the text.",
	"Discuss the significance of the conclusions or findings presented in the document.",
}

var theoryKeyPoints = []string{
	"Identifies the main concepts in the document",
	"Explains how the ideas relate to each other",
	"Supports the answer with evidence from the document",
}

const (
	theoryLeadIn  = "A complete answer should draw on the following material from the document: "
	theoryPoints  = 10
	theoryLength  = "2-3 paragraphs"
	studyHint     = "Re-read this passage in the document and restate it in your own words."
	genericStudyQ = "What are the main ideas of the document, and how are they connected?"
)

// Theory builds up to min(count, 3) generic concept questions. Each
// solution concatenates up to three passages of the source, rotating
// through the passage list per item.
func Theory(text string, count int) []types.TheoryItem {
	passages := theoryPassages(text)
	n := clampCount(count, maxTheoryItems, maxTheoryItems)

	items := make([]types.TheoryItem, n)
	for i := range n {
		var picked []string
		for j := 0; j < passagesPerItem && j < len(passages); j++ {
			picked = append(picked, passages[(i*passagesPerItem+j)%len(passages)])
		}
		items[i] = types.TheoryItem{
			Question:       theoryQuestions[i],
			Points:         theoryPoints,
			ExpectedLength: theoryLength,
			Solution:       theoryLeadIn + strings.Join(picked, " "),
			KeyPoints:      append([]string(nil), theoryKeyPoints...),
		}
	}
	return items
}

// theoryPassages prefers paragraphs of at least 40 characters, then any
// sentence, then the whole text.
func theoryPassages(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) >= minPassageChars {
			paras = append(paras, p)
		}
	}
	if len(paras) > 0 {
		return paras
	}
	if s := Sentences(text); len(s) > 0 {
		return s
	}
	if t := strings.TrimSpace(text); t != "" {
		return []string{t}
	}
	return []string{"the document did not contain readable text"}
}

// Study builds up to min(count, 5) review prompts from qualifying
// sentences, or one generic prompt.
func Study(text string, count int) []types.StudyItem {
	sentences := qualifying(text)
	n := clampCount(count, maxStudyItems, len(sentences))
	if n == 0 {
		return []types.StudyItem{{Question: genericStudyQ, Hint: "Skim the headings and first sentences of each section."}}
	}
	items := make([]types.StudyItem, n)
	for i := range n {
		items[i] = types.StudyItem{
			Question: fmt.Sprintf("Explain in your own words: %q", Quote(sentences[i], quoteChars)),
			Hint:     studyHint,
		}
	}
	return items
}

// Fill stores fallback items for p.Mode on p and marks the payload as
// fallback-sourced. Non-generative modes are left untouched.
func Fill(p *types.Payload, text string, count int) {
	switch p.Mode {
	case types.ModeQuiz:
		p.Quiz = Quiz(text, count)
	case types.ModeTheory:
		p.Theory = Theory(text, count)
	case types.ModeQuestions:
		p.Study = Study(text, count)
	default:
		return
	}
	p.Source = types.SourceFallback
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}
