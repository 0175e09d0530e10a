// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package parse recovers an array of JSON objects from a model reply that
// may be wrapped in code fences or prose and may contain common syntax
// slips. Recovery runs in fixed tiers: fence stripping, structural
// extraction, ordered syntactic repairs, and decoding.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Record is one decoded object from the reply, not yet validated.
type Record = map[string]any

// Result is a successful parse: at least one record.
type Result struct {
	Records []Record

	// Repairs names the repairs that changed the candidate, in order.
	Repairs []string
}

// Stage names where parsing failed.
const (
	StageExtract = "extract"
	StageDecode  = "decode"
)

// Error reports a parse failure. Candidate holds the text that reached the
// failing stage.
type Error struct {
	Stage     string
	Candidate string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %v", e.Stage, e.Err)
	}
	return "parse " + e.Stage + ": no array found"
}

func (e *Error) Unwrap() error { return e.Err }

var (
	fenceRe = regexp.MustCompile("```[a-zA-Z0-9_-]*")
	arrayRe = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
)

// Parse runs every tier over reply. It never panics; any failure is an
// *Error.
func Parse(reply string) (Result, error) {
	cleaned := StripFences(reply)

	candidate, ok := ExtractArray(cleaned)
	if !ok {
		return Result{}, &Error{Stage: StageExtract, Candidate: cleaned}
	}

	var applied []string
	for _, r := range Repairs {
		next := r.Apply(candidate)
		if next != candidate {
			applied = append(applied, r.Name)
			candidate = next
		}
	}

	records, err := decode(candidate)
	if err != nil {
		return Result{}, &Error{Stage: StageDecode, Candidate: candidate, Err: err}
	}
	return Result{Records: records, Repairs: applied}, nil
}

// StripFences removes code-fence delimiters (with or without a language
// tag) and surrounding whitespace.
func StripFences(s string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(s, ""))
}

// ExtractArray returns the array-of-objects literal in s. It first tries a
// greedy match from the first "[{" to the last "}]"; failing that it slices
// from the first '[' to the last ']'. Prose containing brackets outside the
// array can leak into the slice; decoding then fails.
func ExtractArray(s string) (string, bool) {
	if m := arrayRe.FindString(s); m != "" {
		return m, true
	}
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func decode(candidate string) ([]Record, error) {
	var elems []any
	if err := json.Unmarshal([]byte(candidate), &elems); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(elems))
	for _, e := range elems {
		if obj, ok := e.(map[string]any); ok {
			records = append(records, obj)
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("array holds no objects")
	}
	return records, nil
}
