// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate filters parsed model records against the per-mode item
// shape and decodes the survivors into typed items.
package validate

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pdiddy/assessment-engine/internal/parse"
	"github.com/pdiddy/assessment-engine/pkg/types"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[types.Mode]string{
	types.ModeQuiz:      "schemas/quiz.json",
	types.ModeTheory:    "schemas/theory.json",
	types.ModeQuestions: "schemas/study.json",
}

var (
	compileOnce sync.Once
	compiled    map[types.Mode]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[types.Mode]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[types.Mode]*jsonschema.Schema, len(schemaFiles))
		for mode, name := range schemaFiles {
			b, err := schemaFS.ReadFile(name)
			if err != nil {
				compileErr = fmt.Errorf("reading %s: %w", name, err)
				return
			}
			c := jsonschema.NewCompiler()
			if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
				compileErr = fmt.Errorf("adding %s: %w", name, err)
				return
			}
			s, err := c.Compile(name)
			if err != nil {
				compileErr = fmt.Errorf("compiling %s: %w", name, err)
				return
			}
			compiled[mode] = s
		}
	})
	return compiled, compileErr
}

// Alternate keys models commonly use, in precedence order.
var aliases = []struct{ alias, key string }{
	{"correctAnswerIndex", "correctAnswer"},
	{"correct_answer", "correctAnswer"},
	{"answer", "correctAnswer"},
	{"choices", "options"},
	{"key_points", "keyPoints"},
	{"expected_length", "expectedLength"},
}

// Report is the outcome of validating one batch of records.
type Report struct {
	Accepted int
	Dropped  int
}

// Quiz validates records as quiz items.
func Quiz(records []parse.Record) ([]types.QuizItem, Report, error) {
	return validateAs[types.QuizItem](types.ModeQuiz, records)
}

// Theory validates records as theory items.
func Theory(records []parse.Record) ([]types.TheoryItem, Report, error) {
	return validateAs[types.TheoryItem](types.ModeTheory, records)
}

// Study validates records as study prompts.
func Study(records []parse.Record) ([]types.StudyItem, Report, error) {
	return validateAs[types.StudyItem](types.ModeQuestions, records)
}

// Into validates records for mode and stores the accepted items on p. It
// returns the report; zero accepted items leaves p's item list empty.
func Into(p *types.Payload, records []parse.Record) (Report, error) {
	var (
		rep Report
		err error
	)
	switch p.Mode {
	case types.ModeQuiz:
		p.Quiz, rep, err = Quiz(records)
	case types.ModeTheory:
		p.Theory, rep, err = Theory(records)
	case types.ModeQuestions:
		p.Study, rep, err = Study(records)
	default:
		return Report{}, fmt.Errorf("mode %q has no item schema", p.Mode)
	}
	return rep, err
}

// validateAs drops any record that fails the mode's schema or cannot be
// decoded; individual failures are only counted.
func validateAs[T any](mode types.Mode, records []parse.Record) ([]T, Report, error) {
	all, err := schemas()
	if err != nil {
		return nil, Report{}, err
	}
	schema := all[mode]

	var (
		items []T
		rep   Report
	)
	for _, rec := range records {
		canon := canonical(rec)
		if err := schema.Validate(canon); err != nil {
			rep.Dropped++
			continue
		}
		var item T
		if err := mapstructure.Decode(canon, &item); err != nil {
			rep.Dropped++
			continue
		}
		items = append(items, item)
		rep.Accepted++
	}
	return items, rep, nil
}

// canonical returns a copy of rec with alias keys renamed. An alias never
// overwrites a canonical key that is already present.
func canonical(rec parse.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	for _, a := range aliases {
		v, ok := out[a.alias]
		if !ok {
			continue
		}
		delete(out, a.alias)
		if _, exists := out[a.key]; !exists {
			out[a.key] = v
		}
	}
	return out
}
