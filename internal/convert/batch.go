// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/assessment-engine/pkg/types"
)

// Status is the outcome of extracting one file to disk.
type Status string

const (
	StatusExtracted Status = "extracted"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// BatchResult holds the outcome of a batch extraction run.
type BatchResult struct {
	Extracted int
	Skipped   int
	Failed    int
}

// Total returns the total number of documents processed.
func (r BatchResult) Total() int {
	return r.Extracted + r.Skipped + r.Failed
}

// HasFailures reports whether any document failed extraction.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// LoadDocument reads a file from disk and detects its kind.
func LoadDocument(path string) (types.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("reading %s: %w", path, err)
	}
	kind, err := DetectKind(path, "", data)
	if err != nil {
		return types.SourceDocument{}, err
	}
	return types.SourceDocument{Name: filepath.Base(path), Kind: kind, Data: data}, nil
}

// ExtractFile extracts one document and writes <outDir>/<base>.txt with a
// YAML frontmatter header. An existing output file is left alone.
func ExtractFile(ctx context.Context, e *Extractor, path, outDir string, w io.Writer) Status {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	txtPath := filepath.Join(outDir, base+".txt")

	if _, err := os.Stat(txtPath); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", base)
		return StatusSkipped
	}

	doc, err := LoadDocument(path)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}

	text, err := e.Extract(ctx, doc)
	if err == nil {
		err = Classify(text, e.MinContentChars())
	}
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}
	out, err := addFrontmatter(doc, text)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}
	if err := os.WriteFile(txtPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return StatusFailed
	}

	fmt.Fprintf(w, "extracted: %s (%d chars)\n", base, utf8.RuneCountInString(text))
	return StatusExtracted
}

// ExtractPaths processes each path in order, printing per-file status to w
// and returning a summary.
func ExtractPaths(ctx context.Context, e *Extractor, paths []string, outDir string, w io.Writer) BatchResult {
	var result BatchResult
	for _, p := range paths {
		switch ExtractFile(ctx, e, p, outDir, w) {
		case StatusExtracted:
			result.Extracted++
		case StatusSkipped:
			result.Skipped++
		case StatusFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d extracted, %d skipped, %d failed (total: %d)\n",
		result.Extracted, result.Skipped, result.Failed, result.Total())
	return result
}

// Frontmatter is the YAML header written above extracted text.
type Frontmatter struct {
	Source      string             `yaml:"source"`
	Kind        types.DocumentKind `yaml:"kind"`
	Chars       int                `yaml:"chars"`
	ExtractedAt string             `yaml:"extracted_at"`
}

func addFrontmatter(doc types.SourceDocument, body string) (string, error) {
	fm := Frontmatter{
		Source:      doc.Name,
		Kind:        doc.Kind,
		Chars:       utf8.RuneCountInString(body),
		ExtractedAt: time.Now().UTC().Format(time.RFC3339),
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encoding frontmatter: %w", err)
	}
	var b strings.Builder
	b.WriteString("---\n")
	b.Write(header)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String(), nil
}
