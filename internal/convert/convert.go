// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns uploaded document bytes into normalized text.
// Paged documents (PDF) go through glyph-position line reconstruction;
// slide decks (PPTX) are delegated to a container text parser.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/assessment-engine/pkg/types"
)

// Extraction-stage errors. They are terminal and surfaced to the caller.
var (
	ErrUnsupportedFormat   = errors.New("unsupported document format")
	ErrExtractionFailure   = errors.New("document text could not be extracted")
	ErrEmptyDocument       = errors.New("document contains no extractable text")
	ErrInsufficientContent = errors.New("document does not contain enough text")
)

// DefaultMinContentChars is the shortest text accepted for generation.
const DefaultMinContentChars = 100

// Converter extracts the raw text of one document kind. Implementations do
// not need to normalize whitespace; the Extractor does that.
type Converter interface {
	Convert(ctx context.Context, data []byte) (string, error)
}

// Extractor dispatches a SourceDocument to the converter for its kind and
// normalizes the result.
type Extractor struct {
	paged    Converter
	slides   Converter
	minChars int
}

// NewExtractor creates an extractor. A minChars of zero or less uses
// DefaultMinContentChars.
func NewExtractor(paged, slides Converter, minChars int) *Extractor {
	if minChars <= 0 {
		minChars = DefaultMinContentChars
	}
	return &Extractor{paged: paged, slides: slides, minChars: minChars}
}

// MinContentChars returns the threshold used by Classify.
func (e *Extractor) MinContentChars() int {
	return e.minChars
}

// Extract returns the NormalizedText of doc. The returned error is
// ErrUnsupportedFormat, wraps ErrExtractionFailure, or wraps ctx.Err() when
// ctx ended mid-conversion; callers classify the text with Classify.
func (e *Extractor) Extract(ctx context.Context, doc types.SourceDocument) (string, error) {
	var c Converter
	switch doc.Kind {
	case types.KindPaged:
		c = e.paged
	case types.KindSlides:
		c = e.slides
	}
	if c == nil {
		return "", fmt.Errorf("%w: kind %q", ErrUnsupportedFormat, doc.Kind)
	}

	raw, err := c.Convert(ctx, doc.Data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("extracting %s: %w", doc.Name, ctxErr)
		}
		if errors.Is(err, ErrExtractionFailure) || errors.Is(err, ErrUnsupportedFormat) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrExtractionFailure, err)
	}
	return Normalize(raw), nil
}

// Classify reports whether text is usable for generation: zero characters
// is ErrEmptyDocument, fewer than minChars is ErrInsufficientContent.
func Classify(text string, minChars int) error {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return ErrEmptyDocument
	}
	if n < minChars {
		return fmt.Errorf("%w: %d characters, need at least %d", ErrInsufficientContent, n, minChars)
	}
	return nil
}

var (
	spaceRunRe  = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	lineEdgeRe  = regexp.MustCompile(` *\n *`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
	crlfReplace = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normalize collapses runs of spaces to one space and runs of blank lines to
// exactly one blank line, then trims.
func Normalize(s string) string {
	s = crlfReplace.Replace(s)
	s = spaceRunRe.ReplaceAllString(s, " ")
	s = lineEdgeRe.ReplaceAllString(s, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

const (
	mimePDF  = "application/pdf"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// DetectKind infers the document kind from the filename extension, the
// declared content type, and finally the leading magic bytes.
func DetectKind(name, contentType string, data []byte) (types.DocumentKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return types.KindPaged, nil
	case ".pptx":
		return types.KindSlides, nil
	}

	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mt {
		case mimePDF:
			return types.KindPaged, nil
		case mimePPTX:
			return types.KindSlides, nil
		}
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return types.KindPaged, nil
	case bytes.HasPrefix(data, []byte("PK\x03\x04")) && looksLikeSlides(data):
		return types.KindSlides, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, describe(name, contentType))
}

func describe(name, contentType string) string {
	switch {
	case name != "" && contentType != "":
		return fmt.Sprintf("%s (%s)", name, contentType)
	case name != "":
		return name
	case contentType != "":
		return contentType
	default:
		return "unknown content"
	}
}
