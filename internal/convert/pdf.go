// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	// LineBreakDelta is the vertical distance (text-space units) between
	// consecutive fragments above which a paragraph break is inserted.
	LineBreakDelta = 5.0

	// wordGapRatio is the horizontal gap, as a fraction of the font size,
	// above which two glyphs on one baseline belong to different fragments.
	wordGapRatio = 0.25

	// baselineTolerance is the vertical wiggle allowed within one fragment.
	baselineTolerance = 0.5
)

// Fragment is a run of text at one position on a page.
type Fragment struct {
	X, Y float64
	Text string
}

// PDFConverter extracts text from PDF bytes.
type PDFConverter struct{}

// NewPDFConverter creates a PDF converter.
func NewPDFConverter() *PDFConverter {
	return &PDFConverter{}
}

// Convert reads every page in order and rebuilds line structure from glyph
// positions. Corrupted or encrypted input yields ErrExtractionFailure.
func (c *PDFConverter) Convert(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		// The reader panics on some malformed content streams.
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: reading PDF: %v", ErrExtractionFailure, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: opening PDF: %v", ErrExtractionFailure, err)
	}

	pages := make([][]Fragment, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages = append(pages, fragmentsFromGlyphs(p.Content().Text))
	}
	return Reconstruct(pages), nil
}

// fragmentsFromGlyphs groups consecutive glyphs that share a baseline and
// sit close together into fragments, in encounter order. A whitespace glyph
// always ends the current fragment.
func fragmentsFromGlyphs(glyphs []pdf.Text) []Fragment {
	var (
		frags   []Fragment
		cur     strings.Builder
		curX    float64
		curY    float64
		lastEnd float64
		open    bool
	)
	flush := func() {
		if open && cur.Len() > 0 {
			frags = append(frags, Fragment{X: curX, Y: curY, Text: cur.String()})
		}
		cur.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if strings.TrimSpace(g.S) == "" {
			flush()
			continue
		}

		tol := math.Max(g.FontSize*wordGapRatio, 1)
		gap := g.X - lastEnd
		continues := open &&
			math.Abs(g.Y-curY) <= baselineTolerance &&
			gap <= tol && gap >= -tol
		if !continues {
			flush()
			curX, curY = g.X, g.Y
			open = true
		}
		cur.WriteString(g.S)
		lastEnd = g.X + g.W
	}
	flush()
	return frags
}

// Reconstruct lays out fragments page by page. When the vertical delta to
// the previous fragment exceeds LineBreakDelta a paragraph break is
// inserted; otherwise a single space separates fragments unless the text
// already ends in whitespace. Pages are separated by a paragraph break.
func Reconstruct(pages [][]Fragment) string {
	var b strings.Builder
	for _, frags := range pages {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		var (
			lastY   float64
			hasPrev bool
		)
		for _, f := range frags {
			text := strings.TrimSpace(f.Text)
			if text == "" {
				continue
			}
			switch {
			case hasPrev && math.Abs(f.Y-lastY) > LineBreakDelta:
				b.WriteString("\n\n")
			case b.Len() > 0 && !endsInSpace(b.String()):
				b.WriteString(" ")
			}
			b.WriteString(text)
			lastY = f.Y
			hasPrev = true
		}
	}
	return Normalize(b.String())
}

func endsInSpace(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r == utf8.RuneError || unicode.IsSpace(r)
}
