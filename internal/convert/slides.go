// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// OOXMLSlideParser reads slide text straight out of a PPTX container. Text
// comes out in slide order, then document order within each slide; there
// are no coordinates, so no line reconstruction is applied.
type OOXMLSlideParser struct{}

// NewOOXMLSlideParser creates a slide parser.
func NewOOXMLSlideParser() *OOXMLSlideParser {
	return &OOXMLSlideParser{}
}

// Convert returns the text of every slide separated by blank lines.
func (p *OOXMLSlideParser) Convert(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: opening slide container: %v", ErrExtractionFailure, err)
	}

	parts := slideParts(zr)
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no slides in container", ErrExtractionFailure)
	}

	texts := make([]string, 0, len(parts))
	for _, f := range parts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := readSlide(f)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrExtractionFailure, f.Name, err)
		}
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

// slideParts returns slide XML parts ordered by slide number. Archive order
// is not reliable: slide10 can precede slide2.
func slideParts(zr *zip.Reader) []*zip.File {
	type numbered struct {
		n int
		f *zip.File
	}
	var found []numbered
	for _, f := range zr.File {
		m := slidePartRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, f: f})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	out := make([]*zip.File, len(found))
	for i, s := range found {
		out[i] = s.f
	}
	return out
}

func readSlide(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return slideText(rc)
}

// slideText collects DrawingML text runs (a:t). Paragraph ends (a:p) and
// explicit breaks (a:br) become newlines.
func slideText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		b      strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// looksLikeSlides reports whether a zip archive contains slide parts.
func looksLikeSlides(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/") {
			return true
		}
	}
	return false
}
