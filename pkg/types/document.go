// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DocumentKind identifies how a source document's text is laid out.
type DocumentKind string

const (
	// KindPaged is a page-based document with positioned glyphs (PDF).
	KindPaged DocumentKind = "paged"

	// KindSlides is a slide-deck container (PPTX). No coordinates are
	// available; text comes out in document order.
	KindSlides DocumentKind = "slides"
)

// SourceDocument is an uploaded document awaiting extraction.
type SourceDocument struct {
	// Name is the original filename, used for logging and kind detection.
	Name string `json:"name" yaml:"name"`

	// Kind is the declared content kind.
	Kind DocumentKind `json:"kind" yaml:"kind"`

	// Data holds the raw bytes.
	Data []byte `json:"-" yaml:"-"`
}
