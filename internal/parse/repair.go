// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"regexp"
	"strings"
	"unicode"
)

// Repair is a named, pure text transformation applied to a candidate
// array literal before decoding.
type Repair struct {
	Name  string
	Apply func(string) string
}

// Repairs run in this order.
var Repairs = []Repair{
	{Name: "trailing-commas", Apply: TrailingCommas},
	{Name: "bare-keys", Apply: BareKeys},
	{Name: "single-quotes", Apply: SingleQuotes},
	{Name: "raw-whitespace", Apply: RawWhitespace},
}

// outsideStrings applies fn to every span of s that lies outside a quoted
// string, leaving string contents untouched. Single-quoted strings are
// recognised with the same rules SingleQuotes uses, so repairs that run
// before it never rewrite a single-quoted value.
func outsideStrings(s string, fn func(string) string) string {
	var (
		b       strings.Builder
		start   int
		quote   rune
		escaped bool
	)
	runes := []rune(s)
	for i, r := range runes {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote && (quote == '"' || closesSingle(runes, i)):
				quote = 0
				b.WriteString(string(runes[start : i+1]))
				start = i + 1
			}
			continue
		}
		if r == '"' || (r == '\'' && opensSingle(runes, i)) {
			b.WriteString(fn(string(runes[start:i])))
			start = i
			quote = r
		}
	}
	if quote != 0 {
		b.WriteString(string(runes[start:]))
	} else {
		b.WriteString(fn(string(runes[start:])))
	}
	return b.String()
}

var trailingCommaRe = regexp.MustCompile(`,\s*([\]}])`)

// TrailingCommas removes a comma that directly precedes a closing bracket
// or brace.
func TrailingCommas(s string) string {
	return outsideStrings(s, func(span string) string {
		return trailingCommaRe.ReplaceAllString(span, "$1")
	})
}

var bareKeyRe = regexp.MustCompile(`([{,]\s*)([A-Za-z_$][A-Za-z0-9_$]*)(\s*:)`)

// BareKeys quotes identifiers used as object keys.
func BareKeys(s string) string {
	return outsideStrings(s, func(span string) string {
		return bareKeyRe.ReplaceAllString(span, `$1"$2"$3`)
	})
}

// SingleQuotes rewrites single-quoted strings as double-quoted strings. An
// apostrophe inside a double-quoted string or inside a word (don't) is left
// alone.
func SingleQuotes(s string) string {
	var (
		b       strings.Builder
		inDbl   bool
		inSgl   bool
		escaped bool
	)
	b.Grow(len(s))
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case inDbl:
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inDbl = false
			}
		case inSgl:
			switch {
			case escaped:
				escaped = false
				if r == '\'' {
					// \' is not a valid JSON escape; emit the bare quote.
					b.WriteRune(r)
				} else {
					b.WriteRune('\\')
					b.WriteRune(r)
				}
			case r == '\\':
				escaped = true
			case r == '\'' && closesSingle(runes, i):
				inSgl = false
				b.WriteRune('"')
			case r == '"':
				b.WriteString(`\"`)
			default:
				b.WriteRune(r)
			}
		default:
			switch {
			case r == '"':
				inDbl = true
				b.WriteRune(r)
			case r == '\'' && opensSingle(runes, i):
				inSgl = true
				b.WriteRune('"')
			default:
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// opensSingle reports whether the quote at i starts a string value: the
// previous non-space rune is a structural character.
func opensSingle(runes []rune, i int) bool {
	for j := i - 1; j >= 0; j-- {
		if unicode.IsSpace(runes[j]) {
			continue
		}
		return strings.ContainsRune("[{,:", runes[j])
	}
	return true
}

// closesSingle reports whether the quote at i ends a string value: the next
// non-space rune is a structural character.
func closesSingle(runes []rune, i int) bool {
	for j := i + 1; j < len(runes); j++ {
		if unicode.IsSpace(runes[j]) {
			continue
		}
		return strings.ContainsRune("]},:", runes[j])
	}
	return true
}

var rawWhitespaceRe = regexp.MustCompile(`[\r\n\t]+`)

// RawWhitespace replaces each run of raw newline, carriage-return, and tab
// characters with a single space. They are not permitted inside JSON
// strings and are insignificant between tokens.
func RawWhitespace(s string) string {
	return rawWhitespaceRe.ReplaceAllString(s, " ")
}
