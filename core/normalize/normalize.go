// Package normalize canonicalizes free-text vehicle names so that user input
// and catalog entries can be compared.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases text, strips diacritical marks and collapses
// whitespace. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	// transformers are stateful, build a fresh chain per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err == nil {
		text = stripped
	}
	return strings.Join(strings.Fields(text), " ")
}

// Tokens returns the whitespace separated tokens of the normalized text.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// Qualifying returns the tokens made of at least minRunes characters, in
// order of appearance.
func Qualifying(tokens []string, minRunes int) []string {
	var out []string
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) >= minRunes {
			out = append(out, tok)
		}
	}
	return out
}
