// Package nlp holds the text-normalization collaborator. The real stemming
// subsystem is external to this service; the contract is best-effort:
// Tokenize always returns a list, in the worst case a plain whitespace split.
package nlp

import (
	"strings"
	"unicode"
)

// Tokenizer turns raw text into an ordered list of normalized tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// SimpleTokenizer lowercases with Turkish casing rules, strips punctuation
// and splits on whitespace. It matches the fallback contract the classifier
// is specified against.
type SimpleTokenizer struct{}

func NewSimpleTokenizer() *SimpleTokenizer {
	return &SimpleTokenizer{}
}

func (t *SimpleTokenizer) Tokenize(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

// Normalize lowercases (Turkish dotted/dotless i handled) and removes
// punctuation, collapsing runs of whitespace.
func Normalize(text string) string {
	lowered := strings.ToLowerSpecial(unicode.TurkishCase, text)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
