package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tok := NewSimpleTokenizer()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain words", "bugün yemek nedir", []string{"bugün", "yemek", "nedir"}},
		{"punctuation stripped", "Merhaba, nasılsın?", []string{"merhaba", "nasılsın"}},
		{"turkish dotted I", "İstanbul", []string{"istanbul"}},
		{"extra whitespace", "  selam \t dünya  ", []string{"selam", "dünya"}},
		{"empty", "", nil},
		{"only punctuation", "?!...", nil},
		{"repeated words kept", "yemek yemek yemek", []string{"yemek", "yemek", "yemek"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tok.Tokenize(tc.in))
		})
	}
}
