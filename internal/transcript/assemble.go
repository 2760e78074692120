// Package transcript joins final recognition sentences into one text.
package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Assemble joins sentences in order. Whitespace inside a sentence is
// collapsed; a separating space is inserted only where neither side of the
// join is CJK text or CJK punctuation.
func Assemble(sentences []string) string {
	var out strings.Builder
	prev := ""
	for _, sentence := range sentences {
		sentence = strings.Join(strings.Fields(sentence), " ")
		if sentence == "" {
			continue
		}
		if prev != "" && needsSpace(prev, sentence) {
			out.WriteByte(' ')
		}
		out.WriteString(sentence)
		prev = sentence
	}
	return out.String()
}

func needsSpace(prev, next string) bool {
	last, _ := utf8.DecodeLastRuneInString(prev)
	first, _ := utf8.DecodeRuneInString(next)
	return !isCJK(last) && !isCJK(first)
}

func isCJK(r rune) bool {
	switch {
	case unicode.Is(unicode.Han, r),
		unicode.Is(unicode.Hiragana, r),
		unicode.Is(unicode.Katakana, r),
		unicode.Is(unicode.Hangul, r):
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK symbols and punctuation
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // fullwidth forms
		return true
	default:
		return false
	}
}
