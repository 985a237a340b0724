package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalize lowercases and NFKC-normalizes s so that criteria matching is
// robust to the mixed Cyrillic/Latin transcripts real interviews produce.
func normalize(s string) string {
	out, _, err := transform.String(norm.NFKC, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// tokenize splits a normalized transcript into words, treating any
// non-letter/non-digit rune as a separator. Unicode-aware: works across
// Cyrillic and Latin scripts alike.
func tokenize(s string) []string {
	s = normalize(s)
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// stem applies a small suffix-stripping stemmer covering the common
// Russian and English inflections seen in interview transcripts (e.g.
// "проекты"/"проектов"/"проекта" -> "проект", "testing"/"tested" ->
// "test"). It is intentionally conservative: it only strips a fixed set of
// known suffixes and never touches short words, to avoid collapsing
// unrelated criteria into one stem.
func stem(word string) string {
	if len([]rune(word)) <= 3 {
		return word
	}
	suffixes := []string{
		// Russian noun/adjective endings, longest first.
		"ами", "ями", "ов", "ев", "ий", "ый", "ая", "яя", "ое", "ее",
		"ах", "ях", "ы", "и", "а", "я", "о", "е", "у", "ю",
		// English endings.
		"ing", "tion", "ed", "es", "s",
	}
	for _, suf := range suffixes {
		if strings.HasSuffix(word, suf) && len([]rune(word))-len([]rune(suf)) >= 3 {
			return strings.TrimSuffix(word, suf)
		}
	}
	return word
}

func stemAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = stem(w)
	}
	return out
}
