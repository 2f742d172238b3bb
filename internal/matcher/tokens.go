package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// tokenize splits normalized text on whitespace and strips non-word runes
// from each piece. Pieces that end up empty are dropped.
func tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.Map(func(r rune) rune {
			if isWordRune(r) {
				return r
			}
			return -1
		}, f)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// keywords returns the distinct tokens longer than minLen runes that are
// not stopwords, in order of first appearance. Punctuation splits words
// here, unlike tokenize.
func keywords(text string, stop Stopwords, minLen int) []string {
	cleaned := strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, strings.ToLower(text))

	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(w) <= minLen {
			continue
		}
		if stop.Contains(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func containsToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}
	return false
}

func containsEither(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}
