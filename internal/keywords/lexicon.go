package keywords

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Lexicon is a dictionary-based extractor. Without a part-of-speech model it
// approximates "nouns, proper nouns and adjectives" by discarding stop-words,
// common verbs, punctuation and numbers. It never fails.
type Lexicon struct {
	// Extra lists additional words to discard, compared case-insensitively.
	Extra []string
}

func (l *Lexicon) Extract(_ context.Context, text string) ([]string, error) {
	// Casers are stateful; one per call keeps Extract safe for concurrent use.
	fold := cases.Fold()
	extra := make(map[string]struct{}, len(l.Extra))
	for _, w := range l.Extra {
		extra[fold.String(strings.TrimSpace(w))] = struct{}{}
	}
	var out []string
	for _, tok := range tokenize(norm.NFC.String(text)) {
		if !hasLetter(tok) {
			continue
		}
		key := fold.String(tok)
		if _, ok := stopWords[key]; ok {
			continue
		}
		if _, ok := commonVerbs[key]; ok {
			continue
		}
		if _, ok := extra[key]; ok {
			continue
		}
		out = append(out, tok)
	}
	return dedupe(out), nil
}

// tokenize splits on everything that is not a letter, digit or an inner
// hyphen. Apostrophes split too, so "Joe's" yields "Joe" and "s".
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || unicode.Is(unicode.Mn, r))
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
