// Package keywords reduces a free-text query to its salient content words.
package keywords

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// Extractor reduces text to a set of salient terms. The returned slice holds
// no duplicates and keeps first-appearance order so that the search query
// built from it is deterministic.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// Query joins keywords into a single search string.
func Query(keywords []string) string {
	return strings.Join(keywords, " ")
}

// Fallback tries Primary first and uses Secondary when Primary fails or
// yields nothing for a non-empty query.
type Fallback struct {
	Primary   Extractor
	Secondary Extractor
}

func (f *Fallback) Extract(ctx context.Context, text string) ([]string, error) {
	if f.Primary != nil {
		kws, err := f.Primary.Extract(ctx, text)
		if err == nil && (len(kws) > 0 || strings.TrimSpace(text) == "") {
			return kws, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Msg("keyword extractor failed, using fallback")
		}
	}
	if f.Secondary == nil {
		return nil, nil
	}
	return f.Secondary.Extract(ctx, text)
}

// dedupe drops empty and repeated terms, preserving order. Comparison is
// exact: "Sushi" and "sushi" are distinct terms.
func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
