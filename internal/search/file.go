package search

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
)

// FileProvider serves results from a local JSON file, for offline runs and
// fixtures. The file is an array of {"title", "url", "snippet"} objects.
// A result matches when any query term occurs in its title or snippet; an
// empty query matches everything.
type FileProvider struct {
	Path string
}

func (f *FileProvider) Name() string { return "file" }

func (f *FileProvider) Search(_ context.Context, query string, limit int) ([]Result, error) {
	out := []Result{}
	if strings.TrimSpace(f.Path) == "" {
		return out, errors.New("file provider path is empty")
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return out, err
	}
	var raw []Result
	if err := json.Unmarshal(b, &raw); err != nil {
		return out, err
	}
	terms := strings.Fields(strings.ToLower(query))
	for _, r := range raw {
		link, ok := NormalizeLink(r.URL, nil)
		if !ok || r.Title == "" {
			continue
		}
		if !matchesAny(strings.ToLower(r.Title+" "+r.Snippet), terms) {
			continue
		}
		r.URL = link
		r.Source = f.Name()
		out = append(out, r)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchesAny(haystack string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}
