package aggregate

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/webdigest/internal/scrape"
)

const (
	corpusImages   = 5
	corpusTextRune = 1000
)

// RenderCorpus formats pages as the plain-text corpus handed to a downstream
// LLM step: one "Result i:" block per page with title, URL, description, up
// to five images and the summary, or the first 1000 characters of the main
// text when there is no summary.
func RenderCorpus(pages []scrape.PageContent) string {
	sections := make([]string, 0, len(pages))
	for i, p := range pages {
		lines := []string{
			fmt.Sprintf("\nResult %d:", i+1),
			"Title: " + p.Title,
			"URL: " + p.URL,
		}
		if p.MetaDescription != "" {
			lines = append(lines, "Description: "+p.MetaDescription)
		}
		if len(p.Images) > 0 {
			lines = append(lines, "\nImages found:")
			for _, img := range p.Images[:min(len(p.Images), corpusImages)] {
				lines = append(lines, fmt.Sprintf("- %s (%s)", img.Src, img.Alt))
			}
		}
		switch {
		case p.Summary != "":
			lines = append(lines, "\nContent Summary:\n"+p.Summary)
		case p.MainText != "":
			lines = append(lines, "\nMain Content:\n"+truncateRunes(p.MainText, corpusTextRune))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	return "\n" + strings.Repeat("=", 50) + strings.Join(sections, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
