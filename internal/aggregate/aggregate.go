// Package aggregate drives the pipeline: keywords, search, then scrape and
// summarize each of the top result links in rank order.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/webdigest/internal/keywords"
	"github.com/hyperifyio/webdigest/internal/scrape"
	"github.com/hyperifyio/webdigest/internal/search"
	"github.com/hyperifyio/webdigest/internal/summarize"
	"github.com/hyperifyio/webdigest/internal/textproc"
)

// DefaultTopResults bounds how many links are scraped when not configured.
const DefaultTopResults = 5

var (
	// ErrInvalidQuery is returned for a query that is not valid UTF-8.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidTopResults is returned for a negative result limit.
	ErrInvalidTopResults = errors.New("topResults must not be negative")
)

// PageScraper fetches one link. A nil page means the link is skipped.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (*scrape.PageContent, error)
}

// TextSummarizer condenses cleaned page text.
type TextSummarizer interface {
	SummarizeText(ctx context.Context, text string) summarize.Result
}

// Options are the pipeline knobs.
type Options struct {
	// TopResults caps the number of links scraped. Zero means DefaultTopResults.
	TopResults int
	// Concurrency bounds how many links are scraped at once. Values below 2
	// scrape strictly one link at a time. Output order is rank order either way.
	Concurrency int
}

// Aggregator wires the pipeline stages. All fields except Options are required.
type Aggregator struct {
	Keywords   keywords.Extractor
	Search     search.Provider
	Scraper    PageScraper
	Summarizer TextSummarizer
	Options    Options
}

// Report is the result of one run. Pages holds only successfully scraped
// links in search rank order; Outcomes has one entry per attempted link.
type Report struct {
	RunID       string               `json:"run_id"`
	Query       string               `json:"query"`
	Keywords    []string             `json:"keywords"`
	SearchQuery string               `json:"search_query"`
	Provider    string               `json:"provider"`
	SearchError string               `json:"search_error,omitempty"`
	Pages       []scrape.PageContent `json:"pages"`
	Outcomes    []Outcome            `json:"outcomes"`
	StartedAt   time.Time            `json:"started_at"`
	Duration    time.Duration        `json:"duration_ns"`

	// SearchErr is why the search returned nothing, if it failed.
	SearchErr error `json:"-"`
}

// Blocked reports whether the search provider refused or throttled the run.
func (r Report) Blocked() bool {
	var se *search.StatusError
	return errors.As(r.SearchErr, &se) && se.Blocked()
}

// RunPipeline returns the enriched pages for query, scraping at most
// topResults links. It is the entry point for corpus consumers.
func (a *Aggregator) RunPipeline(ctx context.Context, query string, topResults int) ([]scrape.PageContent, error) {
	if topResults < 0 {
		return nil, ErrInvalidTopResults
	}
	rep, err := a.run(ctx, query, topResults)
	if err != nil {
		return nil, err
	}
	return rep.Pages, nil
}

// Run executes the pipeline with the configured options.
func (a *Aggregator) Run(ctx context.Context, query string) (Report, error) {
	top := a.Options.TopResults
	if top < 0 {
		return Report{}, ErrInvalidTopResults
	}
	if top == 0 {
		top = DefaultTopResults
	}
	return a.run(ctx, query, top)
}

func (a *Aggregator) run(ctx context.Context, query string, top int) (Report, error) {
	if !utf8.ValidString(query) {
		return Report{}, ErrInvalidQuery
	}
	if a.Keywords == nil || a.Search == nil || a.Scraper == nil || a.Summarizer == nil {
		return Report{}, errors.New("aggregator not fully configured")
	}
	rep := Report{
		RunID:     uuid.NewString(),
		Query:     query,
		Provider:  a.Search.Name(),
		Keywords:  []string{},
		Pages:     []scrape.PageContent{},
		Outcomes:  []Outcome{},
		StartedAt: time.Now().UTC(),
	}
	logger := log.With().Str("run", rep.RunID).Logger()

	kws, err := a.Keywords.Extract(ctx, query)
	if err != nil {
		return Report{}, fmt.Errorf("extract keywords: %w", err)
	}
	if kws != nil {
		rep.Keywords = kws
	}
	rep.SearchQuery = keywords.Query(kws)
	if rep.SearchQuery == "" {
		logger.Warn().Str("query", query).Str("reason", "no keywords").Msg("nothing to search for")
		rep.Duration = time.Since(rep.StartedAt)
		return rep, nil
	}
	logger.Debug().Strs("keywords", kws).Msg("keywords extracted")
	if top == 0 {
		rep.Duration = time.Since(rep.StartedAt)
		return rep, nil
	}

	results, err := a.Search.Search(ctx, rep.SearchQuery, top)
	if ctx.Err() != nil {
		return Report{}, ctx.Err()
	}
	if err != nil {
		rep.SearchErr = err
		rep.SearchError = err.Error()
		logger.Warn().Err(err).Str("query", rep.SearchQuery).Str("provider", rep.Provider).Str("reason", string(Classify(err))).Msg("search failed; no results")
	}
	if len(results) == 0 {
		rep.Duration = time.Since(rep.StartedAt)
		return rep, nil
	}
	if len(results) > top {
		results = results[:top]
	}

	outcomes := make([]Outcome, len(results))
	pages := make([]*scrape.PageContent, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.Options.Concurrency))
	for i, r := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, page, err := a.processLink(gctx, logger, i+1, r)
			if err != nil {
				return err
			}
			outcomes[i], pages[i] = out, page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if ctx.Err() != nil {
		return Report{}, ctx.Err()
	}
	for i, out := range outcomes {
		rep.Outcomes = append(rep.Outcomes, out)
		if pages[i] != nil {
			rep.Pages = append(rep.Pages, *pages[i])
		}
	}
	rep.Duration = time.Since(rep.StartedAt)
	return rep, nil
}

// processLink scrapes and summarizes one result. A nil page means the link
// was skipped; a non-nil error is fatal for the whole run.
func (a *Aggregator) processLink(ctx context.Context, logger zerolog.Logger, rank int, r search.Result) (Outcome, *scrape.PageContent, error) {
	out := Outcome{Rank: rank, Title: r.Title, Link: r.URL}
	start := time.Now()
	page, err := a.Scraper.Scrape(ctx, r.URL)
	if page == nil {
		if ctx.Err() != nil {
			return out, nil, ctx.Err()
		}
		out.Status = StatusSkipped
		out.Kind = Classify(err)
		if err != nil {
			out.Reason = err.Error()
		} else {
			// A page with nothing extractable is a parse failure.
			out.Kind = KindParse
			out.Reason = "no content"
		}
		logger.Warn().Str("url", r.URL).Str("kind", string(out.Kind)).Str("reason", out.Reason).Msg("skipping link")
		return out, nil, nil
	}
	page.SearchTitle = r.Title
	page.SearchLink = r.URL
	if page.MainText != "" {
		res := a.Summarizer.SummarizeText(ctx, textproc.Clean(page.MainText))
		page.Summary = res.Summary
		page.FallbackChunks = res.Fallbacks
		if res.Fallbacks > 0 {
			out.Kind = KindInference
			out.Reason = fmt.Sprintf("%d of %d chunks kept verbatim", res.Fallbacks, res.Chunks)
		}
	}
	out.Status = StatusScraped
	logger.Debug().Str("url", r.URL).Dur("took", time.Since(start)).Msg("page done")
	return out, page, nil
}
