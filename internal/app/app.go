// Package app wires configuration, the pipeline stages and output rendering.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/webdigest/internal/aggregate"
	"github.com/hyperifyio/webdigest/internal/cache"
	"github.com/hyperifyio/webdigest/internal/fetch"
	"github.com/hyperifyio/webdigest/internal/keywords"
	"github.com/hyperifyio/webdigest/internal/llm"
	"github.com/hyperifyio/webdigest/internal/robots"
	"github.com/hyperifyio/webdigest/internal/scrape"
	"github.com/hyperifyio/webdigest/internal/search"
	"github.com/hyperifyio/webdigest/internal/summarize"
)

// ErrNoPages is returned after the output is written when no link could be
// scraped. The CLI maps it to a distinct exit code.
var ErrNoPages = errors.New("no pages scraped")

type App struct {
	cfg Config
	agg *aggregate.Aggregator
	// Stdout receives json and text output when no output path is set.
	Stdout io.Writer
}

// New builds the pipeline from cfg. It performs cache maintenance and a
// best-effort LLM connectivity check but never fails on network problems.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	httpCache, llmCache := openCaches(cfg)

	var client llm.Client
	if cfg.Summarize || cfg.KeywordsMode == KeywordsLLM {
		inner := llm.NewOpenAI(llm.Endpoint{
			BaseURL:    cfg.LLMBaseURL,
			APIKey:     cfg.LLMAPIKey,
			HTTPClient: newHTTPClient(60 * time.Second),
		})
		preflight(ctx, inner, cfg.LLMModel)
		client = llm.NewBreaker("llm", inner, llm.BreakerConfig{})
	}

	provider, err := newSearchProvider(cfg)
	if err != nil {
		return nil, err
	}

	var extractor keywords.Extractor = &keywords.Lexicon{}
	if cfg.KeywordsMode == KeywordsLLM {
		extractor = &keywords.Fallback{
			Primary:   &keywords.LLM{Client: client, Model: cfg.LLMModel, Cache: llmCache},
			Secondary: &keywords.Lexicon{},
		}
	}

	var tokenizer summarize.Tokenizer = summarize.Heuristic{}
	if cfg.Tokenizer == TokenizerTiktoken {
		tokenizer = summarize.FallbackTokenizer{Primary: &summarize.Tiktoken{}, Secondary: summarize.Heuristic{}}
	}
	var inference summarize.Inference
	if cfg.Summarize {
		inference = &summarize.OpenAI{Client: client, Model: cfg.LLMModel, Cache: llmCache, Tokenizer: tokenizer}
	}

	fetcher := &fetch.Client{
		HTTPClient:        newHTTPClient(0),
		UserAgent:         cfg.FetchUserAgent,
		MaxAttempts:       1,
		PerRequestTimeout: cfg.FetchTimeout,
		Cache:             httpCache,
		BypassCache:       cfg.CacheClear,
		RedirectMaxHops:   5,
	}

	scraper := &scrape.Scraper{Fetcher: fetcher, ExtractImages: cfg.ExtractImages}
	if cfg.RespectRobots {
		scraper.Robots = &robots.Checker{
			HTTPClient: newHTTPClient(cfg.FetchTimeout),
			Cache:      httpCache,
			UserAgent:  cfg.FetchUserAgent,
		}
	}

	agg := &aggregate.Aggregator{
		Keywords:   extractor,
		Search:     provider,
		Scraper:    scraper,
		Summarizer: &summarize.Summarizer{Tokenizer: tokenizer, Inference: inference, ChunkSize: cfg.ChunkSize},
		Options:    aggregate.Options{TopResults: cfg.TopResults, Concurrency: cfg.Concurrency},
	}
	return &App{cfg: cfg, agg: agg, Stdout: os.Stdout}, nil
}

func openCaches(cfg Config) (*cache.HTTPCache, *cache.LLMCache) {
	if cfg.CacheDir == "" {
		return nil, nil
	}
	// Apply cache invalidation controls
	if cfg.CacheClear {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
		}
	}
	if cfg.CacheMaxAge > 0 {
		// Purge both HTTP and LLM caches by age; errors do not fail startup
		if n, err := cache.PurgeHTTPCacheByAge(cache.HTTPDir(cfg.CacheDir), cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("http cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged http cache")
		}
		if n, err := cache.PurgeLLMCacheByAge(cache.LLMDir(cfg.CacheDir), cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("llm cache purge failed")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("purged llm cache")
		}
	}
	return &cache.HTTPCache{Dir: cache.HTTPDir(cfg.CacheDir), StrictPerms: cfg.CacheStrictPerms},
		&cache.LLMCache{Dir: cache.LLMDir(cfg.CacheDir), StrictPerms: cfg.CacheStrictPerms}
}

// preflight surfaces an unreachable LLM or a missing model early. Failures
// only warn: summaries then fall back to the cleaned page text.
func preflight(ctx context.Context, lister llm.ModelLister, model string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	n, err := llm.CheckModel(ctx, lister, model)
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("LLM preflight failed; continuing")
		return
	}
	log.Debug().Int("models", n).Str("model", model).Msg("LLM preflight ok")
}

func newSearchProvider(cfg Config) (search.Provider, error) {
	var limiter *rate.Limiter
	if cfg.SearchRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.SearchRPS), 1)
	}
	switch cfg.SearchProvider {
	case ProviderDuckDuckGo:
		return &search.DuckDuckGo{BaseURL: cfg.SearchURL, HTTPClient: newHTTPClient(15 * time.Second), UserAgent: cfg.SearchUserAgent, Limiter: limiter}, nil
	case ProviderSearxNG:
		return &search.SearxNG{BaseURL: cfg.SearchURL, APIKey: cfg.SearchKey, HTTPClient: newHTTPClient(15 * time.Second), UserAgent: cfg.SearchUserAgent, Limiter: limiter}, nil
	case ProviderFile:
		return &search.FileProvider{Path: cfg.SearchFile}, nil
	}
	return nil, fmt.Errorf("unknown search provider %q", cfg.SearchProvider)
}

// Run executes one pipeline invocation and writes the configured output.
func (a *App) Run(ctx context.Context) error {
	rep, err := a.agg.Run(ctx, a.cfg.Query)
	if err != nil {
		return err
	}
	skipped := 0
	for _, o := range rep.Outcomes {
		if o.Status == aggregate.StatusSkipped {
			skipped++
		}
	}
	log.Info().Str("run", rep.RunID).Strs("keywords", rep.Keywords).Int("pages", len(rep.Pages)).Int("skipped", skipped).Dur("took", rep.Duration).Msg("pipeline finished")
	if err := a.write(rep); err != nil {
		return err
	}
	if len(rep.Pages) == 0 {
		if rep.Blocked() {
			log.Warn().Err(rep.SearchErr).Msg("search provider blocked or throttled the request")
		}
		return ErrNoPages
	}
	return nil
}

func (a *App) write(rep aggregate.Report) error {
	if a.cfg.Format == FormatPDF {
		if err := writeReportPDF(rep, a.cfg.OutputPath); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		log.Info().Str("out", a.cfg.OutputPath).Msg("wrote pdf")
		return nil
	}
	var w io.Writer = a.Stdout
	if !isStdout(a.cfg.OutputPath) {
		f, err := os.Create(a.cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		defer f.Close()
		w = f
	}
	switch a.cfg.Format {
	case FormatText:
		if _, err := io.WriteString(w, aggregate.RenderCorpus(rep.Pages)+"\n"); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if !isStdout(a.cfg.OutputPath) {
		log.Info().Str("out", a.cfg.OutputPath).Msg("wrote output")
	}
	return nil
}
