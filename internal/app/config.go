package app

import (
	"flag"
	"time"

	"github.com/hyperifyio/webdigest/internal/aggregate"
	"github.com/hyperifyio/webdigest/internal/fetch"
	"github.com/hyperifyio/webdigest/internal/search"
	"github.com/hyperifyio/webdigest/internal/textproc"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatPDF  = "pdf"
)

// Search providers.
const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderSearxNG    = "searxng"
	ProviderFile       = "file"
)

// Tokenizers and keyword modes.
const (
	TokenizerTiktoken  = "tiktoken"
	TokenizerHeuristic = "heuristic"
	KeywordsLexicon    = "lexicon"
	KeywordsLLM        = "llm"
)

// Config holds runtime configuration for the application.
type Config struct {
	Query      string
	OutputPath string // empty or "-" writes to stdout
	Format     string

	// Pipeline
	TopResults    int
	ChunkSize     int
	ExtractImages bool
	Summarize     bool
	Concurrency   int

	// Search
	SearchProvider  string
	SearchURL       string
	SearchKey       string
	SearchFile      string
	SearchRPS       float64
	SearchUserAgent string

	// Fetch
	FetchTimeout   time.Duration
	FetchUserAgent string
	RespectRobots  bool

	// LLM
	LLMBaseURL   string
	LLMModel     string
	LLMAPIKey    string
	Tokenizer    string
	KeywordsMode string

	// Cache; an empty CacheDir disables caching
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool

	Verbose bool
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Format:          FormatJSON,
		TopResults:      aggregate.DefaultTopResults,
		ChunkSize:       textproc.DefaultChunkSize,
		ExtractImages:   true,
		Summarize:       true,
		SearchProvider:  ProviderDuckDuckGo,
		SearchUserAgent: search.BrowserUserAgent,
		FetchTimeout:    fetch.DefaultTimeout,
		FetchUserAgent:  search.BrowserUserAgent,
		Tokenizer:       TokenizerTiktoken,
		KeywordsMode:    KeywordsLexicon,
	}
}

// BindFlags registers command line flags that write into cfg. The current
// cfg values are the flag defaults, so binding after file and env layering
// gives flags the highest precedence.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Query, "query", cfg.Query, "Query text (remaining arguments are used when empty)")
	fs.StringVar(&cfg.OutputPath, "output", cfg.OutputPath, "Output path; empty or - writes to stdout")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Output format: json, text or pdf")
	fs.IntVar(&cfg.TopResults, "topResults", cfg.TopResults, "Maximum number of result links to scrape")
	fs.IntVar(&cfg.ChunkSize, "chunkSize", cfg.ChunkSize, "Words per summarization chunk")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Links scraped at once; 1 or less is sequential")
	fs.BoolVar(&cfg.ExtractImages, "extractImages", cfg.ExtractImages, "Collect images from scraped pages")
	fs.BoolVar(&cfg.Summarize, "summarize", cfg.Summarize, "Summarize page text with the LLM; false keeps cleaned text")
	fs.StringVar(&cfg.SearchProvider, "search.provider", cfg.SearchProvider, "Search provider: duckduckgo, searxng or file")
	fs.StringVar(&cfg.SearchURL, "search.url", cfg.SearchURL, "Search endpoint base URL (provider default when empty)")
	fs.StringVar(&cfg.SearchKey, "search.key", cfg.SearchKey, "SearxNG API key (optional)")
	fs.StringVar(&cfg.SearchFile, "search.file", cfg.SearchFile, "Path to JSON results for the file provider")
	fs.Float64Var(&cfg.SearchRPS, "search.rps", cfg.SearchRPS, "Search requests per second; 0 disables limiting")
	fs.StringVar(&cfg.SearchUserAgent, "search.userAgent", cfg.SearchUserAgent, "User-Agent for search requests")
	fs.DurationVar(&cfg.FetchTimeout, "fetch.timeout", cfg.FetchTimeout, "Per-page request timeout")
	fs.StringVar(&cfg.FetchUserAgent, "fetch.userAgent", cfg.FetchUserAgent, "User-Agent for page requests")
	fs.BoolVar(&cfg.RespectRobots, "fetch.respectRobots", cfg.RespectRobots, "Skip result pages disallowed by robots.txt")
	fs.StringVar(&cfg.LLMBaseURL, "llm.base", cfg.LLMBaseURL, "OpenAI-compatible base URL")
	fs.StringVar(&cfg.LLMModel, "llm.model", cfg.LLMModel, "Model name")
	fs.StringVar(&cfg.LLMAPIKey, "llm.key", cfg.LLMAPIKey, "API key for OpenAI-compatible server")
	fs.StringVar(&cfg.Tokenizer, "tokenizer", cfg.Tokenizer, "Token counter: tiktoken or heuristic")
	fs.StringVar(&cfg.KeywordsMode, "keywords.mode", cfg.KeywordsMode, "Keyword extraction: lexicon or llm")
	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "Cache directory; empty disables caching")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", cfg.CacheMaxAge, "Purge cache entries older than this; 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", cfg.CacheClear, "Clear cache directory before run")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", cfg.CacheStrictPerms, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose logging")
}
