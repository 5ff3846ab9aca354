package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
// Nested sections map naturally to the dotted flag names.
type FileConfig struct {
	Query  string `yaml:"query" json:"query"`
	Output string `yaml:"output" json:"output"`
	Format string `yaml:"format" json:"format"`

	TopResults    int   `yaml:"topResults" json:"topResults"`
	ChunkSize     int   `yaml:"chunkSize" json:"chunkSize"`
	ExtractImages *bool `yaml:"extractImages" json:"extractImages"`
	Summarize     *bool `yaml:"summarize" json:"summarize"`
	Concurrency   int   `yaml:"concurrency" json:"concurrency"`

	Search struct {
		Provider  string  `yaml:"provider" json:"provider"`
		URL       string  `yaml:"url" json:"url"`
		Key       string  `yaml:"key" json:"key"`
		File      string  `yaml:"file" json:"file"`
		RPS       float64 `yaml:"rps" json:"rps"`
		UserAgent string  `yaml:"userAgent" json:"userAgent"`
	} `yaml:"search" json:"search"`

	Fetch struct {
		Timeout       time.Duration `yaml:"timeout" json:"timeout"`
		UserAgent     string        `yaml:"userAgent" json:"userAgent"`
		RespectRobots bool          `yaml:"respectRobots" json:"respectRobots"`
	} `yaml:"fetch" json:"fetch"`

	LLM struct {
		BaseURL string `yaml:"base" json:"base"`
		Model   string `yaml:"model" json:"model"`
		APIKey  string `yaml:"key" json:"key"`
	} `yaml:"llm" json:"llm"`

	Tokenizer string `yaml:"tokenizer" json:"tokenizer"`
	Keywords  struct {
		Mode string `yaml:"mode" json:"mode"`
	} `yaml:"keywords" json:"keywords"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"cache" json:"cache"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value present in fc onto cfg. Zero values
// in the file leave cfg untouched; booleans defaulting to true are pointers
// so a file can turn them off.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	setString(&cfg.Query, fc.Query)
	setString(&cfg.OutputPath, fc.Output)
	setString(&cfg.Format, fc.Format)
	if fc.TopResults != 0 {
		cfg.TopResults = fc.TopResults
	}
	if fc.ChunkSize != 0 {
		cfg.ChunkSize = fc.ChunkSize
	}
	if fc.Concurrency != 0 {
		cfg.Concurrency = fc.Concurrency
	}
	if fc.ExtractImages != nil {
		cfg.ExtractImages = *fc.ExtractImages
	}
	if fc.Summarize != nil {
		cfg.Summarize = *fc.Summarize
	}

	setString(&cfg.SearchProvider, fc.Search.Provider)
	setString(&cfg.SearchURL, fc.Search.URL)
	setString(&cfg.SearchKey, fc.Search.Key)
	setString(&cfg.SearchFile, fc.Search.File)
	setString(&cfg.SearchUserAgent, fc.Search.UserAgent)
	if fc.Search.RPS != 0 {
		cfg.SearchRPS = fc.Search.RPS
	}
	if fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	setString(&cfg.FetchUserAgent, fc.Fetch.UserAgent)
	if fc.Fetch.RespectRobots {
		cfg.RespectRobots = true
	}

	setString(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	setString(&cfg.LLMModel, fc.LLM.Model)
	setString(&cfg.LLMAPIKey, fc.LLM.APIKey)
	setString(&cfg.Tokenizer, fc.Tokenizer)
	setString(&cfg.KeywordsMode, fc.Keywords.Mode)

	setString(&cfg.CacheDir, fc.Cache.Dir)
	if fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
}

// ValidateConfig performs minimal schema validation for required settings.
// When summarization and LLM keywords are both off, LLM settings may be omitted.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Query) == "" {
		return errors.New("config: query is required")
	}
	if cfg.TopResults < 0 || cfg.ChunkSize < 0 || cfg.Concurrency < 0 || cfg.SearchRPS < 0 || cfg.FetchTimeout < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	switch cfg.SearchProvider {
	case ProviderDuckDuckGo:
	case ProviderSearxNG:
		if strings.TrimSpace(cfg.SearchURL) == "" {
			return errors.New("config: search.url is required for searxng (or set SEARX_URL)")
		}
	case ProviderFile:
		if strings.TrimSpace(cfg.SearchFile) == "" {
			return errors.New("config: search.file is required for the file provider (or set SEARCH_FILE)")
		}
	default:
		return fmt.Errorf("config: unknown search provider %q", cfg.SearchProvider)
	}
	switch cfg.Format {
	case FormatJSON, FormatText:
	case FormatPDF:
		if isStdout(cfg.OutputPath) {
			return errors.New("config: pdf output needs an output path")
		}
	default:
		return fmt.Errorf("config: unknown format %q", cfg.Format)
	}
	switch cfg.Tokenizer {
	case TokenizerTiktoken, TokenizerHeuristic:
	default:
		return fmt.Errorf("config: unknown tokenizer %q", cfg.Tokenizer)
	}
	switch cfg.KeywordsMode {
	case KeywordsLexicon, KeywordsLLM:
	default:
		return fmt.Errorf("config: unknown keywords mode %q", cfg.KeywordsMode)
	}
	if (cfg.Summarize || cfg.KeywordsMode == KeywordsLLM) && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required (or set LLM_MODEL, or pass -summarize=false)")
	}
	return nil
}

func isStdout(path string) bool {
	path = strings.TrimSpace(path)
	return path == "" || path == "-"
}
