package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with environment variables that are
// set. Env takes precedence over the config file; flags are bound afterwards
// and win over both.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
			}
		}
	}
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.SearchProvider, "SEARCH_PROVIDER")
	// SEARXNG_URL is accepted as an alias; SEARX_URL wins when both are set
	setString(&cfg.SearchURL, "SEARXNG_URL", "SEARX_URL")
	setString(&cfg.SearchKey, "SEARXNG_KEY", "SEARX_KEY")
	setString(&cfg.SearchFile, "SEARCH_FILE")
	setString(&cfg.CacheDir, "CACHE_DIR")
	setString(&cfg.Tokenizer, "TOKENIZER")
	setString(&cfg.KeywordsMode, "KEYWORDS_MODE")
	setString(&cfg.Format, "OUTPUT_FORMAT")

	setInt := func(dst *int, key string) {
		if s := strings.TrimSpace(os.Getenv(key)); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				*dst = n
			}
		}
	}
	setInt(&cfg.TopResults, "TOP_RESULTS")
	setInt(&cfg.ChunkSize, "CHUNK_SIZE")
	setInt(&cfg.Concurrency, "CONCURRENCY")

	if s := strings.TrimSpace(os.Getenv("SEARCH_RPS")); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			cfg.SearchRPS = f
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if s := strings.TrimSpace(os.Getenv(key)); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				*dst = d
			}
		}
	}
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
	setDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		if s := strings.ToLower(strings.TrimSpace(os.Getenv(envKey))); s != "" {
			switch s {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}
	setBool(&cfg.ExtractImages, "EXTRACT_IMAGES")
	setBool(&cfg.RespectRobots, "RESPECT_ROBOTS")
	setBool(&cfg.Summarize, "SUMMARIZE")
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.CacheClear, "CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}
