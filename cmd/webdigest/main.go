package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webdigest/internal/app"
)

const usage = `Usage: webdigest [flags] <query...>

Extracts keywords from the query, searches the web, scrapes the top result
pages and writes their summarized content as JSON, a text corpus or a PDF.

Flags:
`

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := app.LoadEnvFiles(".env", ".env.local"); err != nil {
		log.Warn().Err(err).Msg("dotenv load failed")
	}

	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("invalid configuration")
		os.Exit(2)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(exitCode(run(ctx, cfg)))
}

// parseConfig layers defaults, the optional config file, env and flags, in
// increasing precedence. Flags are parsed twice: once to find -config, then
// bound over the layered values so explicit flags win.
func parseConfig(args []string, stderr io.Writer) (app.Config, error) {
	var configPath string
	scratch := app.DefaultConfig()
	first := newFlagSet(&scratch, &configPath, io.Discard)
	if err := first.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			newFlagSet(&scratch, &configPath, stderr).Usage()
		}
		return app.Config{}, err
	}

	cfg := app.DefaultConfig()
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return app.Config{}, fmt.Errorf("load config file: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	fs := newFlagSet(&cfg, &configPath, stderr)
	if err := fs.Parse(args); err != nil {
		return app.Config{}, err
	}
	if rest := strings.TrimSpace(strings.Join(fs.Args(), " ")); rest != "" && strings.TrimSpace(cfg.Query) == "" {
		cfg.Query = rest
	}
	return cfg, app.ValidateConfig(cfg)
}

func newFlagSet(cfg *app.Config, configPath *string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("webdigest", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(configPath, "config", *configPath, "Path to YAML or JSON config file")
	app.BindFlags(fs, cfg)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	return fs
}

// exitCode maps run errors onto the process exit status: 0 on success, 3
// when nothing could be scraped, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrNoPages):
		log.Warn().Msg("no pages could be scraped")
		return 3
	default:
		log.Error().Err(err).Msg("run failed")
		return 1
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}
