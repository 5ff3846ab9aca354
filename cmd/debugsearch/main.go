package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/webdigest/internal/keywords"
	"github.com/hyperifyio/webdigest/internal/search"
)

// debugsearch prints the keyword query and ranked links for a phrase without
// scraping anything. SEARX_URL switches from DuckDuckGo to a SearxNG instance.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	q := "cozy Italian restaurant in London for a family dinner"
	if len(os.Args) > 1 {
		q = strings.Join(os.Args[1:], " ")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	kws, err := (&keywords.Lexicon{}).Extract(ctx, q)
	if err != nil {
		log.Fatal().Err(err).Msg("keywords")
	}
	query := keywords.Query(kws)
	fmt.Println("keywords:", query)

	var prov search.Provider = &search.DuckDuckGo{}
	if base := os.Getenv("SEARX_URL"); base != "" {
		prov = &search.SearxNG{BaseURL: base, UserAgent: "debugsearch/1.0"}
	}
	res, err := prov.Search(ctx, query, 5)
	fmt.Println("provider:", prov.Name(), "err:", err)
	for i, r := range res {
		fmt.Printf("%d. %s - %s\n", i+1, r.Title, r.URL)
	}
}
