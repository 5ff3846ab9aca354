package aggregate

import (
	"errors"

	"github.com/hyperifyio/webdigest/internal/fetch"
	"github.com/hyperifyio/webdigest/internal/robots"
	"github.com/hyperifyio/webdigest/internal/search"
)

// Status is the fate of one attempted link.
type Status string

const (
	StatusScraped Status = "scraped"
	StatusSkipped Status = "skipped"
)

// Kind classifies a degraded stage.
type Kind string

const (
	KindNone       Kind = ""
	KindNetwork    Kind = "network"
	KindHTTPStatus Kind = "http_status"
	KindParse      Kind = "parse"
	KindInference  Kind = "inference"
	KindRobots     Kind = "robots"
)

// Outcome records what happened to one search result. A scraped link can
// still carry KindInference when some of its chunks were not summarized.
type Outcome struct {
	Rank   int    `json:"rank"`
	Title  string `json:"title"`
	Link   string `json:"link"`
	Status Status `json:"status"`
	Kind   Kind   `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Classify maps a stage error onto a failure kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	var fse *fetch.StatusError
	var sse *search.StatusError
	switch {
	case errors.As(err, &fse), errors.As(err, &sse):
		return KindHTTPStatus
	case errors.Is(err, fetch.ErrUnsupportedContentType), errors.Is(err, fetch.ErrUnsupportedScheme):
		return KindParse
	case errors.Is(err, robots.ErrDisallowed):
		return KindRobots
	}
	return KindNetwork
}
