package scraper

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"jobmate/discovery/internal/logging"
	"jobmate/discovery/internal/model"
	"jobmate/discovery/internal/transport"
)

const (
	// DefaultListingURL is the guest search endpoint returning listing cards.
	DefaultListingURL = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	// PageSize is the number of cards per listing page.
	PageSize = 25
)

// Fetcher performs one GET with whatever resilience it provides.
// *transport.Transport satisfies it.
type Fetcher interface {
	Get(ctx context.Context, url string) (*transport.Response, error)
}

// Page is one fetched listing page. Err is set and Body empty when the fetch
// failed; the crawl carries on regardless.
type Page struct {
	Round int
	Query model.SearchQuery
	Index int
	URL   string
	Body  []byte
	Err   error
}

// Crawler enumerates listing pages for a set of queries.
type Crawler struct {
	fetcher  Fetcher
	baseURL  string
	timespan string
	log      zerolog.Logger
}

// NewCrawler returns a Crawler hitting baseURL (DefaultListingURL when
// empty). timespan is the f_TPR filter, e.g. "r604800" for the past week.
func NewCrawler(fetcher Fetcher, baseURL, timespan string, log zerolog.Logger) *Crawler {
	if baseURL == "" {
		baseURL = DefaultListingURL
	}
	return &Crawler{
		fetcher:  fetcher,
		baseURL:  baseURL,
		timespan: timespan,
		log:      logging.Component(log, "crawler"),
	}
}

// ListingURL builds the URL of page index (0-based) for q.
func (c *Crawler) ListingURL(q model.SearchQuery, index int) string {
	params := url.Values{}
	params.Set("keywords", q.Keywords)
	params.Set("location", q.Location)
	params.Set("f_WT", q.WorkType.Param())
	params.Set("geoId", "")
	params.Set("f_TPR", c.timespan)
	params.Set("start", strconv.Itoa(index*PageSize))
	return c.baseURL + "?" + params.Encode()
}

// Crawl yields one Page per (round, query, page), round-major then query then
// page. Pages are fetched lazily as the sequence is consumed; stopping the
// iteration or cancelling ctx stops the crawl.
func (c *Crawler) Crawl(ctx context.Context, queries []model.SearchQuery, rounds, pages int) iter.Seq[Page] {
	return func(yield func(Page) bool) {
		for round := range rounds {
			for _, q := range queries {
				for index := range pages {
					if ctx.Err() != nil {
						return
					}
					if !yield(c.fetch(ctx, round, q, index)) {
						return
					}
				}
			}
		}
	}
}

func (c *Crawler) fetch(ctx context.Context, round int, q model.SearchQuery, index int) Page {
	p := Page{Round: round, Query: q, Index: index, URL: c.ListingURL(q, index)}

	resp, err := c.fetcher.Get(ctx, p.URL)
	switch {
	case err != nil:
		p.Err = err
	case resp.StatusCode != http.StatusOK:
		p.Err = fmt.Errorf("listing page returned %d", resp.StatusCode)
	default:
		p.Body = resp.Body
	}

	ev := c.log.Debug()
	if p.Err != nil {
		ev = c.log.Warn().Err(p.Err)
	}
	ev.Int("round", round).Str("keywords", q.Keywords).Str("location", q.Location).
		Int("page", index).Int("bytes", len(p.Body)).Msg("listing page")
	return p
}
