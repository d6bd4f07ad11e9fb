package scraper_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/discovery/internal/model"
	"jobmate/discovery/internal/scraper"
	"jobmate/discovery/internal/transport"
)

// fakeFetcher serves canned bodies by URL and records every request.
type fakeFetcher struct {
	mu     sync.Mutex
	handle func(url string) (*transport.Response, error)
	urls   []string
}

func (f *fakeFetcher) Get(_ context.Context, u string) (*transport.Response, error) {
	f.mu.Lock()
	f.urls = append(f.urls, u)
	f.mu.Unlock()
	return f.handle(u)
}

func (f *fakeFetcher) URLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func ok(body []byte) (*transport.Response, error) {
	return &transport.Response{StatusCode: 200, Body: body}, nil
}

func TestCrawl_OrderIsRoundQueryPage(t *testing.T) {
	f := &fakeFetcher{handle: func(string) (*transport.Response, error) { return ok(nil) }}
	c := scraper.NewCrawler(f, "https://listing.test/search", "r604800", zerolog.Nop())
	queries := []model.SearchQuery{
		{Keywords: "golang", Location: "Berlin"},
		{Keywords: "rust", Location: "Remote", WorkType: model.WorkTypeRemote},
	}

	var got []string
	for p := range c.Crawl(context.Background(), queries, 2, 2) {
		require.NoError(t, p.Err)
		got = append(got, strings.Join([]string{
			string(rune('0' + p.Round)), p.Query.Keywords, string(rune('0' + p.Index)),
		}, "/"))
	}
	assert.Equal(t, []string{
		"0/golang/0", "0/golang/1", "0/rust/0", "0/rust/1",
		"1/golang/0", "1/golang/1", "1/rust/0", "1/rust/1",
	}, got)
	assert.Len(t, f.URLs(), 8)
}

func TestListingURL_Parameters(t *testing.T) {
	c := scraper.NewCrawler(nil, "", "r86400", zerolog.Nop())
	raw := c.ListingURL(model.SearchQuery{Keywords: "go developer", Location: "São Paulo", WorkType: model.WorkTypeHybrid}, 3)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.linkedin.com", u.Host)
	q := u.Query()
	assert.Equal(t, "go developer", q.Get("keywords"))
	assert.Equal(t, "São Paulo", q.Get("location"))
	assert.Equal(t, "3", q.Get("f_WT"))
	assert.Equal(t, "r86400", q.Get("f_TPR"))
	assert.Equal(t, "75", q.Get("start"))
	assert.True(t, q.Has("geoId"))
	assert.NotContains(t, raw, " ")
}

func TestCrawl_FailedPageDoesNotStopCrawl(t *testing.T) {
	f := &fakeFetcher{handle: func(u string) (*transport.Response, error) {
		if strings.Contains(u, "start=0") {
			return nil, &transport.TransportError{Kind: transport.KindNetwork, Err: errors.New("boom")}
		}
		if strings.Contains(u, "start=25") {
			return &transport.Response{StatusCode: 403}, &transport.TransportError{Kind: transport.KindForbidden}
		}
		return ok([]byte("<html></html>"))
	}}
	c := scraper.NewCrawler(f, "https://listing.test/search", "", zerolog.Nop())

	var pages []scraper.Page
	for p := range c.Crawl(context.Background(), []model.SearchQuery{{Keywords: "go"}}, 1, 3) {
		pages = append(pages, p)
	}
	require.Len(t, pages, 3)
	assert.Error(t, pages[0].Err)
	assert.Empty(t, pages[0].Body)
	assert.True(t, transport.IsForbidden(pages[1].Err))
	assert.NoError(t, pages[2].Err)
}

func TestCrawl_StopsWhenConsumerStops(t *testing.T) {
	f := &fakeFetcher{handle: func(string) (*transport.Response, error) { return ok(nil) }}
	c := scraper.NewCrawler(f, "https://listing.test/search", "", zerolog.Nop())

	for range c.Crawl(context.Background(), []model.SearchQuery{{Keywords: "go"}}, 1, 10) {
		break
	}
	assert.Len(t, f.URLs(), 1, "pages are fetched lazily")
}
