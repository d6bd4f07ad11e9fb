package config

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"jobmate/discovery/internal/model"
)

// Search is the JSON search file: what to crawl, how to filter it and where
// to store it.
type Search struct {
	Queries       []Query           `json:"search_queries"`
	Rounds        int               `json:"rounds"`
	PagesToScrape int               `json:"pages_to_scrape"`
	Timespan      string            `json:"timespan"` // f_TPR, e.g. "r604800"
	DaysToScrape  int               `json:"days_to_scrape"`
	Headers       map[string]string `json:"headers"`

	JobsTable         string `json:"jobs_tablename"`
	FilteredJobsTable string `json:"filtered_jobs_tablename"`

	model.FilterConfig
}

// Query is one entry of search_queries. f_WT may be a number or a string.
type Query struct {
	Keywords string   `json:"keywords"`
	Location string   `json:"location"`
	WorkType workType `json:"f_WT"`
}

type workType string

func (w *workType) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*w = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*w = workType(s)
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return errors.Errorf("f_WT must be a number or string, got %s", b)
	}
	*w = workType(strconv.Itoa(n))
	return nil
}

// LoadSearch reads and validates the search file at path.
func LoadSearch(path string) (*Search, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read search config %s", path)
	}
	return ParseSearch(raw)
}

// ParseSearch decodes and validates a search file, applying defaults.
func ParseSearch(raw []byte) (*Search, error) {
	s := &Search{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, errors.Wrap(err, "decode search config")
	}

	if len(s.Queries) == 0 {
		return nil, errors.New("search_queries must not be empty")
	}
	for i, q := range s.Queries {
		if q.Keywords == "" && q.Location == "" {
			return nil, errors.Errorf("search_queries[%d] needs keywords or location", i)
		}
		if _, err := model.ParseWorkType(string(q.WorkType)); err != nil {
			return nil, errors.Wrapf(err, "search_queries[%d]", i)
		}
	}
	if s.Rounds < 0 || s.PagesToScrape < 0 || s.DaysToScrape < 0 {
		return nil, errors.New("rounds, pages_to_scrape and days_to_scrape must not be negative")
	}
	if s.Rounds == 0 {
		s.Rounds = 1
	}
	if s.PagesToScrape == 0 {
		s.PagesToScrape = 1
	}
	if s.JobsTable == "" {
		s.JobsTable = "jobs"
	}
	if s.FilteredJobsTable == "" {
		s.FilteredJobsTable = "filtered_jobs"
	}
	if s.JobsTable == s.FilteredJobsTable {
		return nil, errors.New("jobs_tablename and filtered_jobs_tablename must differ")
	}
	return s, nil
}

// SearchQueries converts the configured queries to model values.
func (s *Search) SearchQueries() []model.SearchQuery {
	out := make([]model.SearchQuery, 0, len(s.Queries))
	for _, q := range s.Queries {
		wt, _ := model.ParseWorkType(string(q.WorkType))
		out = append(out, model.SearchQuery{Keywords: q.Keywords, Location: q.Location, WorkType: wt})
	}
	return out
}

// Header returns the configured request headers.
func (s *Search) Header() http.Header {
	h := make(http.Header, len(s.Headers))
	for k, v := range s.Headers {
		h.Set(k, v)
	}
	return h
}
