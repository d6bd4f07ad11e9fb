// Package scraper crawls listing pages, extracts job records from them and
// drives one discovery run from crawl to persistence.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"jobmate/discovery/internal/dedup"
	"jobmate/discovery/internal/filter"
	"jobmate/discovery/internal/logging"
	"jobmate/discovery/internal/model"
	"jobmate/discovery/internal/transport"
)

// ErrCrawlFailed means every listing page of the run failed to fetch.
var ErrCrawlFailed = errors.New("every listing page failed")

// Store is the persistence boundary of a run.
type Store interface {
	Snapshot(ctx context.Context, acceptedTable, filteredTable string) (dedup.Snapshot, error)
	UpsertNew(ctx context.Context, table string, records []model.JobRecord) (int, error)
}

// Exporter receives the records a run appended to each table.
type Exporter interface {
	Export(accepted, filtered []model.JobRecord) error
}

// StatsSource exposes cumulative transport counters.
// *transport.Transport satisfies it.
type StatsSource interface {
	Stats() transport.Stats
}

// Publisher receives the report of every finished run.
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Report summarises one run, stage by stage.
type Report struct {
	RunID string `json:"runId"`

	Pages       int `json:"pages"`
	FailedPages int `json:"failedPages"`
	Cards       int `json:"cards"`
	CardErrors  int `json:"cardErrors"`
	Unique      int `json:"unique"`
	New         int `json:"new"`
	Stale       int `json:"stale"`
	Fetched     int `json:"fetched"`
	Accepted    int `json:"accepted"`
	Filtered    int `json:"filtered"`

	PersistedAccepted int `json:"persistedAccepted"`
	PersistedFiltered int `json:"persistedFiltered"`

	Requests  int64 `json:"requests"`
	Retries   int64 `json:"retries"`
	Rotations int64 `json:"rotations"`

	Status  string        `json:"status"`
	Error   string        `json:"error,omitempty"`
	Err     error         `json:"-"`
	Elapsed time.Duration `json:"elapsedNs"`
}

// WorkerConfig is the per-run search and persistence setup.
type WorkerConfig struct {
	Queries           []model.SearchQuery
	Rounds            int
	Pages             int
	DaysToScrape      int // 0 disables the age cut-off
	AcceptedTable     string
	FilteredTable     string
	DetailConcurrency int
}

// Worker runs the full discovery cycle: crawl, extract, dedup against
// storage, enrich from detail pages, filter, and append new records.
type Worker struct {
	crawler   *Crawler
	details   Fetcher
	pipeline  *filter.Pipeline
	store     Store
	publisher Publisher
	stats     StatsSource
	exporter  Exporter
	cfg       WorkerConfig
	now       func() time.Time
	log       zerolog.Logger
}

// Option customises a Worker.
type Option func(*Worker)

// WithPublisher sends each Report to p after the run.
func WithPublisher(p Publisher) Option {
	return func(w *Worker) { w.publisher = p }
}

// WithTransportStats records the requests, retries and rotations of each run
// in its Report.
func WithTransportStats(src StatsSource) Option {
	return func(w *Worker) { w.stats = src }
}

// WithExporter hands each run's accepted and filtered records to e.
func WithExporter(e Exporter) Option {
	return func(w *Worker) { w.exporter = e }
}

// WithClock replaces time.Now for the age cut-off.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// NewWorker constructs a Worker.
func NewWorker(crawler *Crawler, details Fetcher, pipeline *filter.Pipeline, store Store, cfg WorkerConfig, log zerolog.Logger, opts ...Option) *Worker {
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = 4
	}
	w := &Worker{
		crawler:  crawler,
		details:  details,
		pipeline: pipeline,
		store:    store,
		cfg:      cfg,
		now:      time.Now,
		log:      logging.Component(log, "worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes one discovery run. The returned error is Report.Err.
func (w *Worker) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	rep := Report{RunID: uuid.NewString()}
	log := w.log.With().Str("run", rep.RunID).Logger()

	var before transport.Stats
	if w.stats != nil {
		before = w.stats.Stats()
	}
	err := w.run(ctx, log, &rep)
	rep.Elapsed = time.Since(start)
	if w.stats != nil {
		after := w.stats.Stats()
		rep.Requests = after.Sends - before.Sends
		rep.Retries = after.Retries - before.Retries
		rep.Rotations = after.Rotations - before.Rotations
	}
	rep.Status = StatusSucceeded
	if err != nil {
		rep.Status = StatusFailed
		rep.Err = err
		rep.Error = err.Error()
	}
	w.logReport(log, rep)

	if w.publisher != nil {
		if perr := w.publisher.Publish(ctx, rep); perr != nil {
			log.Warn().Err(perr).Msg("publish run report failed (non-fatal)")
		}
	}
	return rep, err
}

func (w *Worker) run(ctx context.Context, log zerolog.Logger, rep *Report) error {
	// ── Crawl & extract listings ───────────────────────
	var cards []model.JobRecord
	for page := range w.crawler.Crawl(ctx, w.cfg.Queries, w.cfg.Rounds, w.cfg.Pages) {
		rep.Pages++
		if page.Err != nil {
			rep.FailedPages++
			continue
		}
		records, errs := ExtractListing(page.Body)
		for _, e := range errs {
			log.Warn().Err(e).Str("url", page.URL).Msg("skipping card")
		}
		rep.Cards += len(records)
		rep.CardErrors += len(errs)
		cards = append(cards, records...)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if rep.Pages > 0 && rep.FailedPages == rep.Pages {
		return ErrCrawlFailed
	}
	log.Info().Int("pages", rep.Pages).Int("cards", rep.Cards).Msg("crawl finished")
	if len(cards) == 0 {
		return nil
	}

	// ── Dedup against storage ──────────────────────────
	unique := dedup.Collapse(cards)
	rep.Unique = len(unique)

	snap, err := w.store.Snapshot(ctx, w.cfg.AcceptedTable, w.cfg.FilteredTable)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	fresh := snap.Unknown(unique)
	rep.New = len(fresh)
	log.Info().Int("unique", rep.Unique).Int("new", rep.New).Msg("compared against storage")

	fresh = w.dropStale(log, fresh, rep)
	if len(fresh) == 0 {
		return nil
	}

	// ── Detail pages ───────────────────────────────────
	if err := w.enrich(ctx, log, fresh, rep); err != nil {
		return err
	}

	// ── Filter & intra-batch dedup ─────────────────────
	kept, rejected := w.pipeline.Partition(fresh)
	for stage, n := range w.pipeline.Counts(rejected) {
		log.Debug().Str("stage", stage).Int("rejected", n).Msg("filter stage")
	}
	kept = dedup.Collapse(kept)
	rejected = dedup.Collapse(rejected)
	rep.Accepted, rep.Filtered = len(kept), len(rejected)

	// ── Persist ────────────────────────────────────────
	if len(kept) > 0 {
		n, err := w.store.UpsertNew(ctx, w.cfg.AcceptedTable, kept)
		if err != nil {
			return fmt.Errorf("persist accepted: %w", err)
		}
		rep.PersistedAccepted = n
	}
	if len(rejected) > 0 {
		n, err := w.store.UpsertNew(ctx, w.cfg.FilteredTable, rejected)
		if err != nil {
			return fmt.Errorf("persist filtered: %w", err)
		}
		rep.PersistedFiltered = n
	}

	if w.exporter != nil {
		if err := w.exporter.Export(kept, rejected); err != nil {
			log.Warn().Err(err).Msg("export failed (non-fatal)")
		}
	}
	return nil
}

// dropStale removes records posted before the cut-off. Records whose date
// cannot be parsed are dropped as well since their age is unknown.
func (w *Worker) dropStale(log zerolog.Logger, records []model.JobRecord, rep *Report) []model.JobRecord {
	if w.cfg.DaysToScrape <= 0 {
		return records
	}
	cutoff := w.now().AddDate(0, 0, -w.cfg.DaysToScrape)

	out := records[:0:0]
	for _, r := range records {
		posted, err := r.Posted()
		if err != nil {
			log.Warn().Err(&DateParseError{SourceURL: r.SourceURL, Value: r.PostedDate, Err: err}).Msg("dropping record")
			rep.Stale++
			continue
		}
		if posted.Before(cutoff) {
			rep.Stale++
			continue
		}
		out = append(out, r)
	}
	return out
}

// enrich fetches every detail page in parallel and applies it in place. A
// failed fetch leaves the description sentinel; it never fails the run.
func (w *Worker) enrich(ctx context.Context, log zerolog.Logger, records []model.JobRecord, rep *Report) error {
	var fetched atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.DetailConcurrency)

	for i := range records {
		g.Go(func() error {
			r := &records[i]
			resp, err := w.details.Get(gctx, r.SourceURL)
			if err == nil && resp.StatusCode != http.StatusOK {
				err = fmt.Errorf("detail page returned %d", resp.StatusCode)
			}
			if err != nil {
				log.Warn().Err(err).Str("url", r.SourceURL).Msg("detail fetch failed")
				r.Description = DescriptionNotFound
				return nil
			}
			ExtractDetail(resp.Body).Apply(r)
			fetched.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	rep.Fetched = int(fetched.Load())
	log.Info().Int("fetched", rep.Fetched).Int("of", len(records)).Msg("detail pages")
	return ctx.Err()
}

func (w *Worker) logReport(log zerolog.Logger, rep Report) {
	ev := log.Info()
	if rep.Err != nil {
		ev = log.Error().Err(rep.Err)
	}
	ev.Str("status", rep.Status).
		Str("pages", fmt.Sprintf("%s (%s failed)", humanize.Comma(int64(rep.Pages)), humanize.Comma(int64(rep.FailedPages)))).
		Str("cards", humanize.Comma(int64(rep.Cards))).
		Int("new", rep.New).
		Int("stale", rep.Stale).
		Int("accepted", rep.Accepted).
		Int("filtered", rep.Filtered).
		Int("persisted", rep.PersistedAccepted+rep.PersistedFiltered).
		Int64("requests", rep.Requests).
		Int64("rotations", rep.Rotations).
		Str("elapsed", rep.Elapsed.Round(time.Millisecond).String()).
		Msg("run finished")
}
