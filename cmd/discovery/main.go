// jobmate-discovery: periodic job discovery daemon
//
// Crawls the configured listing searches through the SOCKS proxy, reconciles
// the results against the accepted and filtered tables, and appends what is
// new. Runs once per SCRAPE_INTERVAL_HOURS, or a single time with RUN_ONCE.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"jobmate/discovery/internal/config"
	"jobmate/discovery/internal/db"
	"jobmate/discovery/internal/events"
	"jobmate/discovery/internal/export"
	"jobmate/discovery/internal/filter"
	"jobmate/discovery/internal/logging"
	"jobmate/discovery/internal/scheduler"
	"jobmate/discovery/internal/scraper"
	"jobmate/discovery/internal/storage"
	"jobmate/discovery/internal/transport"
)

const (
	version = "1.0.0"
	lockKey = "lock:discovery-run"
	// lockTTL only bounds how long a crashed holder blocks other replicas;
	// a live run extends it every scheduler.DefaultLockRefresh.
	lockTTL = 5 * time.Minute
)

func main() {
	_ = godotenv.Load()

	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[discovery] config error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", "discovery").Logger()

	search, err := config.LoadSearch(cfg.SearchConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("search config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Storage ─────────────────────────────────────────────────────────────
	sqlDB, closeDB, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database")
	}
	defer closeDB()

	dialect, err := storage.DialectFor(cfg.DBDriver)
	if err != nil {
		log.Fatal().Err(err).Msg("database dialect")
	}
	store := storage.NewSQLStore(sqlDB, dialect, log)
	for _, table := range []string{search.JobsTable, search.FilteredJobsTable} {
		if err := store.EnsureSchema(ctx, table); err != nil {
			log.Fatal().Err(err).Str("table", table).Msg("ensure schema")
		}
	}
	log.Info().Str("driver", dialect.Name()).Msg("database ready ✓")

	// ── Redis (optional) ────────────────────────────────────────────────────
	var (
		publisher scraper.Publisher = events.Noop{}
		lock      scheduler.Locker  = events.NoopLock{}
	)
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer closeRedis(rdb, log)
		publisher = events.NewPublisher(rdb, events.ChannelRunFinished)
		lock = events.NewLock(rdb, lockKey, lockTTL)
		log.Info().Msg("redis connected ✓")
	}

	// ── Transport ───────────────────────────────────────────────────────────
	sender := transport.NewRestySender(transport.SenderConfig{
		ProxyURL: cfg.ProxyURL,
		Timeout:  cfg.HTTPTimeout,
		Header:   search.Header(),
	})
	var rotator transport.Rotator
	if cfg.TorControlAddr != "" {
		rotator = transport.NewTorController(cfg.TorControlAddr, cfg.TorPassword, cfg.HTTPTimeout, log)
	}
	tcfg := transport.DefaultConfig()
	tcfg.RequestsPerSecond = cfg.RequestsPerSecond
	client := transport.New(sender, rotator, tcfg, log)

	// ── Pipeline ────────────────────────────────────────────────────────────
	pipeline, err := filter.New(search.FilterConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("filter pipeline")
	}
	crawler := scraper.NewCrawler(client, scraper.DefaultListingURL, search.Timespan, log)
	opts := []scraper.Option{scraper.WithPublisher(publisher), scraper.WithTransportStats(client)}
	if cfg.ExportDir != "" {
		opts = append(opts, scraper.WithExporter(export.NewCSVExporter(cfg.ExportDir, search.JobsTable, search.FilteredJobsTable)))
	}
	worker := scraper.NewWorker(crawler, client, pipeline, store, scraper.WorkerConfig{
		Queries:           search.SearchQueries(),
		Rounds:            search.Rounds,
		Pages:             search.PagesToScrape,
		DaysToScrape:      search.DaysToScrape,
		AcceptedTable:     search.JobsTable,
		FilteredTable:     search.FilteredJobsTable,
		DetailConcurrency: cfg.DetailConcurrency,
	}, log, opts...)

	sched := scheduler.New(worker, lock, cfg.ScrapeIntervalHours, log)

	if cfg.RunOnce {
		rep, ran := sched.RunNow(ctx)
		if ran && rep.Err != nil {
			closeDB()
			os.Exit(1)
		}
		return
	}

	// ── Health endpoint ─────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.DiscoveryPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("version", version).Str("port", cfg.DiscoveryPort).Msg("health endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health endpoint")
		}
	}()

	// ── Scheduler ───────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("health endpoint shutdown")
	}
	sched.Stop()
	log.Info().Msg("stopped")
}

func closeRedis(rdb *redis.Client, log zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "discovery",
		"version": version,
	})
}
