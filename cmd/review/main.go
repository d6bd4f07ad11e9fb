// jobmate-review: REST surface over the accepted jobs table
//
// Lists discovered jobs and records the workflow flags a person sets while
// going through them:
//   - GET  /jobs                : list, newest first (?hidden=true includes hidden)
//   - GET  /jobs/{id}           : one job
//   - POST /jobs/{id}/{action}  : hide, apply, interview, reject, star, notes, resume
//
// Publishes EVENT_JOB_UPDATED to Redis when REDIS_URL is set.
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

	"jobmate/discovery/internal/config"
	"jobmate/discovery/internal/db"
	"jobmate/discovery/internal/events"
	"jobmate/discovery/internal/logging"
	"jobmate/discovery/internal/review"
	"jobmate/discovery/internal/storage"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[review] config error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", "review").Logger()

	search, err := config.LoadSearch(cfg.SearchConfigPath)
	if err != nil {
		log.Fatal().Err(err).Msg("search config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
	if err := store.EnsureSchema(ctx, search.JobsTable); err != nil {
		log.Fatal().Err(err).Str("table", search.JobsTable).Msg("ensure schema")
	}
	log.Info().Str("driver", dialect.Name()).Str("table", search.JobsTable).Msg("database ready ✓")

	// ── Redis (optional) ────────────────────────────────────────────────────
	var pub review.Publisher = events.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer rdb.Close()
		pub = events.NewPublisher(rdb, events.ChannelJobUpdated)
		log.Info().Msg("redis connected ✓")
	}

	// ── HTTP server ─────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)

	h := review.NewHandler(review.NewService(store, search.JobsTable, pub, log), log)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.ReviewPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("version", version).Str("port", cfg.ReviewPort).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// ── Graceful shutdown ───────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("stopped")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "review",
		"version": version,
	})
}
