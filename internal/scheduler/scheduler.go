// Package scheduler wires up the cron job that periodically triggers a
// discovery run.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"jobmate/discovery/internal/logging"
	"jobmate/discovery/internal/scraper"
)

// Runner executes one discovery run.
type Runner interface {
	Run(ctx context.Context) (scraper.Report, error)
}

// Locker guards against two processes running at once. Extend is called
// periodically while a run holds the lock.
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	Extend(ctx context.Context) error
}

// DefaultLockRefresh is how often a held run lock is extended. Lock TTLs
// must be comfortably longer.
const DefaultLockRefresh = time.Minute

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithLockRefresh changes how often the run lock is extended.
func WithLockRefresh(d time.Duration) Option {
	return func(s *Scheduler) { s.refreshEvery = d }
}

// Scheduler wraps robfig/cron and manages the scrape loop.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	lock   Locker
	spec   string // cron spec, e.g. "@every 6h"
	log    zerolog.Logger

	refreshEvery time.Duration

	initial sync.WaitGroup
}

// New creates a Scheduler that fires every intervalHours hours. Overlapping
// ticks within the process are skipped; lock covers other processes.
func New(runner Runner, lock Locker, intervalHours int, log zerolog.Logger, opts ...Option) *Scheduler {
	log = logging.Component(log, "scheduler")
	clog := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(clog),
			cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
		),
		runner:       runner,
		lock:         lock,
		spec:         fmt.Sprintf("@every %dh", intervalHours),
		log:          log,
		refreshEvery: DefaultLockRefresh,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start registers the job and starts the scheduler. Also runs one scrape
// immediately so the tables are populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	id, err := s.cron.AddFunc(s.spec, func() {
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("cron started")

	// Run immediately through the job chain so it counts as "still running".
	job := s.cron.Entry(id).WrappedJob
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()

	return nil
}

// Stop shuts the scheduler down and waits for a running scrape to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.initial.Wait()
	s.log.Info().Msg("cron stopped")
}

// RunNow performs one run under the lock and returns its report. When the
// lock is held elsewhere the run is skipped and ok is false.
func (s *Scheduler) RunNow(ctx context.Context) (rep scraper.Report, ok bool) {
	acquired, err := s.lock.TryAcquire(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("run lock unavailable, skipping run")
		return rep, false
	}
	if !acquired {
		s.log.Info().Msg("another discovery run holds the lock, skipping")
		return rep, false
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn().Err(err).Msg("release run lock failed")
		}
	}()

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	refreshed := make(chan struct{})
	go func() {
		defer close(refreshed)
		s.keepLock(refreshCtx)
	}()
	defer func() {
		stopRefresh()
		<-refreshed
	}()

	s.log.Info().Msg("scrape cycle started")
	rep, err = s.runner.Run(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("run", rep.RunID).Msg("scrape cycle failed")
		return rep, true
	}
	s.log.Info().Str("run", rep.RunID).Msg("scrape cycle complete")
	return rep, true
}

// keepLock extends the run lock until ctx is done or the lock is lost.
func (s *Scheduler) keepLock(ctx context.Context) {
	if s.refreshEvery <= 0 {
		return
	}
	ticker := time.NewTicker(s.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.lock.Extend(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Error().Err(err).Msg("run lock could not be extended")
				return
			}
		}
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
