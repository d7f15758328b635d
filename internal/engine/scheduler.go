package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/donaldgifford/catalog-scraper/internal/metrics"
	"github.com/donaldgifford/catalog-scraper/internal/query"
	"github.com/donaldgifford/catalog-scraper/internal/store"
)

const (
	defaultLockTTL      = 30 * time.Minute
	defaultStaleRunAge  = 2 * time.Hour
	lockReleaseDeadline = 10 * time.Second
)

// Search is a named scrape that runs on a fixed interval.
type Search struct {
	Name     string
	Interval time.Duration
	Input    query.Input
}

// Scheduler runs configured searches periodically. When a store is set,
// each run holds a per-search distributed lock so only one replica scrapes
// a given search at a time.
type Scheduler struct {
	cron    *cron.Cron
	engine  *Engine
	store   store.Store
	log     *slog.Logger
	holder  string
	lockTTL time.Duration

	searches []Search
	entryIDs map[string]cron.EntryID
}

// SearchStatus describes a scheduled search and its next run time.
type SearchStatus struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	Query    query.Input   `json:"query"`
	NextRun  time.Time     `json:"next_run,omitzero"`
	PrevRun  time.Time     `json:"prev_run,omitzero"`
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLockTTL sets how long a search lock is held before it may be taken over.
func WithLockTTL(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.lockTTL = d
	}
}

// WithLockHolder sets the identity recorded on acquired locks.
func WithLockHolder(h string) SchedulerOption {
	return func(s *Scheduler) {
		s.holder = h
	}
}

// NewScheduler creates a Scheduler with one cron entry per search. st may
// be nil, in which case runs are not locked.
func NewScheduler(
	eng *Engine,
	st store.Store,
	searches []Search,
	log *slog.Logger,
	opts ...SchedulerOption,
) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}

	s := &Scheduler{
		engine:   eng,
		store:    st,
		log:      log,
		holder:   defaultHolder(),
		lockTTL:  defaultLockTTL,
		entryIDs: make(map[string]cron.EntryID, len(searches)),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: log}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	for _, search := range searches {
		if search.Interval <= 0 {
			return nil, fmt.Errorf("search %q: interval must be positive", search.Name)
		}
		if _, dup := s.entryIDs[search.Name]; dup {
			return nil, fmt.Errorf("search %q: duplicate name", search.Name)
		}

		id, err := s.cron.AddFunc("@every "+search.Interval.String(), s.searchJob(search))
		if err != nil {
			return nil, fmt.Errorf("scheduling search %q: %w", search.Name, err)
		}
		s.entryIDs[search.Name] = id
		s.searches = append(s.searches, search)
	}

	return s, nil
}

func defaultHolder() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("scheduler started", "searches", len(s.entryIDs))
	s.cron.Start()
	s.SyncNextRunTimestamps()
}

// Stop gracefully stops the scheduler, waiting for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("scheduler stopping")
	return s.cron.Stop()
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Searches reports every scheduled search in registration order. Run times
// are zero until the scheduler has started.
func (s *Scheduler) Searches() []SearchStatus {
	out := make([]SearchStatus, 0, len(s.searches))
	for _, search := range s.searches {
		e := s.cron.Entry(s.entryIDs[search.Name])
		out = append(out, SearchStatus{
			Name:     search.Name,
			Interval: search.Interval,
			Query:    search.Input,
			NextRun:  e.Next,
			PrevRun:  e.Prev,
		})
	}
	return out
}

// SyncNextRunTimestamps publishes each search's next run time.
func (s *Scheduler) SyncNextRunTimestamps() {
	for name, id := range s.entryIDs {
		next := s.cron.Entry(id).Next
		if next.IsZero() {
			continue
		}
		metrics.SchedulerNextRunTimestamp.WithLabelValues(name).Set(float64(next.Unix()))
	}
}

// RecoverStaleRuns marks runs abandoned by a crashed process as errored.
func (s *Scheduler) RecoverStaleRuns(ctx context.Context) {
	if s.store == nil {
		return
	}
	n, err := s.store.RecoverStaleRuns(ctx, defaultStaleRunAge)
	if err != nil {
		s.log.Error("recovering stale runs failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Warn("marked stale runs as abandoned", "count", n)
	}
}

func (s *Scheduler) searchJob(search Search) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
		defer cancel()
		defer s.SyncNextRunTimestamps()

		err := s.runJob(ctx, "scrape:"+search.Name, func(ctx context.Context) error {
			_, err := s.engine.RunNamed(ctx, search.Name, search.Input)
			return err
		})
		if err != nil {
			s.log.Error("scheduled scrape failed", "search", search.Name, "error", err)
		}
	}
}

// runJob runs fn while holding the named lock. A lock held elsewhere skips
// the run without error.
func (s *Scheduler) runJob(ctx context.Context, jobName string, fn func(context.Context) error) error {
	if s.store == nil {
		return fn(ctx)
	}

	ok, err := s.store.AcquireSchedulerLock(ctx, jobName, s.holder, s.lockTTL)
	if err != nil {
		metrics.SchedulerSkipsTotal.WithLabelValues("lock_error").Inc()
		return fmt.Errorf("acquiring lock for %s: %w", jobName, err)
	}
	if !ok {
		metrics.SchedulerSkipsTotal.WithLabelValues("locked").Inc()
		s.log.Info("job locked by another holder, skipping", "job", jobName)
		return nil
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseDeadline)
		defer cancel()
		if err := s.store.ReleaseSchedulerLock(releaseCtx, jobName, s.holder); err != nil {
			s.log.Warn("releasing lock failed", "job", jobName, "error", err)
		}
	}()

	return fn(ctx)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
