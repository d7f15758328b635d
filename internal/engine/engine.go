// Package engine orchestrates scrape runs: query normalization, run
// bookkeeping in the store, catalog pagination into a sink, metrics, and
// run summary notifications.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/donaldgifford/catalog-scraper/internal/metrics"
	"github.com/donaldgifford/catalog-scraper/internal/notify"
	"github.com/donaldgifford/catalog-scraper/internal/query"
	"github.com/donaldgifford/catalog-scraper/internal/store"
	"github.com/donaldgifford/catalog-scraper/internal/vinted"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

const (
	// AdhocName labels runs that were not started by a scheduled search.
	AdhocName = "adhoc"

	defaultSampleSize = 5
)

// CatalogRunner fetches catalog pages for a query into a sink.
// *vinted.Paginator satisfies it.
type CatalogRunner interface {
	Run(ctx context.Context, q *query.Query, limits vinted.Limits, sink vinted.Sink) (*domain.RunResult, error)
}

// Engine runs catalog scrapes end to end.
type Engine struct {
	runner   CatalogRunner
	sink     vinted.Sink
	store    store.Store
	notifier notify.Notifier
	log      *slog.Logger

	queryOpts  []query.Option
	sampleSize int
	now        func() time.Time
}

// NewEngine creates a new Engine. The store and notifier are optional and
// may be nil.
func NewEngine(
	r CatalogRunner,
	sink vinted.Sink,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		runner:     r,
		sink:       sink,
		log:        slog.Default(),
		sampleSize: defaultSampleSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithStore records run start and completion in s.
func WithStore(s store.Store) EngineOption {
	return func(e *Engine) {
		e.store = s
	}
}

// WithNotifier sends a summary to n after every run.
func WithNotifier(n notify.Notifier) EngineOption {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithQueryOptions sets the options passed to query.Normalize.
func WithQueryOptions(opts ...query.Option) EngineOption {
	return func(e *Engine) {
		e.queryOpts = opts
	}
}

// WithSampleSize sets how many saved items are attached to run summaries.
func WithSampleSize(n int) EngineOption {
	return func(e *Engine) {
		e.sampleSize = max(n, 0)
	}
}

// WithNowFunc overrides the clock used for run durations.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = f
	}
}

// Run executes an ad hoc scrape for in.
func (eng *Engine) Run(ctx context.Context, in query.Input) (*domain.RunResult, error) {
	return eng.RunNamed(ctx, AdhocName, in)
}

// RunNamed executes a scrape for in, labelling logs and notifications with
// name. The returned result is never nil; on a fatal error its StopReason is
// StopError and the error is also returned.
func (eng *Engine) RunNamed(ctx context.Context, name string, in query.Input) (*domain.RunResult, error) {
	start := eng.now()
	log := eng.log.With("search", name)

	q, err := query.Normalize(in, eng.queryOpts...)
	if err != nil {
		res := &domain.RunResult{StopReason: domain.StopError, Error: err.Error()}
		eng.finish(ctx, log, name, "", "", res, start, nil)
		return res, fmt.Errorf("normalizing query: %w", err)
	}

	resultsWanted, maxPages := in.Limits()
	log.Info("scrape starting",
		"query", q.String(),
		"results_wanted", resultsWanted,
		"max_pages", maxPages,
	)

	runID := eng.insertRun(ctx, log, q.String())

	sampler := &sampleSink{next: eng.sink, size: eng.sampleSize}
	res, runErr := eng.runner.Run(ctx, q, vinted.Limits{
		ResultsWanted: resultsWanted,
		MaxPages:      maxPages,
	}, sampler)
	if res == nil {
		res = &domain.RunResult{StopReason: domain.StopError}
		if runErr != nil {
			res.Error = runErr.Error()
		}
	}

	eng.finish(ctx, log, name, runID, q.String(), res, start, sampler.items())

	if runErr != nil {
		return res, fmt.Errorf("scraping %s: %w", name, runErr)
	}
	return res, nil
}

func (eng *Engine) insertRun(ctx context.Context, log *slog.Logger, q string) string {
	if eng.store == nil {
		return ""
	}
	id, err := eng.store.InsertRun(ctx, q)
	if err != nil {
		log.Warn("recording run start failed", "error", err)
		return ""
	}
	return id
}

// finish records the outcome. Bookkeeping uses a context detached from
// cancellation so an interrupted run is still recorded.
func (eng *Engine) finish(
	ctx context.Context,
	log *slog.Logger,
	name, runID, q string,
	res *domain.RunResult,
	start time.Time,
	sample []domain.Item,
) {
	elapsed := eng.now().Sub(start)
	metrics.RunsTotal.WithLabelValues(string(res.StopReason)).Inc()
	metrics.RunDuration.Observe(elapsed.Seconds())

	bg := context.WithoutCancel(ctx)

	if runID != "" {
		if err := eng.store.CompleteRun(bg, runID, res); err != nil {
			log.Warn("recording run completion failed", "run_id", runID, "error", err)
		}
	}

	log.Info("scrape finished",
		"saved", res.Saved,
		"pages", res.Pages,
		"stop_reason", res.StopReason,
		"duration", elapsed,
	)

	if eng.notifier == nil {
		return
	}
	summary := &notify.RunSummary{
		Name:     name,
		Query:    q,
		Result:   *res,
		Duration: elapsed,
		Sample:   sample,
	}
	if err := eng.notifier.SendRunSummary(bg, summary); err != nil {
		metrics.NotificationFailuresTotal.Inc()
		log.Warn("sending run summary failed", "error", err)
	}
}

// sampleSink forwards batches and keeps the first size items that were
// accepted downstream.
type sampleSink struct {
	next vinted.Sink
	size int

	mu     sync.Mutex
	sample []domain.Item
}

func (s *sampleSink) Push(ctx context.Context, items []domain.Item) error {
	if s.next == nil {
		return errors.New("no sink configured")
	}
	if err := s.next.Push(ctx, items); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.size - len(s.sample)
	if room > 0 {
		s.sample = append(s.sample, items[:min(room, len(items))]...)
	}
	return nil
}

func (s *sampleSink) items() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sample
}
