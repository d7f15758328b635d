package vinted

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/catalog-scraper/internal/metrics"
	"github.com/donaldgifford/catalog-scraper/internal/query"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

const tracerName = "github.com/donaldgifford/catalog-scraper/internal/vinted"

// Limits bounds a single run.
type Limits struct {
	ResultsWanted int
	MaxPages      int
}

// Paginator walks catalog pages for one query, one request at a time,
// re-authenticating or backing off on recoverable failures.
type Paginator struct {
	minter      SessionMinter
	log         *slog.Logger
	tracer      trace.Tracer
	pageSize    int
	maxAttempts int
	backoff     Backoff
	sleep       func(ctx context.Context, d time.Duration) error
	perSecond   float64
	burst       int
	budget      int64
}

// PaginatorOption configures the Paginator.
type PaginatorOption func(*Paginator)

// WithPageSize overrides the default page size.
func WithPageSize(size int) PaginatorOption {
	return func(p *Paginator) {
		if size > 0 {
			p.pageSize = size
		}
	}
}

// WithMaxAttempts lowers the per-page attempt bound. Values above
// MaxAttemptsPerPage are clamped to it.
func WithMaxAttempts(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.maxAttempts = min(n, MaxAttemptsPerPage)
		}
	}
}

// WithBackoff overrides the retry delay policy.
func WithBackoff(b Backoff) PaginatorOption {
	return func(p *Paginator) {
		p.backoff = b
	}
}

// WithSleepFunc overrides how backoff delays are waited out, for testing.
func WithSleepFunc(f func(ctx context.Context, d time.Duration) error) PaginatorOption {
	return func(p *Paginator) {
		p.sleep = f
	}
}

// WithPacing sets the request rate shared by all attempts of a run.
func WithPacing(perSecond float64, burst int) PaginatorOption {
	return func(p *Paginator) {
		p.perSecond = perSecond
		p.burst = burst
	}
}

// WithRequestBudget caps the total requests of a run. Zero derives the
// budget from the page and attempt limits.
func WithRequestBudget(n int64) PaginatorOption {
	return func(p *Paginator) {
		p.budget = n
	}
}

// WithPaginatorLogger sets the logger.
func WithPaginatorLogger(l *slog.Logger) PaginatorOption {
	return func(p *Paginator) {
		p.log = l
	}
}

// WithTracer sets the tracer used for per-page spans.
func WithTracer(t trace.Tracer) PaginatorOption {
	return func(p *Paginator) {
		p.tracer = t
	}
}

// NewPaginator creates a new Paginator.
func NewPaginator(minter SessionMinter, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		minter:      minter,
		log:         slog.Default(),
		tracer:      otel.Tracer(tracerName),
		pageSize:    DefaultPageSize,
		maxAttempts: MaxAttemptsPerPage,
		backoff:     DefaultBackoff(),
		sleep:       sleepContext,
		burst:       1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// runState is the mutable state threaded through one run.
type runState struct {
	q       *query.Query
	limits  Limits
	sess    *Session
	seen    *SeenSet
	limiter *RateLimiter
	result  *domain.RunResult
}

// Run fetches pages for q and pushes every page's admitted items to sink
// until a stop condition or a fatal error. The returned result is never
// nil; on a fatal error its StopReason is StopError and the error is also
// returned.
func (p *Paginator) Run(
	ctx context.Context,
	q *query.Query,
	limits Limits,
	sink Sink,
) (*domain.RunResult, error) {
	limits.ResultsWanted = max(limits.ResultsWanted, 1)
	limits.MaxPages = max(limits.MaxPages, 1)

	budget := p.budget
	if budget <= 0 {
		budget = int64(limits.MaxPages * p.maxAttempts)
	}

	run := &runState{
		q:       q,
		limits:  limits,
		seen:    NewSeenSet(),
		limiter: NewRateLimiter(p.perSecond, p.burst, budget),
		result:  &domain.RunResult{},
	}

	reason, err := p.run(ctx, run, sink)
	if err != nil {
		run.result.StopReason = domain.StopError
		run.result.Error = err.Error()
		p.log.Error("run aborted",
			"saved", run.result.Saved,
			"pages", run.result.Pages,
			"requests", run.limiter.Used(),
			"budget", run.limiter.Budget(),
			"error", err,
		)
		return run.result, err
	}

	run.result.StopReason = reason
	p.log.Info("run complete",
		"saved", run.result.Saved,
		"pages", run.result.Pages,
		"attempts", run.result.Attempts,
		"requests", run.limiter.Used(),
		"budget", run.limiter.Budget(),
		"stop_reason", reason,
	)
	return run.result, nil
}

func (p *Paginator) run(ctx context.Context, run *runState, sink Sink) (domain.StopReason, error) {
	if err := p.refreshSession(ctx, run); err != nil {
		return "", err
	}

	for page := 1; page <= run.limits.MaxPages; page++ {
		pr, err := p.fetchPage(ctx, run, page)
		if err != nil {
			return "", err
		}

		run.result.Pages = page
		metrics.PagesFetchedTotal.Inc()
		if page == 1 && pr.TotalPages != nil {
			run.result.TotalPages = pr.TotalPages
		}

		items := ToItems(pr.Items, run.q.BaseURL())
		adm := Admit(items, run.seen, page, run.limits.ResultsWanted-run.result.Saved)

		if err := sink.Push(ctx, adm.Batch); err != nil {
			metrics.SinkErrorsTotal.Inc()
			return "", fmt.Errorf("pushing page %d: %w", page, err)
		}
		run.result.Saved += len(adm.Batch)

		recordSkipped(len(pr.Items)-len(items), pr.Malformed, adm)
		metrics.ItemsSavedTotal.Add(float64(len(adm.Batch)))

		p.log.Debug("page processed",
			"page", page,
			"raw", len(pr.Items),
			"saved", len(adm.Batch),
			"duplicates", adm.Duplicates,
			"over_budget", adm.OverBudget,
			"total_saved", run.result.Saved,
		)

		switch {
		case len(pr.Items)+pr.Malformed == 0:
			return domain.StopCatalogExhausted, nil
		case run.result.Saved >= run.limits.ResultsWanted:
			return domain.StopBudgetReached, nil
		case run.result.TotalPages != nil && page >= *run.result.TotalPages:
			return domain.StopPaginationLimit, nil
		}
	}

	return domain.StopMaxPages, nil
}

func recordSkipped(noID, malformed int, adm AdmitResult) {
	metrics.ItemsSkippedTotal.WithLabelValues("no_id").Add(float64(noID))
	metrics.ItemsSkippedTotal.WithLabelValues("malformed").Add(float64(malformed))
	metrics.ItemsSkippedTotal.WithLabelValues("duplicate").Add(float64(adm.Duplicates))
	metrics.ItemsSkippedTotal.WithLabelValues("over_budget").Add(float64(adm.OverBudget))
}

// refreshSession replaces the run's session with a freshly minted one.
func (p *Paginator) refreshSession(ctx context.Context, run *runState) error {
	run.result.Bootstraps++
	sess, err := p.minter.Bootstrap(ctx, run.q)
	if err != nil {
		return err
	}
	run.sess = sess
	return nil
}

// fetchPage drives the attempt loop for one page.
func (p *Paginator) fetchPage(ctx context.Context, run *runState, page int) (*pageResult, error) {
	ctx, span := p.tracer.Start(ctx, "catalog.page",
		trace.WithAttributes(attribute.Int("catalog.page", page)))
	defer span.End()

	pr, attempts, err := p.attemptLoop(ctx, run, page)
	span.SetAttributes(attribute.Int("catalog.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("catalog.items", len(pr.Items)))
	return pr, nil
}

func (p *Paginator) attemptLoop(ctx context.Context, run *runState, page int) (*pageResult, int, error) {
	var last error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		run.result.Attempts++

		pr, state, err := p.attempt(ctx, run, page)
		metrics.PageAttemptsTotal.WithLabelValues(state.String()).Inc()
		metrics.RequestBudgetRemaining.Set(float64(run.limiter.Remaining()))

		switch state {
		case StateSuccess:
			return pr, attempt, nil

		case StateAuthRetry:
			last = err
			p.log.Warn("credentials rejected",
				"page", page, "attempt", attempt, "error", err)
			if attempt < p.maxAttempts {
				if err := p.refreshSession(ctx, run); err != nil {
					return nil, attempt, err
				}
			}

		case StateBackoffRetry:
			last = err
			if attempt < p.maxAttempts {
				d := p.backoff.Delay(attempt)
				metrics.BackoffSeconds.Observe(d.Seconds())
				p.log.Warn("transient failure, backing off",
					"page", page, "attempt", attempt, "delay", d, "error", err)
				if err := p.sleep(ctx, d); err != nil {
					return nil, attempt, fmt.Errorf("page %d: backoff interrupted: %w", page, err)
				}
			}

		default:
			return nil, attempt, err
		}
	}

	return nil, p.maxAttempts, &PageFetchExhausted{Page: page, Attempts: p.maxAttempts, Last: last}
}

// attempt issues one request for page and classifies the outcome.
func (p *Paginator) attempt(ctx context.Context, run *runState, page int) (*pageResult, State, error) {
	if err := run.limiter.Wait(ctx); err != nil {
		return nil, StateFatal, fmt.Errorf("page %d: %w", page, err)
	}

	req, err := newPageRequest(ctx, run.q, run.sess, page, p.pageSize)
	if err != nil {
		return nil, StateFatal, err
	}

	resp, err := run.sess.Conduit.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, StateFatal, fmt.Errorf("page %d: %w", page, ctxErr)
		}
		return nil, Classify(0, err), &TransientError{Page: page, Err: err}
	}
	defer resp.Body.Close()

	run.sess.Credentials.Merge(resp)
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBody))

	state := Classify(resp.StatusCode, nil)
	switch state {
	case StateSuccess:
		if readErr != nil {
			return nil, StateBackoffRetry, &TransientError{Page: page, Status: resp.StatusCode, Err: readErr}
		}
		pr, err := parsePage(page, body)
		if err != nil {
			return nil, StateFatal, err
		}
		return pr, StateSuccess, nil
	case StateAuthRetry:
		return nil, state, &AuthRejectedError{Page: page, Status: resp.StatusCode}
	case StateBackoffRetry:
		return nil, state, &TransientError{Page: page, Status: resp.StatusCode}
	default:
		return nil, StateFatal, &UnexpectedStatusError{
			Page:    page,
			Status:  resp.StatusCode,
			Excerpt: excerpt(body),
		}
	}
}
