package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	ptestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/catalog-scraper/internal/metrics"
	"github.com/donaldgifford/catalog-scraper/internal/notify"
	notifyMocks "github.com/donaldgifford/catalog-scraper/internal/notify/mocks"
	"github.com/donaldgifford/catalog-scraper/internal/query"
	storeMocks "github.com/donaldgifford/catalog-scraper/internal/store/mocks"
	"github.com/donaldgifford/catalog-scraper/internal/vinted"
	vintedMocks "github.com/donaldgifford/catalog-scraper/internal/vinted/mocks"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// quietLogger returns a logger that discards output for tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runnerFunc adapts a function to CatalogRunner.
type runnerFunc func(ctx context.Context, q *query.Query, limits vinted.Limits, sink vinted.Sink) (*domain.RunResult, error)

func (f runnerFunc) Run(
	ctx context.Context,
	q *query.Query,
	limits vinted.Limits,
	sink vinted.Sink,
) (*domain.RunResult, error) {
	return f(ctx, q, limits, sink)
}

func itemsWithIDs(ids ...string) []domain.Item {
	out := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Item{ID: id})
	}
	return out
}

// pushingRunner pushes the given batches and reports budget_reached.
func pushingRunner(batches ...[]domain.Item) runnerFunc {
	return func(ctx context.Context, _ *query.Query, _ vinted.Limits, sink vinted.Sink) (*domain.RunResult, error) {
		res := &domain.RunResult{StopReason: domain.StopBudgetReached}
		for _, b := range batches {
			if err := sink.Push(ctx, b); err != nil {
				res.StopReason = domain.StopError
				res.Error = err.Error()
				return res, err
			}
			res.Saved += len(b)
			res.Pages++
		}
		return res, nil
	}
}

func acceptingSink(t *testing.T) *vintedMocks.MockSink {
	t.Helper()
	ms := vintedMocks.NewMockSink(t)
	ms.EXPECT().Push(mock.Anything, mock.Anything).Return(nil).Maybe()
	return ms
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	eng := NewEngine(pushingRunner(), acceptingSink(t))
	assert.Equal(t, defaultSampleSize, eng.sampleSize)
	assert.NotNil(t, eng.log)
	assert.NotNil(t, eng.now)
	assert.Nil(t, eng.store)
	assert.Nil(t, eng.notifier)
}

func TestNewEngine_WithOptions(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	mn := notifyMocks.NewMockNotifier(t)
	l := quietLogger()

	eng := NewEngine(pushingRunner(), acceptingSink(t),
		WithLogger(l),
		WithStore(ms),
		WithNotifier(mn),
		WithSampleSize(-4),
		WithQueryOptions(query.WithBaseURL("https://www.vinted.fr")),
	)
	assert.Same(t, l, eng.log)
	assert.Same(t, ms, eng.store)
	assert.Same(t, mn, eng.notifier)
	assert.Equal(t, 0, eng.sampleSize)
	assert.Len(t, eng.queryOpts, 1)
}

func TestRun_Success(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	mn := notifyMocks.NewMockNotifier(t)
	sink := acceptingSink(t)

	q, err := query.Normalize(query.Input{Keyword: "denim"})
	require.NoError(t, err)

	ms.EXPECT().InsertRun(mock.Anything, q.String()).Return("run-1", nil).Once()
	ms.EXPECT().CompleteRun(mock.Anything, "run-1", mock.MatchedBy(func(r *domain.RunResult) bool {
		return r.Saved == 7 && r.StopReason == domain.StopBudgetReached
	})).Return(nil).Once()
	mn.EXPECT().SendRunSummary(mock.Anything, mock.MatchedBy(func(s *notify.RunSummary) bool {
		return s.Name == "denim" &&
			s.Query == q.String() &&
			s.Result.Saved == 7 &&
			len(s.Sample) == 5 &&
			s.Sample[0].ID == "1" &&
			s.Duration == 2*time.Second
	})).Return(nil).Once()

	var gotLimits vinted.Limits
	base := pushingRunner(itemsWithIDs("1", "2", "3"), itemsWithIDs("4", "5", "6", "7"))
	runner := runnerFunc(func(ctx context.Context, q *query.Query, limits vinted.Limits, s vinted.Sink) (*domain.RunResult, error) {
		gotLimits = limits
		return base(ctx, q, limits, s)
	})

	clock := []time.Time{time.Unix(100, 0), time.Unix(102, 0)}
	eng := NewEngine(runner, sink,
		WithLogger(quietLogger()),
		WithStore(ms),
		WithNotifier(mn),
		WithNowFunc(func() time.Time {
			now := clock[0]
			if len(clock) > 1 {
				clock = clock[1:]
			}
			return now
		}),
	)

	before := ptestutil.ToFloat64(metrics.RunsTotal.WithLabelValues(string(domain.StopBudgetReached)))

	res, err := eng.RunNamed(context.Background(), "denim", query.Input{Keyword: "denim"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Saved)
	assert.Equal(t, domain.StopBudgetReached, res.StopReason)
	assert.Equal(t, vinted.Limits{ResultsWanted: 20, MaxPages: 10}, gotLimits)

	after := ptestutil.ToFloat64(metrics.RunsTotal.WithLabelValues(string(domain.StopBudgetReached)))
	assert.InDelta(t, before+1, after, 0.001)
}

func TestRun_ValidationError(t *testing.T) {
	t.Parallel()

	mn := notifyMocks.NewMockNotifier(t)
	ms := storeMocks.NewMockStore(t)

	mn.EXPECT().SendRunSummary(mock.Anything, mock.MatchedBy(func(s *notify.RunSummary) bool {
		return s.Failed() && s.Name == AdhocName
	})).Return(nil).Once()

	called := false
	runner := runnerFunc(func(context.Context, *query.Query, vinted.Limits, vinted.Sink) (*domain.RunResult, error) {
		called = true
		return &domain.RunResult{}, nil
	})

	eng := NewEngine(runner, acceptingSink(t),
		WithLogger(quietLogger()),
		WithStore(ms),
		WithNotifier(mn),
	)

	minPrice, maxPrice := 50.0, 10.0
	res, err := eng.Run(context.Background(), query.Input{MinPrice: &minPrice, MaxPrice: &maxPrice})
	require.Error(t, err)

	var verr *query.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "minPrice", verr.Field)
	assert.False(t, called, "no fetch after a validation failure")
	require.NotNil(t, res)
	assert.Equal(t, domain.StopError, res.StopReason)
	assert.Contains(t, res.Error, "minPrice")
}

func TestRun_RunnerError(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	boom := &vinted.PageFetchExhausted{Page: 2, Attempts: 4}

	ms.EXPECT().InsertRun(mock.Anything, mock.Anything).Return("run-2", nil).Once()
	ms.EXPECT().CompleteRun(mock.Anything, "run-2", mock.MatchedBy(func(r *domain.RunResult) bool {
		return r.StopReason == domain.StopError && r.Saved == 3
	})).Return(nil).Once()

	runner := runnerFunc(func(ctx context.Context, _ *query.Query, _ vinted.Limits, s vinted.Sink) (*domain.RunResult, error) {
		_ = s.Push(ctx, itemsWithIDs("1", "2", "3"))
		return &domain.RunResult{Saved: 3, Pages: 1, StopReason: domain.StopError, Error: boom.Error()}, boom
	})

	eng := NewEngine(runner, acceptingSink(t), WithLogger(quietLogger()), WithStore(ms))

	res, err := eng.Run(context.Background(), query.Input{})
	require.Error(t, err)

	var exhausted *vinted.PageFetchExhausted
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, res.Saved, "items pushed before the failure stay counted")
}

func TestRun_NilResultFromRunner(t *testing.T) {
	t.Parallel()

	runner := runnerFunc(func(context.Context, *query.Query, vinted.Limits, vinted.Sink) (*domain.RunResult, error) {
		return nil, errors.New("boom")
	})

	eng := NewEngine(runner, acceptingSink(t), WithLogger(quietLogger()))
	res, err := eng.Run(context.Background(), query.Input{})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, domain.StopError, res.StopReason)
	assert.Equal(t, "boom", res.Error)
}

func TestRun_InsertRunFailsContinues(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().InsertRun(mock.Anything, mock.Anything).Return("", errors.New("db down")).Once()

	eng := NewEngine(pushingRunner(itemsWithIDs("1")), acceptingSink(t),
		WithLogger(quietLogger()),
		WithStore(ms),
	)

	res, err := eng.Run(context.Background(), query.Input{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Saved)
	ms.AssertNotCalled(t, "CompleteRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_NotificationFailureIsCounted(t *testing.T) {
	t.Parallel()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().SendRunSummary(mock.Anything, mock.Anything).Return(errors.New("webhook 500")).Once()

	eng := NewEngine(pushingRunner(), acceptingSink(t),
		WithLogger(quietLogger()),
		WithNotifier(mn),
	)

	before := ptestutil.ToFloat64(metrics.NotificationFailuresTotal)
	_, err := eng.Run(context.Background(), query.Input{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ptestutil.ToFloat64(metrics.NotificationFailuresTotal), before+1)
}

func TestRun_CanceledRunStillRecorded(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	ms.EXPECT().InsertRun(mock.Anything, mock.Anything).Return("run-3", nil).Once()
	var completeErr error
	ms.EXPECT().CompleteRun(mock.Anything, "run-3", mock.Anything).
		RunAndReturn(func(ctx context.Context, _ string, _ *domain.RunResult) error {
			completeErr = ctx.Err()
			return nil
		}).Once()

	runner := runnerFunc(func(ctx context.Context, _ *query.Query, _ vinted.Limits, _ vinted.Sink) (*domain.RunResult, error) {
		cancel()
		return &domain.RunResult{StopReason: domain.StopError, Error: ctx.Err().Error()}, ctx.Err()
	})

	eng := NewEngine(runner, acceptingSink(t), WithLogger(quietLogger()), WithStore(ms))
	_, err := eng.Run(ctx, query.Input{})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, completeErr, "completion is recorded on a live context")
}

func TestRun_SinkErrorSkipsSample(t *testing.T) {
	t.Parallel()

	sink := vintedMocks.NewMockSink(t)
	sink.EXPECT().Push(mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	mn := notifyMocks.NewMockNotifier(t)
	mn.EXPECT().SendRunSummary(mock.Anything, mock.MatchedBy(func(s *notify.RunSummary) bool {
		return len(s.Sample) == 0 && s.Failed()
	})).Return(nil).Once()

	eng := NewEngine(pushingRunner(itemsWithIDs("1")), sink,
		WithLogger(quietLogger()),
		WithNotifier(mn),
	)

	_, err := eng.Run(context.Background(), query.Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSampleSink(t *testing.T) {
	t.Parallel()

	s := &sampleSink{next: acceptingSink(t), size: 3}
	require.NoError(t, s.Push(context.Background(), itemsWithIDs("a", "b")))
	require.NoError(t, s.Push(context.Background(), nil))
	require.NoError(t, s.Push(context.Background(), itemsWithIDs("c", "d")))

	got := s.items()
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].ID)

	empty := &sampleSink{}
	require.Error(t, empty.Push(context.Background(), itemsWithIDs("a")))
}
