package vinted

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"
)

// MaxAttemptsPerPage bounds the requests issued for a single page.
const MaxAttemptsPerPage = 4

// MaxBackoffDelay caps the deterministic part of a retry delay.
const MaxBackoffDelay = 5 * time.Minute

const (
	defaultBackoffBase   = 800 * time.Millisecond
	defaultBackoffJitter = 600 * time.Millisecond
)

// State is the classified outcome of one page request attempt.
type State int

// Page fetch states.
const (
	StateFetching State = iota
	StateSuccess
	StateAuthRetry
	StateBackoffRetry
	StateFatal
)

// String implements fmt.Stringer. The values double as metric labels.
func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateSuccess:
		return "success"
	case StateAuthRetry:
		return "auth_retry"
	case StateBackoffRetry:
		return "backoff_retry"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps a response status (or a transport error, when err is
// non-nil) to the next state. Transport errors, including timeouts, share
// the backoff bucket with 429 and 5xx responses.
func Classify(status int, err error) State {
	if err != nil {
		return StateBackoffRetry
	}
	switch {
	case status == http.StatusOK:
		return StateSuccess
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return StateAuthRetry
	case status == http.StatusTooManyRequests, status >= 500 && status <= 599:
		return StateBackoffRetry
	default:
		return StateFatal
	}
}

// Backoff computes retry delays as Base*2^(attempt-1), capped at
// MaxBackoffDelay, plus a random jitter in [0, Jitter).
type Backoff struct {
	Base   time.Duration
	Jitter time.Duration

	// randN returns a value in [0, n). Defaults to rand.Int64N.
	randN func(n int64) int64
}

// DefaultBackoff returns the standard 800ms base, 600ms jitter policy.
func DefaultBackoff() Backoff {
	return Backoff{Base: defaultBackoffBase, Jitter: defaultBackoffJitter}
}

// BaseDelay returns the deterministic part of the delay for attempt
// (1-based), saturating at MaxBackoffDelay.
func (b Backoff) BaseDelay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	d := min(b.Base, MaxBackoffDelay)
	for i := 1; i < attempt; i++ {
		if d >= MaxBackoffDelay/2 {
			return MaxBackoffDelay
		}
		d <<= 1
	}
	return d
}

// Delay returns the full delay for attempt, jitter included.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.BaseDelay(attempt)
	if b.Jitter <= 0 {
		return d
	}
	randN := b.randN
	if randN == nil {
		randN = rand.Int64N
	}
	return d + time.Duration(randN(int64(b.Jitter)))
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
