package vinted

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter paces catalog requests and enforces a per-run request budget.
// It uses a token bucket for pacing and a simple counter for the budget.
type RateLimiter struct {
	limiter *rate.Limiter
	used    atomic.Int64
	budget  int64
}

// NewRateLimiter creates a rate limiter with the given per-second rate,
// burst size, and request budget. A non-positive rate disables pacing and a
// non-positive budget disables the budget.
func NewRateLimiter(perSecond float64, burst int, budget int64) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		budget:  budget,
	}
}

// Wait blocks until the next request is allowed, or the context is canceled.
// Returns ErrRequestBudgetExhausted once the budget has been spent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r.budget > 0 && r.used.Load() >= r.budget {
		return fmt.Errorf("%w (%d/%d)", ErrRequestBudgetExhausted, r.used.Load(), r.budget)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	r.used.Add(1)
	return nil
}

// Used returns the number of requests allowed so far.
func (r *RateLimiter) Used() int64 {
	return r.used.Load()
}

// Budget returns the configured request budget. Zero means unlimited.
func (r *RateLimiter) Budget() int64 {
	return r.budget
}

// Remaining returns the number of requests left in the budget, or -1 when
// the budget is unlimited.
func (r *RateLimiter) Remaining() int64 {
	if r.budget <= 0 {
		return -1
	}
	remaining := r.budget - r.used.Load()
	if remaining < 0 {
		return 0
	}
	return remaining
}
