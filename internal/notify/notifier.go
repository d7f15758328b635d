// Package notify defines the notification interface and implementations
// for run summary delivery.
package notify

import (
	"context"
	"time"

	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// RunSummary contains the data needed to announce a finished scrape run.
type RunSummary struct {
	Name     string // scheduled search name, or "adhoc"
	Query    string
	Result   domain.RunResult
	Duration time.Duration
	// Sample holds the first items saved by the run, in emission order.
	Sample []domain.Item
}

// Failed reports whether the run ended on a fatal error.
func (s *RunSummary) Failed() bool {
	return s.Result.StopReason == domain.StopError
}

// Notifier defines the interface for sending run notifications.
type Notifier interface {
	SendRunSummary(ctx context.Context, summary *RunSummary) error
}
