// Package store defines the datastore abstraction for the catalog scraper.
// Callers depend on the Store interface, never on concrete implementations,
// so run orchestration and the API can be tested without a database.
package store

import (
	"context"
	"errors"
	"time"

	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ItemQuery defines optional filters for item queries.
type ItemQuery struct {
	Search   *string // case-insensitive title match
	Brand    *string
	Currency *string
	SellerID *string
	MinPrice *float64
	MaxPrice *float64
	Limit    int // default 50
	Offset   int
	OrderBy  string // "price", "favourites", "first_seen_at"
}

// Store defines all data access operations for the catalog scraper.
type Store interface {
	// Items
	UpsertItems(ctx context.Context, items []domain.Item) (int, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	ListItems(ctx context.Context, opts *ItemQuery) ([]domain.Item, int, error)
	CountItems(ctx context.Context) (int, error)

	// Runs
	InsertRun(ctx context.Context, query string) (id string, err error)
	CompleteRun(ctx context.Context, id string, res *domain.RunResult) error
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
	RecoverStaleRuns(ctx context.Context, olderThan time.Duration) (int, error)

	// Scheduler
	AcquireSchedulerLock(ctx context.Context, jobName string, holder string, ttl time.Duration) (bool, error)
	ReleaseSchedulerLock(ctx context.Context, jobName string, holder string) error

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
