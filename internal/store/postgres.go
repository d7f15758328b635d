package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize sets the maximum number of pooled connections.
func WithPoolSize(n int) PostgresOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = int32(n) //nolint:gosec // pool sizes are small
		}
	}
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(
	ctx context.Context,
	connString string,
	opts ...PostgresOption,
) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// UpsertItems inserts or updates each item by item_id in a single batch.
// first_seen_at is preserved for items that already exist.
func (s *PostgresStore) UpsertItems(ctx context.Context, items []domain.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i := range items {
		batch.Queue(queryUpsertItem, itemArgs(&items[i]))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var n int
	for i := range items {
		tag, err := br.Exec()
		if err != nil {
			return n, fmt.Errorf("upserting item %s: %w", items[i].ID, err)
		}
		n += int(tag.RowsAffected())
	}

	if err := br.Close(); err != nil {
		return n, fmt.Errorf("closing upsert batch: %w", err)
	}
	return n, nil
}

func itemArgs(it *domain.Item) pgx.NamedArgs {
	return pgx.NamedArgs{
		"item_id":            it.ID,
		"title":              it.Title,
		"brand":              it.Brand,
		"size":               it.Size,
		"condition":          it.Condition,
		"price":              it.Price,
		"total_price":        it.TotalPrice,
		"currency":           it.Currency,
		"service_fee":        it.ServiceFee,
		"image_url":          it.ImageURL,
		"image_url_full":     it.ImageURLFull,
		"url":                it.URL,
		"favourite_count":    it.FavouriteCount,
		"view_count":         it.ViewCount,
		"is_favourite":       it.IsFavourite,
		"is_visible":         it.IsVisible,
		"is_promoted":        it.IsPromoted,
		"content_source":     it.ContentSource,
		"seller_id":          it.SellerID,
		"seller_username":    it.SellerUsername,
		"seller_profile_url": it.SellerProfileURL,
		"seller_is_business": it.SellerIsBusiness,
		"search_score":       it.SearchScore,
		"matched_queries":    it.MatchedQueries,
		"page":               it.Page,
	}
}

// GetItem returns the item with the given id, or ErrNotFound.
func (s *PostgresStore) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var it domain.Item
	err := scanItem(s.pool.QueryRow(ctx, queryGetItem, id), &it)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting item %s: %w", id, err)
	}
	return &it, nil
}

// ListItems returns items matching the query along with the total count.
func (s *PostgresStore) ListItems(
	ctx context.Context,
	opts *ItemQuery,
) ([]domain.Item, int, error) {
	if opts == nil {
		opts = &ItemQuery{}
	}
	dataSQL, countSQL, args := opts.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := scanItem(rows, &it); err != nil {
			return nil, 0, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating items: %w", err)
	}

	return items, total, nil
}

// CountItems returns the total number of stored items.
func (s *PostgresStore) CountItems(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, queryCountItems).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return count, nil
}

// InsertRun records the start of a scrape run and returns its id.
func (s *PostgresStore) InsertRun(ctx context.Context, query string) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, queryInsertRun, query).Scan(&id); err != nil {
		return "", fmt.Errorf("inserting scrape run: %w", err)
	}
	return id, nil
}

// CompleteRun stores the outcome of a scrape run.
func (s *PostgresStore) CompleteRun(ctx context.Context, id string, res *domain.RunResult) error {
	if res == nil {
		return errors.New("completing scrape run: nil result")
	}
	_, err := s.pool.Exec(ctx, queryCompleteRun,
		id, res.Saved, res.Pages, string(res.StopReason), res.Error,
	)
	if err != nil {
		return fmt.Errorf("completing scrape run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent scrape runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.pool.Query(ctx, queryListRuns, min(limit, maxLimit))
	if err != nil {
		return nil, fmt.Errorf("querying scrape runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		var (
			r      domain.RunRecord
			reason string
		)
		if err := rows.Scan(
			&r.ID, &r.Query, &r.StartedAt, &r.CompletedAt,
			&r.Saved, &r.Pages, &reason, &r.ErrorText,
		); err != nil {
			return nil, fmt.Errorf("scanning scrape run: %w", err)
		}
		r.StopReason = domain.StopReason(reason)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecoverStaleRuns marks runs that never completed and started before
// olderThan ago as errored, then prunes runs older than 30 days.
func (s *PostgresStore) RecoverStaleRuns(
	ctx context.Context,
	olderThan time.Duration,
) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	tag, err := s.pool.Exec(ctx, queryMarkStaleRunsFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("marking stale scrape runs: %w", err)
	}
	affected := int(tag.RowsAffected())

	if _, err := s.pool.Exec(ctx, queryDeleteOldRuns); err != nil {
		return affected, fmt.Errorf("deleting old scrape runs: %w", err)
	}

	return affected, nil
}

// AcquireSchedulerLock attempts to acquire a distributed lock for the given job.
// Returns true if the lock was acquired, false if another holder already owns it.
func (s *PostgresStore) AcquireSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
	ttl time.Duration,
) (bool, error) {
	expiresAt := time.Now().Add(ttl)

	var gotName string
	err := s.pool.QueryRow(ctx, queryAcquireSchedulerLock, jobName, holder, expiresAt).Scan(&gotName)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // lock held by another; conflict not replaced
	}
	if err != nil {
		return false, fmt.Errorf("acquiring scheduler lock: %w", err)
	}

	return true, nil
}

// ReleaseSchedulerLock deletes the lock row for the given job and holder.
func (s *PostgresStore) ReleaseSchedulerLock(
	ctx context.Context,
	jobName string,
	holder string,
) error {
	_, err := s.pool.Exec(ctx, queryReleaseSchedulerLock, jobName, holder)
	if err != nil {
		return fmt.Errorf("releasing scheduler lock: %w", err)
	}
	return nil
}

// scannable abstracts pgx.Row and pgx.Rows for reuse.
type scannable interface {
	Scan(dest ...any) error
}

// scanItem scans a full item row in itemColumns order.
func scanItem(row scannable, it *domain.Item) error {
	return row.Scan(
		&it.ID, &it.Title, &it.Brand, &it.Size, &it.Condition,
		&it.Price, &it.TotalPrice, &it.Currency, &it.ServiceFee,
		&it.ImageURL, &it.ImageURLFull, &it.URL,
		&it.FavouriteCount, &it.ViewCount, &it.IsFavourite, &it.IsVisible, &it.IsPromoted, &it.ContentSource,
		&it.SellerID, &it.SellerUsername, &it.SellerProfileURL, &it.SellerIsBusiness,
		&it.SearchScore, &it.MatchedQueries, &it.Page,
		&it.FirstSeenAt, &it.UpdatedAt,
	)
}
