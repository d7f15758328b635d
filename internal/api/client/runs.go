package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/donaldgifford/catalog-scraper/internal/engine"
	"github.com/donaldgifford/catalog-scraper/internal/query"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// TriggerRun starts a scrape on the server and waits for its summary.
func (c *Client) TriggerRun(ctx context.Context, in *query.Input) (*domain.RunResult, error) {
	var res domain.RunResult
	if err := c.post(ctx, "/api/v1/runs", in, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListRuns returns recorded runs, newest first. limit <= 0 uses the
// server default.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	path := "/api/v1/runs"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	var runs []domain.RunRecord
	if err := c.get(ctx, path, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// ListSearches returns the server's scheduled searches.
func (c *Client) ListSearches(ctx context.Context) ([]engine.SearchStatus, error) {
	var searches []engine.SearchStatus
	if err := c.get(ctx, "/api/v1/searches", &searches); err != nil {
		return nil, err
	}
	return searches, nil
}
