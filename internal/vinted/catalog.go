package vinted

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/donaldgifford/catalog-scraper/internal/query"
)

const (
	catalogItemsPath = "/api/v2/catalog/items"
	defaultOrder     = "newest_first"

	// DefaultPageSize is the number of items requested per catalog page.
	DefaultPageSize = 24

	maxCatalogBody = 16 << 20
)

// pageResult is the parsed form of one successful catalog page.
type pageResult struct {
	Items      []RawItem
	TotalPages *int
	Malformed  int
}

// pageURL returns the catalog API URL for page n of q.
func pageURL(q *query.Query, page, pageSize int) string {
	v := q.Values()
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(pageSize))
	if v.Get(query.ParamOrder) == "" {
		v.Set(query.ParamOrder, defaultOrder)
	}
	return q.BaseURL() + catalogItemsPath + "?" + v.Encode()
}

// newPageRequest builds an authorized catalog request for page n using the
// session's current credentials.
func newPageRequest(
	ctx context.Context,
	q *query.Query,
	sess *Session,
	page, pageSize int,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL(q, page, pageSize), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating page %d request: %w", page, err)
	}

	setAPIHeaders(req.Header)
	if cookie := sess.Credentials.Header(); cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	req.Header.Set("Authorization", "Bearer "+sess.BearerToken())
	req.Header.Set("X-Anon-Id", sess.AnonID)
	req.Header.Set("X-Csrf-Token", sess.CSRFToken)
	req.Header.Set("Referer", q.InitialURL())

	return req, nil
}

// parsePage decodes a 200 body. A body that is not a JSON object is a
// ParseError; individual records that fail to decode are skipped and
// counted. A missing items array decodes as an empty page.
func parsePage(page int, body []byte) (*pageResult, error) {
	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Page: page, Err: err}
	}

	res := &pageResult{Items: make([]RawItem, 0, len(resp.Items))}
	for _, msg := range resp.Items {
		var raw RawItem
		if err := json.Unmarshal(msg, &raw); err != nil {
			res.Malformed++
			continue
		}
		res.Items = append(res.Items, raw)
	}

	if resp.Pagination != nil && resp.Pagination.TotalPages > 0 {
		total := resp.Pagination.TotalPages
		res.TotalPages = &total
	}

	return res, nil
}
