package client

import (
	"context"
	"net/url"
	"strconv"

	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// ItemsResponse wraps a paginated items response.
type ItemsResponse struct {
	Items  []domain.Item `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListItemsParams defines query parameters for item queries. Zero values
// are omitted.
type ListItemsParams struct {
	Search   string
	Brand    string
	Currency string
	SellerID string
	MinPrice float64
	MaxPrice float64
	Limit    int
	Offset   int
	OrderBy  string
}

func (p *ListItemsParams) values() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", p.Search)
	set("brand", p.Brand)
	set("currency", p.Currency)
	set("seller_id", p.SellerID)
	set("order_by", p.OrderBy)
	if p.MinPrice > 0 {
		q.Set("min_price", strconv.FormatFloat(p.MinPrice, 'f', -1, 64))
	}
	if p.MaxPrice > 0 {
		q.Set("max_price", strconv.FormatFloat(p.MaxPrice, 'f', -1, 64))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	return q
}

// ListItems returns stored items matching params. A nil params lists the
// first page with server defaults.
func (c *Client) ListItems(ctx context.Context, params *ListItemsParams) (*ItemsResponse, error) {
	path := "/api/v1/items"
	if params != nil {
		if q := params.values(); len(q) > 0 {
			path += "?" + q.Encode()
		}
	}

	var resp ItemsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetItem returns a single stored item by ID.
func (c *Client) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	if err := c.get(ctx, "/api/v1/items/"+url.PathEscape(id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}
