package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/catalog-scraper/internal/store"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// ItemStore defines the store methods required by the items handler.
type ItemStore interface {
	ListItems(ctx context.Context, q *store.ItemQuery) ([]domain.Item, int, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
}

// ItemsHandler handles stored item queries.
type ItemsHandler struct {
	store ItemStore
}

// NewItemsHandler creates a new ItemsHandler.
func NewItemsHandler(s ItemStore) *ItemsHandler {
	return &ItemsHandler{store: s}
}

// ListItemsInput is the input for listing items with optional filters.
type ListItemsInput struct {
	Search   string  `query:"search"    doc:"Case-insensitive title substring"`
	Brand    string  `query:"brand"     doc:"Filter by brand"`
	Currency string  `query:"currency"  doc:"Filter by currency code"`
	SellerID string  `query:"seller_id" doc:"Filter by seller ID"`
	MinPrice float64 `query:"min_price" doc:"Minimum item price"                      minimum:"0"`
	MaxPrice float64 `query:"max_price" doc:"Maximum item price"                      minimum:"0"`
	Limit    int     `query:"limit"     doc:"Number of results (default 50)"          minimum:"1" maximum:"500"`
	Offset   int     `query:"offset"    doc:"Pagination offset"                       minimum:"0"`
	OrderBy  string  `query:"order_by"  doc:"Sort field" enum:"price,favourites,first_seen_at,"`
}

// ListItemsOutput is the response for listing items.
type ListItemsOutput struct {
	Body struct {
		Items  []domain.Item `json:"items"`
		Total  int           `json:"total"`
		Limit  int           `json:"limit"`
		Offset int           `json:"offset"`
	}
}

// GetItemInput is the input for getting a single item.
type GetItemInput struct {
	ID string `path:"id" doc:"Catalog item ID"`
}

// GetItemOutput is the response for getting a single item.
type GetItemOutput struct {
	Body domain.Item
}

// ListItems returns stored items with optional filters and pagination.
func (h *ItemsHandler) ListItems(
	ctx context.Context,
	input *ListItemsInput,
) (*ListItemsOutput, error) {
	q := &store.ItemQuery{
		Limit:   input.Limit,
		Offset:  input.Offset,
		OrderBy: input.OrderBy,
	}

	if input.Search != "" {
		q.Search = &input.Search
	}
	if input.Brand != "" {
		q.Brand = &input.Brand
	}
	if input.Currency != "" {
		q.Currency = &input.Currency
	}
	if input.SellerID != "" {
		q.SellerID = &input.SellerID
	}
	if input.MinPrice != 0 {
		q.MinPrice = &input.MinPrice
	}
	if input.MaxPrice != 0 {
		q.MaxPrice = &input.MaxPrice
	}

	items, total, err := h.store.ListItems(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("item query failed: " + err.Error())
	}

	if items == nil {
		items = []domain.Item{}
	}

	resp := &ListItemsOutput{}
	resp.Body.Items = items
	resp.Body.Total = total
	resp.Body.Limit = q.Limit
	resp.Body.Offset = q.Offset

	return resp, nil
}

// GetItem returns a single item by ID.
func (h *ItemsHandler) GetItem(
	ctx context.Context,
	input *GetItemInput,
) (*GetItemOutput, error) {
	item, err := h.store.GetItem(ctx, input.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, huma.Error404NotFound("item not found")
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("fetching item failed: " + err.Error())
	}

	return &GetItemOutput{Body: *item}, nil
}

// RegisterItemRoutes registers item endpoints with the Huma API.
func RegisterItemRoutes(api huma.API, h *ItemsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-items",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List items",
		Description: "Returns stored catalog items with optional filters for title, brand, price range, and pagination.",
		Tags:        []string{"items"},
		Errors:      []int{http.StatusInternalServerError},
	}, h.ListItems)

	huma.Register(api, huma.Operation{
		OperationID: "get-item",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}",
		Summary:     "Get an item by ID",
		Description: "Returns a single stored catalog item.",
		Tags:        []string{"items"},
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, h.GetItem)
}
