package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestItemQuery_ToSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		query         ItemQuery
		wantCountSQL  string
		wantArgs      []any
		wantDataHas   []string // substrings that must appear in dataSQL
		wantDataNotIn []string // substrings that must NOT appear
	}{
		{
			name:  "empty query uses defaults",
			query: ItemQuery{},
			wantDataHas: []string{
				"FROM items",
				"ORDER BY first_seen_at DESC, item_id",
				"LIMIT 50",
				"OFFSET 0",
			},
			wantDataNotIn: []string{"WHERE"},
			wantCountSQL:  "SELECT COUNT(*) FROM items",
		},
		{
			name:         "brand filter",
			query:        ItemQuery{Brand: ptr("Levi's")},
			wantDataHas:  []string{"WHERE brand = $1"},
			wantCountSQL: "SELECT COUNT(*) FROM items WHERE brand = $1",
			wantArgs:     []any{"Levi's"},
		},
		{
			name:         "search uses ilike",
			query:        ItemQuery{Search: ptr("denim")},
			wantDataHas:  []string{"WHERE title ILIKE '%' || $1 || '%'"},
			wantCountSQL: "SELECT COUNT(*) FROM items WHERE title ILIKE '%' || $1 || '%'",
			wantArgs:     []any{"denim"},
		},
		{
			name: "price range with currency",
			query: ItemQuery{
				Currency: ptr("USD"),
				MinPrice: ptr(10.0),
				MaxPrice: ptr(50.5),
			},
			wantDataHas: []string{
				"WHERE currency = $1 AND price >= $2 AND price <= $3",
			},
			wantCountSQL: "SELECT COUNT(*) FROM items WHERE currency = $1 AND price >= $2 AND price <= $3",
			wantArgs:     []any{"USD", 10.0, 50.5},
		},
		{
			name: "all filters in order",
			query: ItemQuery{
				Search:   ptr("coat"),
				Brand:    ptr("Zara"),
				Currency: ptr("EUR"),
				SellerID: ptr("42"),
				MinPrice: ptr(1.0),
				MaxPrice: ptr(2.0),
			},
			wantDataHas: []string{
				"title ILIKE '%' || $1 || '%' AND brand = $2 AND currency = $3 AND seller_id = $4 AND price >= $5 AND price <= $6",
			},
			wantArgs: []any{"coat", "Zara", "EUR", "42", 1.0, 2.0},
		},
		{
			name:        "order by price",
			query:       ItemQuery{OrderBy: "price"},
			wantDataHas: []string{"ORDER BY price ASC"},
		},
		{
			name:        "order by favourites",
			query:       ItemQuery{OrderBy: "favourites"},
			wantDataHas: []string{"ORDER BY favourite_count DESC"},
		},
		{
			name:          "unknown order by falls back to default",
			query:         ItemQuery{OrderBy: "1; DROP TABLE items"},
			wantDataHas:   []string{"ORDER BY first_seen_at DESC"},
			wantDataNotIn: []string{"DROP"},
		},
		{
			name:        "limit capped",
			query:       ItemQuery{Limit: 10_000, Offset: 20},
			wantDataHas: []string{"LIMIT 500", "OFFSET 20"},
		},
		{
			name:        "negative offset clamped",
			query:       ItemQuery{Limit: 5, Offset: -3},
			wantDataHas: []string{"LIMIT 5", "OFFSET 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dataSQL, countSQL, args := tt.query.ToSQL()

			for _, s := range tt.wantDataHas {
				assert.Contains(t, dataSQL, s)
			}
			for _, s := range tt.wantDataNotIn {
				assert.NotContains(t, dataSQL, s)
			}
			if tt.wantCountSQL != "" {
				assert.Equal(t, tt.wantCountSQL, countSQL)
			}
			if tt.wantArgs != nil {
				require.Len(t, args, len(tt.wantArgs))
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestMigrationVersions(t *testing.T) {
	t.Parallel()

	versions, err := migrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, "001_init.sql", versions[0])
	assert.IsNonDecreasing(t, versions)
}
