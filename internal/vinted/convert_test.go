package vinted_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/catalog-scraper/internal/vinted"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

const testBase = "https://www.vinted.com"

func decodeRaw(t *testing.T, body string) vinted.RawItem {
	t.Helper()
	var raw vinted.RawItem
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestToItem(t *testing.T) {
	t.Parallel()

	score := 0.87

	tests := []struct {
		name   string
		raw    string
		want   domain.Item
		wantOK bool
	}{
		{
			name: "full record",
			raw: `{
				"id": 4411223344,
				"title": " Denim jacket ",
				"brand_title": "Levi's",
				"size_title": "M",
				"status": "Very good",
				"price": {"amount": "25.0", "currency_code": "EUR"},
				"service_fee": {"amount": "1.95", "currency_code": "EUR"},
				"total_item_price": {"amount": "26.95", "currency_code": "EUR"},
				"photo": {"url": "https://img/1.jpg", "full_size_url": "https://img/1-full.jpg"},
				"url": "https://www.vinted.com/items/4411223344-denim-jacket",
				"favourite_count": 12,
				"view_count": "340",
				"is_favourite": false,
				"is_visible": true,
				"promoted": true,
				"content_source": "search",
				"user": {"id": 991, "login": "seller1", "profile_url": "https://www.vinted.com/member/991", "business": true},
				"search_tracking_params": {"score": 0.87, "matched_queries": ["denim", "jacket"]}
			}`,
			want: domain.Item{
				ID:               "4411223344",
				Title:            "Denim jacket",
				Brand:            "Levi's",
				Size:             "M",
				Condition:        "Very good",
				Price:            25,
				TotalPrice:       26.95,
				Currency:         "EUR",
				ServiceFee:       1.95,
				ImageURL:         "https://img/1.jpg",
				ImageURLFull:     "https://img/1-full.jpg",
				URL:              "https://www.vinted.com/items/4411223344-denim-jacket",
				FavouriteCount:   12,
				ViewCount:        340,
				IsVisible:        true,
				IsPromoted:       true,
				ContentSource:    "search",
				SellerID:         "991",
				SellerUsername:   "seller1",
				SellerProfileURL: "https://www.vinted.com/member/991",
				SellerIsBusiness: true,
				SearchScore:      &score,
				MatchedQueries:   []string{"denim", "jacket"},
			},
			wantOK: true,
		},
		{
			name: "composite line fallbacks",
			raw: `{
				"id": "77",
				"title": "Boots",
				"brand": {"id": 5, "title": "Dr. Martens"},
				"item_box": {"first_line": "Dr. Martens", "second_line": "42 · Good · Leather"},
				"price": "80",
				"currency": "GBP",
				"photos": [{"url": "https://img/a.jpg"}],
				"path": "/items/77-boots"
			}`,
			want: domain.Item{
				ID:           "77",
				Title:        "Boots",
				Brand:        "Dr. Martens",
				Size:         "42",
				Condition:    "Good · Leather",
				Price:        80,
				TotalPrice:   80,
				Currency:     "GBP",
				ImageURL:     "https://img/a.jpg",
				ImageURLFull: "https://img/a.jpg",
				URL:          testBase + "/items/77-boots",
				IsVisible:    true,
			},
			wantOK: true,
		},
		{
			name: "subtitle fallback and sentinels",
			raw: `{
				"id": 5,
				"subtitle": "",
				"price_numeric": "12.5",
				"service_fee": 0.7
			}`,
			want: domain.Item{
				ID:         "5",
				Size:       "Not specified",
				Price:      12.5,
				ServiceFee: 0.7,
				TotalPrice: 13.2,
				Currency:   "USD",
				URL:        testBase + "/items/5",
				IsVisible:  true,
			},
			wantOK: true,
		},
		{
			name: "hidden item",
			raw:  `{"id": 9, "is_visible": 0, "size": "XL", "subtitle": "XL · New with tags"}`,
			want: domain.Item{
				ID:        "9",
				Size:      "XL",
				Condition: "New with tags",
				Currency:  "USD",
				URL:       testBase + "/items/9",
				IsVisible: false,
			},
			wantOK: true,
		},
		{
			name:   "missing id",
			raw:    `{"title": "No id"}`,
			wantOK: false,
		},
		{
			name:   "zero id",
			raw:    `{"id": 0, "title": "Zero"}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := decodeRaw(t, tt.raw)
			got, ok := vinted.ToItem(&raw, testBase)

			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.InDelta(t, tt.want.TotalPrice, got.TotalPrice, 1e-9)
			got.TotalPrice = tt.want.TotalPrice
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToItems_DropsRecordsWithoutID(t *testing.T) {
	t.Parallel()

	raws := []vinted.RawItem{
		decodeRaw(t, `{"id": 1, "title": "a"}`),
		decodeRaw(t, `{"title": "b"}`),
		decodeRaw(t, `{"id": "3", "title": "c"}`),
	}

	items := vinted.ToItems(raws, testBase)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].ID)
	assert.Equal(t, "3", items[1].ID)
}

func TestRawItem_FlexibleFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		wantFavs  int
		wantFav   bool
		wantBrand string
	}{
		{
			name:      "numeric strings",
			raw:       `{"id": 1, "favourite_count": "7", "is_favourite": "true", "brand": "Zara"}`,
			wantFavs:  7,
			wantFav:   true,
			wantBrand: "Zara",
		},
		{
			name:     "garbage counters are zero",
			raw:      `{"id": 1, "favourite_count": "lots", "is_favourite": null, "brand": ["x"]}`,
			wantFavs: 0,
		},
		{
			name:     "numeric booleans",
			raw:      `{"id": 1, "favourite_count": 3.0, "is_favourite": 1}`,
			wantFavs: 3,
			wantFav:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			raw := decodeRaw(t, tt.raw)
			item, ok := vinted.ToItem(&raw, testBase)
			require.True(t, ok)
			assert.Equal(t, tt.wantFavs, item.FavouriteCount)
			assert.Equal(t, tt.wantFav, item.IsFavourite)
			assert.Equal(t, tt.wantBrand, item.Brand)
		})
	}
}
