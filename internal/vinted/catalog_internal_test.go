package vinted

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/catalog-scraper/internal/query"
)

func TestPageURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        query.Input
		page      int
		wantPath  string
		wantQuery url.Values
	}{
		{
			name:     "default order and pagination",
			in:       query.Input{Keyword: "jacket"},
			page:     3,
			wantPath: "/api/v2/catalog/items",
			wantQuery: url.Values{
				"catalog_ids": {"1904"},
				"search_text": {"jacket"},
				"page":        {"3"},
				"per_page":    {"24"},
				"order":       {"newest_first"},
			},
		},
		{
			name:     "explicit order kept and start url pagination dropped",
			in:       query.Input{StartURL: "https://www.vinted.com/catalog?catalog[]=5&order=price_low_to_high&page=9"},
			page:     1,
			wantPath: "/api/v2/catalog/items",
			wantQuery: url.Values{
				"catalog_ids": {"5"},
				"page":        {"1"},
				"per_page":    {"24"},
				"order":       {"price_low_to_high"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := query.Normalize(tt.in)
			require.NoError(t, err)

			u, err := url.Parse(pageURL(q, tt.page, DefaultPageSize))
			require.NoError(t, err)
			assert.Equal(t, "www.vinted.com", u.Host)
			assert.Equal(t, tt.wantPath, u.Path)
			assert.Equal(t, tt.wantQuery, u.Query())
		})
	}
}

func TestNewPageRequest_Headers(t *testing.T) {
	t.Parallel()

	q, err := query.Normalize(query.Input{Category: "men"})
	require.NoError(t, err)

	creds := NewCredentialStore()
	creds.Set(AccessTokenCredential, "tok")
	creds.Set("anon_id", "anon")
	sess := &Session{Credentials: creds, AnonID: "anon", AccessToken: "stale", CSRFToken: "csrf"}

	req, err := newPageRequest(context.Background(), q, sess, 2, 10)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
	assert.Equal(t, "access_token_web=tok; anon_id=anon", req.Header.Get("Cookie"))
	assert.Equal(t, "anon", req.Header.Get("X-Anon-Id"))
	assert.Equal(t, "csrf", req.Header.Get("X-Csrf-Token"))
	assert.Equal(t, "https://www.vinted.com/catalog/5-men", req.Header.Get("Referer"))
	assert.Equal(t, "cors", req.Header.Get("Sec-Fetch-Mode"))
	assert.Contains(t, req.Header.Get("Accept"), "application/json")
	assert.Equal(t, "10", req.URL.Query().Get("per_page"))
}

func TestParsePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		body          string
		wantErr       bool
		wantItems     int
		wantMalformed int
		wantTotal     int
	}{
		{
			name:      "items with pagination",
			body:      `{"items":[{"id":1},{"id":2}],"pagination":{"current_page":1,"total_pages":7}}`,
			wantItems: 2,
			wantTotal: 7,
		},
		{
			name:          "malformed record skipped",
			body:          `{"items":[{"id":1},"oops",{"id":{"nested":true},"title":5}]}`,
			wantItems:     1,
			wantMalformed: 2,
		},
		{
			name:      "missing items",
			body:      `{"pagination":{"total_pages":0}}`,
			wantItems: 0,
		},
		{
			name:    "truncated",
			body:    `{"items":[`,
			wantErr: true,
		},
		{
			name:    "html challenge page",
			body:    `<html><body>Checking your browser</body></html>`,
			wantErr: true,
		},
		{
			name:    "array root",
			body:    `[1,2,3]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pr, err := parsePage(4, []byte(tt.body))
			if tt.wantErr {
				var parseErr *ParseError
				require.ErrorAs(t, err, &parseErr)
				assert.Equal(t, 4, parseErr.Page)
				return
			}

			require.NoError(t, err)
			assert.Len(t, pr.Items, tt.wantItems)
			assert.Equal(t, tt.wantMalformed, pr.Malformed)
			if tt.wantTotal > 0 {
				require.NotNil(t, pr.TotalPages)
				assert.Equal(t, tt.wantTotal, *pr.TotalPages)
			} else {
				assert.Nil(t, pr.TotalPages)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "line one line two", excerpt([]byte("line one\nline two")))
	assert.Len(t, excerpt([]byte(strings.Repeat("x", 500))), maxExcerptBytes)
	assert.Empty(t, excerpt(nil))
}
