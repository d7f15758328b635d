package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/donaldgifford/catalog-scraper/internal/query"
	"github.com/donaldgifford/catalog-scraper/internal/sink"
	"github.com/donaldgifford/catalog-scraper/internal/transport"
	"github.com/donaldgifford/catalog-scraper/internal/vinted"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCatalog(t *testing.T) *catalog {
	t.Helper()
	fixture, err := loadFixture(filepath.Join("testdata", "catalog_items.json"))
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	return newCatalog(testLogger(), fixture)
}

// prime fetches a catalog page and returns the issued session token.
func prime(t *testing.T, h http.Handler) string {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/2050-clothing", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("prime status=%d, want %d", w.Code, http.StatusOK)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == tokenCookie {
			return c.Value
		}
	}
	t.Fatal("prime response carried no access token cookie")
	return ""
}

func getItems(t *testing.T, h http.Handler, token, rawQuery string) (int, catalogResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v2/catalog/items?"+rawQuery, http.NoBody)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp catalogResponse
	if w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return w.Code, resp
}

func TestLoadFixture(t *testing.T) {
	c := newTestCatalog(t)
	if len(c.items) != 20 {
		t.Fatalf("items=%d, want 20", len(c.items))
	}
	if c.items[0].title == "" || c.items[0].price == 0 {
		t.Errorf("first item not indexed: %+v", c.items[0])
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := loadFixture(filepath.Join("testdata", "nope.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestPrimeHandler_SetsSessionCookies(t *testing.T) {
	c := newTestCatalog(t)
	w := httptest.NewRecorder()
	c.routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", w.Code, http.StatusOK)
	}

	got := map[string]string{}
	for _, ck := range w.Result().Cookies() {
		got[ck.Name] = ck.Value
	}
	for _, name := range []string{tokenCookie, anonCookie, sessionCookie} {
		if got[name] == "" {
			t.Errorf("missing cookie %s", name)
		}
	}
	if len(c.tokens) != 1 {
		t.Errorf("tokens=%d, want 1", len(c.tokens))
	}
}

func TestItemsHandler_Unauthorized(t *testing.T) {
	h := newTestCatalog(t).routes()

	tests := []struct {
		name  string
		token string
	}{
		{name: "no token"},
		{name: "unknown token", token: "forged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := getItems(t, h, tt.token, "page=1")
			if code != http.StatusUnauthorized {
				t.Errorf("status=%d, want %d", code, http.StatusUnauthorized)
			}
		})
	}
}

func TestItemsHandler_Paging(t *testing.T) {
	h := newTestCatalog(t).routes()
	token := prime(t, h)

	tests := []struct {
		name      string
		query     string
		wantItems int
		wantPage  int
		wantPages int
		wantTotal int
	}{
		{name: "first page", query: "page=1&per_page=8", wantItems: 8, wantPage: 1, wantPages: 3, wantTotal: 20},
		{name: "last partial page", query: "page=3&per_page=8", wantItems: 4, wantPage: 3, wantPages: 3, wantTotal: 20},
		{name: "past the end", query: "page=9&per_page=8", wantItems: 0, wantPage: 9, wantPages: 3, wantTotal: 20},
		{name: "defaults", query: "", wantItems: 20, wantPage: 1, wantPages: 1, wantTotal: 20},
		{name: "per page capped", query: "per_page=500", wantItems: 20, wantPage: 1, wantPages: 1, wantTotal: 20},
		{name: "search text", query: "search_text=Denim", wantItems: 4, wantPage: 1, wantPages: 1, wantTotal: 4},
		{name: "price range", query: "price_from=30&price_to=60", wantItems: 8, wantPage: 1, wantPages: 1, wantTotal: 8},
		{name: "no match", query: "search_text=tuxedo", wantItems: 0, wantPage: 1, wantPages: 0, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := getItems(t, h, token, tt.query)
			if code != http.StatusOK {
				t.Fatalf("status=%d, want %d", code, http.StatusOK)
			}
			if resp.Items == nil {
				t.Fatal("items decoded as null, want array")
			}
			if len(resp.Items) != tt.wantItems {
				t.Errorf("items=%d, want %d", len(resp.Items), tt.wantItems)
			}
			if resp.Pagination.CurrentPage != tt.wantPage {
				t.Errorf("current_page=%d, want %d", resp.Pagination.CurrentPage, tt.wantPage)
			}
			if resp.Pagination.TotalPages != tt.wantPages {
				t.Errorf("total_pages=%d, want %d", resp.Pagination.TotalPages, tt.wantPages)
			}
			if resp.Pagination.TotalEntries != tt.wantTotal {
				t.Errorf("total_entries=%d, want %d", resp.Pagination.TotalEntries, tt.wantTotal)
			}
		})
	}
}

func TestItemsHandler_TokenRevoked(t *testing.T) {
	c := newTestCatalog(t)
	c.tokenUses = 2
	h := c.routes()
	token := prime(t, h)

	for i := range 2 {
		if code, _ := getItems(t, h, token, "page=1"); code != http.StatusOK {
			t.Fatalf("call %d status=%d, want %d", i+1, code, http.StatusOK)
		}
	}
	if code, _ := getItems(t, h, token, "page=1"); code != http.StatusUnauthorized {
		t.Errorf("status=%d, want %d", code, http.StatusUnauthorized)
	}
}

func TestItemsHandler_Throttle(t *testing.T) {
	c := newTestCatalog(t)
	c.throttleEvery = 3
	h := c.routes()
	token := prime(t, h)

	var codes []int
	for range 6 {
		code, _ := getItems(t, h, token, "page=1")
		codes = append(codes, code)
	}

	want := []int{200, 200, 429, 200, 200, 429}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("call %d status=%d, want %d", i+1, codes[i], want[i])
		}
	}
}

// TestScrapeAgainstMock drives the real bootstrap and pagination code
// against the mock, including a forced session refresh mid-run.
func TestScrapeAgainstMock(t *testing.T) {
	c := newTestCatalog(t)
	c.tokenUses = 2
	srv := httptest.NewServer(c.routes())
	defer srv.Close()

	q, err := query.Normalize(query.Input{}, query.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("normalizing query: %v", err)
	}

	tp, err := transport.New(nil, transport.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("building transport: %v", err)
	}

	p := vinted.NewPaginator(
		vinted.NewBootstrapper(tp, vinted.WithBootstrapLogger(testLogger())),
		vinted.WithPageSize(5),
		vinted.WithPacing(0, 1),
		vinted.WithSleepFunc(func(context.Context, time.Duration) error { return nil }),
		vinted.WithPaginatorLogger(testLogger()),
	)

	var buf bytes.Buffer
	out := sink.NewJSONL(&buf)

	res, err := p.Run(context.Background(), q, vinted.Limits{ResultsWanted: 100, MaxPages: 10}, out)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if res.Saved != 20 {
		t.Errorf("saved=%d, want 20", res.Saved)
	}
	if res.Pages != 4 {
		t.Errorf("pages=%d, want 4", res.Pages)
	}
	if res.StopReason != domain.StopPaginationLimit {
		t.Errorf("stop_reason=%s, want %s", res.StopReason, domain.StopPaginationLimit)
	}
	if res.Bootstraps != 2 {
		t.Errorf("bootstraps=%d, want 2", res.Bootstraps)
	}
	if out.Count() != 20 {
		t.Errorf("jsonl lines=%d, want 20", out.Count())
	}
	if !bytes.Contains(buf.Bytes(), []byte(srv.URL+"/items/")) {
		t.Error("item URLs not resolved against the mock host")
	}
}
