// Package main implements a mock catalog site for local development.
// It hands out anonymous session cookies on catalog pages and serves the
// paged item API from a JSON fixture, so the scraper can run end to end
// without touching the real marketplace.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	tokenCookie   = "access_token_web"
	anonCookie    = "anon_id"
	sessionCookie = "_vinted_fr_session"

	defaultPerPage = 24
	maxPerPage     = 96
)

type catalogFixture struct {
	Items []json.RawMessage `json:"items"`
}

type pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalEntries int `json:"total_entries"`
	PerPage      int `json:"per_page"`
}

type catalogResponse struct {
	Items      []json.RawMessage `json:"items"`
	Pagination pagination        `json:"pagination"`
}

type fixtureItem struct {
	Title string `json:"title"`
	Price struct {
		Amount string `json:"amount"`
	} `json:"price"`
}

type indexedItem struct {
	raw   json.RawMessage
	title string
	price float64
}

// catalog holds the fixture and the tokens issued to primed sessions.
type catalog struct {
	log   *slog.Logger
	items []indexedItem

	// tokenUses revokes a token after this many API calls; 0 never revokes.
	tokenUses int
	// throttleEvery answers every Nth API call with 429; 0 never throttles.
	throttleEvery int

	mu     sync.Mutex
	tokens map[string]int
	calls  int
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/catalog_items.json", "path to catalog items fixture")
	tokenUses := flag.Int("token-uses", 0, "revoke a session token after this many API calls (0 = never)")
	throttleEvery := flag.Int("throttle-every", 0, "answer every Nth API call with 429 (0 = never)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "items", len(fixture.Items))

	c := newCatalog(logger, fixture)
	c.tokenUses = *tokenUses
	c.throttleEvery = *throttleEvery

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock catalog server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, c.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) (*catalogFixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f catalogFixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

func newCatalog(logger *slog.Logger, fixture *catalogFixture) *catalog {
	items := make([]indexedItem, 0, len(fixture.Items))
	for _, raw := range fixture.Items {
		var fi fixtureItem
		//nolint:errcheck,gosec // fixture data is trusted; indexing is best-effort
		json.Unmarshal(raw, &fi)
		price, _ := strconv.ParseFloat(fi.Price.Amount, 64) //nolint:errcheck // missing price indexes as zero
		items = append(items, indexedItem{raw: raw, title: strings.ToLower(fi.Title), price: price})
	}
	return &catalog{
		log:    logger,
		items:  items,
		tokens: make(map[string]int),
	}
}

func (c *catalog) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", c.primeHandler)
	mux.HandleFunc("GET /catalog", c.primeHandler)
	mux.HandleFunc("GET /catalog/", c.primeHandler)
	mux.HandleFunc("GET /api/v2/catalog/items", c.itemsHandler)
	return mux
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

// primeHandler plays the HTML catalog page: it issues a fresh anonymous
// session through cookies and returns a stub document.
func (c *catalog) primeHandler(w http.ResponseWriter, _ *http.Request) {
	token := "mock-" + uuid.NewString()

	c.mu.Lock()
	c.tokens[token] = 0
	c.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: tokenCookie, Value: token, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: anonCookie, Value: uuid.NewString(), Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: uuid.NewString(), Path: "/", HttpOnly: true})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	w.Write([]byte("<!doctype html><html><body>mock catalog</body></html>"))
	c.log.Info("primed session")
}

func (c *catalog) itemsHandler(w http.ResponseWriter, r *http.Request) {
	if c.throttled() {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"code": 106, "message": "too many requests"})
		return
	}

	if !c.authorize(r.Header.Get("Authorization")) {
		c.log.Warn("rejected request without a valid session token")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 100, "message": "invalid_authentication_token"})
		return
	}

	q := r.URL.Query()
	search := strings.ToLower(strings.TrimSpace(q.Get("search_text")))
	page := positiveInt(q.Get("page"), 1)
	perPage := min(positiveInt(q.Get("per_page"), defaultPerPage), maxPerPage)
	minPrice, hasMin := parsePrice(q.Get("price_from"))
	maxPrice, hasMax := parsePrice(q.Get("price_to"))

	var matched []json.RawMessage
	for _, item := range c.items {
		if search != "" && !strings.Contains(item.title, search) {
			continue
		}
		if hasMin && item.price < minPrice {
			continue
		}
		if hasMax && item.price > maxPrice {
			continue
		}
		matched = append(matched, item.raw)
	}

	total := len(matched)
	totalPages := (total + perPage - 1) / perPage

	offset := (page - 1) * perPage
	if offset >= total {
		matched = nil
	} else {
		matched = matched[offset:min(offset+perPage, total)]
	}

	resp := catalogResponse{
		Items: matched,
		Pagination: pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalEntries: total,
			PerPage:      perPage,
		},
	}
	if resp.Items == nil {
		resp.Items = []json.RawMessage{}
	}

	writeJSON(w, http.StatusOK, resp)
	c.log.Info("catalog page", "search", search, "page", page, "per_page", perPage, "matched", total, "returned", len(resp.Items))
}

func (c *catalog) throttled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.throttleEvery > 0 && c.calls%c.throttleEvery == 0
}

// authorize checks the bearer token and counts the call against it.
// A token past its allowance is forgotten, forcing the client to prime
// a new session.
func (c *catalog) authorize(header string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	uses, known := c.tokens[token]
	if !known {
		return false
	}
	if c.tokenUses > 0 && uses >= c.tokenUses {
		delete(c.tokens, token)
		return false
	}
	c.tokens[token] = uses + 1
	return true
}

func positiveInt(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func parsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}
