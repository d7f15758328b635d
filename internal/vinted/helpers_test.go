package vinted_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/catalog-scraper/internal/query"
	"github.com/donaldgifford/catalog-scraper/internal/vinted"
	"github.com/donaldgifford/catalog-scraper/internal/vinted/mocks"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// clientProvider hands out the same client for every identity.
type clientProvider struct {
	client *http.Client
}

func (p clientProvider) Acquire(_ context.Context, _ string) (vinted.Conduit, error) {
	return p.client, nil
}

// apiCall records one request to the catalog API.
type apiCall struct {
	Page   string
	Auth   string
	Cookie string
	AnonID string
	CSRF   string
	Query  string
}

// catalogServer is a scripted catalog site. The priming page issues a new
// access token on every visit; API calls are answered by api, which
// receives the zero-based call index.
type catalogServer struct {
	*httptest.Server

	primes atomic.Int64
	mu     sync.Mutex
	calls  []apiCall
	api    func(call int, w http.ResponseWriter, r *http.Request)
}

func newCatalogServer(
	t *testing.T,
	api func(call int, w http.ResponseWriter, r *http.Request),
) *catalogServer {
	t.Helper()

	cs := &catalogServer{api: api}
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog/", func(w http.ResponseWriter, _ *http.Request) {
		n := cs.primes.Add(1)
		http.SetCookie(w, &http.Cookie{Name: vinted.AccessTokenCredential, Value: fmt.Sprintf("token-%d", n)})
		http.SetCookie(w, &http.Cookie{Name: vinted.AnonIDCredential, Value: "anon-1"})
		http.SetCookie(w, &http.Cookie{Name: "_vinted_fr_session", Value: "sess"})
		_, _ = w.Write([]byte("<html><body>catalog</body></html>"))
	})
	mux.HandleFunc("/api/v2/catalog/items", func(w http.ResponseWriter, r *http.Request) {
		cs.mu.Lock()
		idx := len(cs.calls)
		cs.calls = append(cs.calls, apiCall{
			Page:   r.URL.Query().Get("page"),
			Auth:   r.Header.Get("Authorization"),
			Cookie: r.Header.Get("Cookie"),
			AnonID: r.Header.Get("X-Anon-Id"),
			CSRF:   r.Header.Get("X-Csrf-Token"),
			Query:  r.URL.RawQuery,
		})
		cs.mu.Unlock()
		cs.api(idx, w, r)
	})

	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

func (cs *catalogServer) Calls() []apiCall {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]apiCall(nil), cs.calls...)
}

func (cs *catalogServer) Primes() int {
	return int(cs.primes.Load())
}

func (cs *catalogServer) Query(t *testing.T) *query.Query {
	t.Helper()
	q, err := query.Normalize(query.Input{}, query.WithBaseURL(cs.URL))
	require.NoError(t, err)
	return q
}

func (cs *catalogServer) Bootstrapper() *vinted.Bootstrapper {
	return vinted.NewBootstrapper(clientProvider{client: cs.Client()})
}

// itemsJSON renders a catalog page body with the given ids.
func itemsJSON(totalPages int, ids ...string) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf(
			`{"id": %q, "title": "Item %s", "price": {"amount": "10.0", "currency_code": "EUR"}}`,
			id, id,
		))
	}
	pagination := ""
	if totalPages > 0 {
		pagination = fmt.Sprintf(`, "pagination": {"current_page": 1, "total_pages": %d}`, totalPages)
	}
	return `{"items": [` + strings.Join(parts, ",") + `]` + pagination + `}`
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// recordingSleep collects backoff delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleep) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

func (s *recordingSleep) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// captureSink returns a mock sink that records every pushed batch.
func captureSink(t *testing.T) (*mocks.MockSink, *[][]domain.Item) {
	t.Helper()

	var pushed [][]domain.Item
	sink := mocks.NewMockSink(t)
	sink.EXPECT().
		Push(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, items []domain.Item) error {
			pushed = append(pushed, items)
			return nil
		}).
		Maybe()
	return sink, &pushed
}

func pushedIDs(pushed [][]domain.Item) []string {
	var out []string
	for _, batch := range pushed {
		for i := range batch {
			out = append(out, batch[i].ID)
		}
	}
	return out
}
