// Package vinted provides a catalog API client for Vinted-style marketplaces:
// cookie/token session bootstrap, a retrying page fetch loop, and item
// normalization. External collaborators (network egress and record storage)
// are abstracted behind interfaces for testability.
package vinted

import (
	"context"
	"net/http"

	"github.com/donaldgifford/catalog-scraper/internal/query"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// Conduit issues HTTP requests over one egress path. *http.Client satisfies it.
type Conduit interface {
	Do(req *http.Request) (*http.Response, error)
}

// TransportProvider hands out request-capable conduits, optionally bound to
// a rotating identity (for example a sticky proxy session).
type TransportProvider interface {
	Acquire(ctx context.Context, identity string) (Conduit, error)
}

// Sink durably stores emitted items.
type Sink interface {
	Push(ctx context.Context, items []domain.Item) error
}

// SessionMinter creates fresh authenticated sessions.
type SessionMinter interface {
	Bootstrap(ctx context.Context, q *query.Query) (*Session, error)
}
