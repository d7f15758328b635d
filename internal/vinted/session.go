package vinted

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/donaldgifford/catalog-scraper/internal/metrics"
	"github.com/donaldgifford/catalog-scraper/internal/query"
)

// Credential names harvested from the priming response.
const (
	AccessTokenCredential = "access_token_web"
	AnonIDCredential      = "anon_id"
)

// maxPrimingBody caps how much of the priming page is drained.
const maxPrimingBody = 4 << 20

// Session bundles one transport binding with the credentials used to
// authorize catalog requests. A Session is owned by a single paginator and
// replaced wholesale when rejected.
type Session struct {
	Conduit     Conduit
	Identity    string
	Credentials *CredentialStore
	AnonID      string
	AccessToken string
	CSRFToken   string
	CreatedAt   time.Time
}

// BearerToken returns the most recent access token. The server may rotate
// the token cookie on any response.
func (s *Session) BearerToken() string {
	if v, ok := s.Credentials.Get(AccessTokenCredential); ok {
		return v
	}
	return s.AccessToken
}

// Bootstrapper mints sessions by issuing a priming request to the catalog
// page and harvesting the cookies it sets.
type Bootstrapper struct {
	transport TransportProvider
	log       *slog.Logger
	newID     func() string
	nowFunc   func() time.Time
}

// BootstrapOption configures the Bootstrapper.
type BootstrapOption func(*Bootstrapper)

// WithBootstrapLogger sets the logger.
func WithBootstrapLogger(l *slog.Logger) BootstrapOption {
	return func(b *Bootstrapper) {
		b.log = l
	}
}

// WithIDFunc overrides the random identifier generator for testing.
func WithIDFunc(f func() string) BootstrapOption {
	return func(b *Bootstrapper) {
		b.newID = f
	}
}

// WithBootstrapNowFunc overrides the time function for testing.
func WithBootstrapNowFunc(f func() time.Time) BootstrapOption {
	return func(b *Bootstrapper) {
		b.nowFunc = f
	}
}

// NewBootstrapper creates a new Bootstrapper.
func NewBootstrapper(tp TransportProvider, opts ...BootstrapOption) *Bootstrapper {
	b := &Bootstrapper{
		transport: tp,
		log:       slog.Default(),
		newID:     uuid.NewString,
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bootstrap acquires a conduit bound to a fresh identity, loads the query's
// initial URL without any prior credentials, and builds a Session from the
// cookies it sets. Every call is independent. Failures are returned as
// *SessionBootstrapError and are not retried here.
func (b *Bootstrapper) Bootstrap(ctx context.Context, q *query.Query) (*Session, error) {
	sess, err := b.bootstrap(ctx, q)
	if err != nil {
		metrics.SessionBootstrapsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.SessionBootstrapsTotal.WithLabelValues("success").Inc()
	return sess, nil
}

func (b *Bootstrapper) bootstrap(ctx context.Context, q *query.Query) (*Session, error) {
	target := q.InitialURL()
	identity := b.newID()

	conduit, err := b.transport.Acquire(ctx, identity)
	if err != nil {
		return nil, &SessionBootstrapError{URL: target, Reason: "acquiring transport", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, &SessionBootstrapError{URL: target, Reason: "creating priming request", Err: err}
	}
	setDocumentHeaders(req.Header)

	resp, err := conduit.Do(req)
	if err != nil {
		return nil, &SessionBootstrapError{URL: target, Reason: "executing priming request", Err: err}
	}
	defer resp.Body.Close()

	//nolint:errcheck // draining lets the connection be reused; content is unused
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxPrimingBody))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &SessionBootstrapError{
			URL:    target,
			Status: resp.StatusCode,
			Reason: "priming request rejected",
		}
	}

	creds := NewCredentialStore()
	creds.Merge(resp)

	token, ok := creds.Get(AccessTokenCredential)
	if !ok {
		return nil, &SessionBootstrapError{
			URL:    target,
			Status: resp.StatusCode,
			Reason: fmt.Sprintf("missing %s credential (got %d cookies)", AccessTokenCredential, creds.Len()),
		}
	}

	anonID, ok := creds.Get(AnonIDCredential)
	if !ok {
		anonID = b.newID()
	}

	sess := &Session{
		Conduit:     conduit,
		Identity:    identity,
		Credentials: creds,
		AnonID:      anonID,
		AccessToken: token,
		CSRFToken:   b.newID(),
		CreatedAt:   b.nowFunc(),
	}

	b.log.Debug("session bootstrapped",
		"identity", identity,
		"credentials", creds.Len(),
		"status", resp.StatusCode,
	)

	return sess, nil
}
