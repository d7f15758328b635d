// Package transport hands out HTTP clients for catalog requests, optionally
// routed through a pool of proxies with sticky per-identity selection.
package transport

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/proxy"

	"github.com/donaldgifford/catalog-scraper/internal/vinted"
)

// DefaultTimeout bounds every request issued through a provider.
const DefaultTimeout = 30 * time.Second

// SessionPlaceholder in a proxy username is replaced with the identity
// requesting the conduit, pinning the upstream exit to that identity.
const SessionPlaceholder = "{session}"

// ErrNoProxies is returned when proxying is required but the pool is empty.
var ErrNoProxies = errors.New("no proxies configured")

// Provider implements vinted.TransportProvider.
type Provider struct {
	proxies  []*url.URL
	timeout  time.Duration
	required bool
	log      *slog.Logger
	direct   *http.Client
}

// Option configures the Provider.
type Option func(*Provider)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithProxyRequired makes Acquire fail instead of falling back to a direct
// connection when no proxies are configured.
func WithProxyRequired(required bool) Option {
	return func(p *Provider) {
		p.required = required
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) {
		p.log = l
	}
}

// New validates proxyURLs and creates a Provider. Supported schemes are
// http, https, socks5 and socks5h.
func New(proxyURLs []string, opts ...Option) (*Provider, error) {
	p := &Provider{
		timeout: DefaultTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	var errs []error
	for i, raw := range proxyURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := parseProxyURL(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("proxy %d: %w", i, err))
			continue
		}
		p.proxies = append(p.proxies, u)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	p.direct = &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   p.timeout,
	}
	return p, nil
}

// Len returns the number of configured proxies.
func (p *Provider) Len() int {
	return len(p.proxies)
}

// Acquire returns a client bound to identity. The same identity always maps
// to the same proxy; a new identity may land on a different one.
func (p *Provider) Acquire(ctx context.Context, identity string) (vinted.Conduit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(p.proxies) == 0 {
		if p.required {
			return nil, ErrNoProxies
		}
		return p.direct, nil
	}

	u := bindIdentity(p.proxies[pick(identity, len(p.proxies))], identity)

	rt, err := roundTripper(u)
	if err != nil {
		return nil, fmt.Errorf("building transport for %s: %w", u.Redacted(), err)
	}

	p.log.Debug("transport acquired", "identity", identity, "proxy", u.Redacted())

	return &http.Client{Transport: otelhttp.NewTransport(rt), Timeout: p.timeout}, nil
}

func parseProxyURL(raw string) (*url.URL, error) {
	// Braces are not valid in userinfo; escape the placeholder so it
	// survives parsing and decodes back in Username.
	raw = strings.ReplaceAll(raw, SessionPlaceholder, url.PathEscape(SessionPlaceholder))

	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing proxy host")
	}
	return u, nil
}

func pick(identity string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return int(h.Sum32() % uint32(n)) //nolint:gosec // n is a small positive slice length
}

// bindIdentity returns a copy of u with SessionPlaceholder in the username
// replaced by identity.
func bindIdentity(u *url.URL, identity string) *url.URL {
	out := *u
	if u.User == nil {
		return &out
	}
	name := strings.ReplaceAll(u.User.Username(), SessionPlaceholder, sanitizeIdentity(identity))
	if pw, ok := u.User.Password(); ok {
		out.User = url.UserPassword(name, pw)
	} else {
		out.User = url.User(name)
	}
	return &out
}

// sanitizeIdentity keeps identities usable inside proxy usernames, which
// many providers restrict to alphanumerics.
func sanitizeIdentity(identity string) string {
	var b strings.Builder
	for _, r := range identity {
		if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func roundTripper(u *url.URL) (http.RoundTripper, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("default transport is not *http.Transport")
	}
	t := base.Clone()

	switch u.Scheme {
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, &net.Dialer{Timeout: 10 * time.Second})
		if err != nil {
			return nil, err
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("socks dialer does not support contexts")
		}
		t.Proxy = nil
		t.DialContext = cd.DialContext
	default:
		t.Proxy = http.ProxyURL(u)
	}

	return t, nil
}
