package vinted

import (
	"net/http"
	"slices"
	"strings"
)

// CredentialStore accumulates named credentials (cookies) set by the server.
// Entries are added or overwritten, never removed.
type CredentialStore struct {
	values map[string]string
}

// NewCredentialStore returns an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{values: make(map[string]string)}
}

// Set records a credential. Empty names and values are ignored.
func (c *CredentialStore) Set(name, value string) {
	if name == "" || value == "" {
		return
	}
	c.values[name] = value
}

// Get returns a credential and whether it is present.
func (c *CredentialStore) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Len returns the number of stored credentials.
func (c *CredentialStore) Len() int {
	return len(c.values)
}

// Names returns the stored credential names in sorted order.
func (c *CredentialStore) Names() []string {
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Merge records every cookie set by resp, including cookies set on
// redirect responses that led to it. Returns the number of cookies seen.
func (c *CredentialStore) Merge(resp *http.Response) int {
	var chain []*http.Response
	for r := resp; r != nil; {
		chain = append(chain, r)
		if r.Request == nil {
			break
		}
		r = r.Request.Response
	}

	var n int
	// Oldest response first so later values win.
	for i := len(chain) - 1; i >= 0; i-- {
		for _, ck := range chain[i].Cookies() {
			c.Set(ck.Name, ck.Value)
			n++
		}
	}
	return n
}

// Header renders the store as a Cookie header value with names sorted.
func (c *CredentialStore) Header() string {
	var b strings.Builder
	for i, name := range c.Names() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(c.values[name])
	}
	return b.String()
}
