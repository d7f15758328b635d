// Package sink provides destinations for scraped catalog items: JSON Lines
// files, the Postgres store, fan-out, and a discard sink for dry runs. Every
// sink satisfies vinted.Sink.
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/donaldgifford/catalog-scraper/internal/store"
	"github.com/donaldgifford/catalog-scraper/internal/vinted"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

const jsonlBufferSize = 1 << 20

// JSONL writes one JSON object per item, one item per line.
type JSONL struct {
	mu     sync.Mutex
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	count  int
}

// NewJSONL wraps w. Items are flushed to w after every Push.
func NewJSONL(w io.Writer) *JSONL {
	bw := bufio.NewWriterSize(w, jsonlBufferSize)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONL{w: bw, enc: enc}
}

// OpenJSONL appends to the file at path, creating it if needed. "-" writes
// to stdout.
func OpenJSONL(path string) (*JSONL, error) {
	if path == "-" {
		return NewJSONL(os.Stdout), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening jsonl output %s: %w", path, err)
	}
	s := NewJSONL(f)
	s.closer = f
	return s, nil
}

// Push encodes items and flushes them.
func (s *JSONL) Push(_ context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range items {
		if err := s.enc.Encode(&items[i]); err != nil {
			return fmt.Errorf("encoding item %s: %w", items[i].ID, err)
		}
		s.count++
	}
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flushing jsonl output: %w", err)
	}
	return nil
}

// Count returns the number of items written.
func (s *JSONL) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Close flushes buffered output and closes the underlying file, if any.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.w.Flush()
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}

// Store upserts items into a store.Store.
type Store struct {
	store store.Store
	log   *slog.Logger
}

// NewStore returns a sink backed by st.
func NewStore(st store.Store, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{store: st, log: log}
}

// Push upserts items. A batch is all-or-nothing from the caller's view.
func (s *Store) Push(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	n, err := s.store.UpsertItems(ctx, items)
	if err != nil {
		return fmt.Errorf("storing %d items: %w", len(items), err)
	}
	s.log.Debug("items stored", "count", n)
	return nil
}

// Multi pushes every batch to each sink in order and stops at the first
// failure.
type Multi []vinted.Sink

// Push implements vinted.Sink.
func (m Multi) Push(ctx context.Context, items []domain.Item) error {
	for i, s := range m {
		if err := s.Push(ctx, items); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}

// Discard accepts and drops every batch.
type Discard struct{}

// Push implements vinted.Sink.
func (Discard) Push(context.Context, []domain.Item) error { return nil }

var (
	_ vinted.Sink = (*JSONL)(nil)
	_ vinted.Sink = (*Store)(nil)
	_ vinted.Sink = Multi(nil)
	_ vinted.Sink = Discard{}
)
