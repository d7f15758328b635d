package vinted

import (
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// SeenSet holds the ids emitted during one run. It only grows.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet returns an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Add records id and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Has reports whether id has been emitted.
func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of emitted ids.
func (s *SeenSet) Len() int {
	return len(s.ids)
}

// AdmitResult is the outcome of admitting one page of items.
type AdmitResult struct {
	Batch      []domain.Item
	Duplicates int
	OverBudget int
}

// Admit filters one page of items against the seen set and the remaining
// budget. New items are stamped with page and appended in their original
// order; items past the budget are dropped, not deferred, and are not
// marked as seen.
func Admit(items []domain.Item, seen *SeenSet, page, remaining int) AdmitResult {
	var res AdmitResult
	res.Batch = make([]domain.Item, 0, min(len(items), max(remaining, 0)))

	for i := range items {
		if seen.Has(items[i].ID) {
			res.Duplicates++
			continue
		}
		if len(res.Batch) >= remaining {
			res.OverBudget++
			continue
		}
		seen.Add(items[i].ID)
		item := items[i]
		item.Page = page
		res.Batch = append(res.Batch, item)
	}

	return res
}
