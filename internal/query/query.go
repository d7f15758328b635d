// Package query turns user-supplied search filters into a canonical,
// pagination-free parameter set that is reused for every catalog page
// request in a run.
package query

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the catalog site used when no start URL is given.
	DefaultBaseURL = "https://www.vinted.com"

	// DefaultCategorySlug is used for unknown category names.
	DefaultCategorySlug = "1904-women"

	defaultCatalogID     = "1904"
	defaultResultsWanted = 20
	defaultMaxPages      = 10
)

// Canonical parameter names.
const (
	ParamCatalogIDs = "catalog_ids"
	ParamSearchText = "search_text"
	ParamPriceFrom  = "price_from"
	ParamPriceTo    = "price_to"
	ParamOrder      = "order"
)

// DefaultCategories maps logical category names to catalog slugs.
var DefaultCategories = map[string]string{
	"women": "1904-women",
	"men":   "5-men",
	"kids":  "47-kids",
	"home":  "2000-home",
}

// aliases maps every accepted spelling to its canonical parameter name.
// Lookup order within a canonical group is canonical name first, then the
// aliases in the order listed in aliasOrder.
var aliases = map[string]string{
	"catalog_ids":   ParamCatalogIDs,
	"catalog_ids[]": ParamCatalogIDs,
	"catalog[]":     ParamCatalogIDs,
	"catalog_id":    ParamCatalogIDs,
	"catalog":       ParamCatalogIDs,
	"search_text":   ParamSearchText,
	"q":             ParamSearchText,
	"keyword":       ParamSearchText,
	"price_from":    ParamPriceFrom,
	"min_price":     ParamPriceFrom,
	"price_to":      ParamPriceTo,
	"max_price":     ParamPriceTo,
}

var aliasOrder = map[string][]string{
	ParamCatalogIDs: {"catalog_ids", "catalog_ids[]", "catalog[]", "catalog_id", "catalog"},
	ParamSearchText: {"search_text", "q", "keyword"},
	ParamPriceFrom:  {"price_from", "min_price"},
	ParamPriceTo:    {"price_to", "max_price"},
}

// paginationParams are stripped from every canonical set.
var paginationParams = map[string]struct{}{
	"page":              {},
	"per_page":          {},
	"time":              {},
	"search_id":         {},
	"search_session_id": {},
}

var (
	catalogPathRe = regexp.MustCompile(`/catalog/(\d+)`)
	catalogSlugRe = regexp.MustCompile(`^\d+(-[a-z0-9-]+)?$`)
)

// ValidationError reports an invalid input combination. It is always
// raised before any network activity.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Input holds raw, user-supplied search parameters.
type Input struct {
	StartURL      string              `json:"startUrl,omitempty"      yaml:"start_url"      doc:"Explicit catalog URL, overrides derived fields"`
	Keyword       string              `json:"keyword,omitempty"       yaml:"keyword"        doc:"Free-text search"`
	Category      string              `json:"category,omitempty"      yaml:"category"       doc:"Category name (women, men, kids, home) or catalog slug"`
	MinPrice      *float64            `json:"minPrice,omitempty"      yaml:"min_price"      doc:"Lower price bound"`
	MaxPrice      *float64            `json:"maxPrice,omitempty"      yaml:"max_price"      doc:"Upper price bound"`
	ResultsWanted int                 `json:"resultsWanted,omitempty" yaml:"results_wanted" doc:"Maximum number of items to save (default 20)"`
	MaxPages      int                 `json:"maxPages,omitempty"      yaml:"max_pages"      doc:"Maximum number of catalog pages to fetch (default 10)"`
	Order         string              `json:"order,omitempty"         yaml:"order"          doc:"Catalog sort order"`
	Filters       map[string][]string `json:"filters,omitempty"       yaml:"filters"        doc:"Pass-through catalog filters"`
}

// Limits returns the effective result and page budgets. Zero values take
// the defaults; negative values are clamped to 1.
func (in *Input) Limits() (resultsWanted, maxPages int) {
	return clampPositive(in.ResultsWanted, defaultResultsWanted),
		clampPositive(in.MaxPages, defaultMaxPages)
}

func clampPositive(v, def int) int {
	switch {
	case v == 0:
		return def
	case v < 0:
		return 1
	default:
		return v
	}
}

// Query is the canonical, immutable parameter set for a run. Accessors
// return copies so callers cannot mutate it.
type Query struct {
	baseURL    string
	initialURL string
	keyword    string
	catalogIDs []string
	minPrice   *float64
	maxPrice   *float64
	values     url.Values
}

// Keyword returns the canonical search text.
func (q *Query) Keyword() string { return q.keyword }

// CatalogIDs returns the canonical catalog identifiers.
func (q *Query) CatalogIDs() []string { return slices.Clone(q.catalogIDs) }

// MinPrice returns the lower price bound, if any.
func (q *Query) MinPrice() *float64 { return copyFloat(q.minPrice) }

// MaxPrice returns the upper price bound, if any.
func (q *Query) MaxPrice() *float64 { return copyFloat(q.maxPrice) }

// InitialURL is the priming URL for session bootstrap and the referer of
// every API request.
func (q *Query) InitialURL() string { return q.initialURL }

// BaseURL is the scheme and host all API requests are sent to.
func (q *Query) BaseURL() string { return q.baseURL }

// Values returns a copy of the canonical parameter set.
func (q *Query) Values() url.Values {
	out := make(url.Values, len(q.values))
	for k, v := range q.values {
		out[k] = slices.Clone(v)
	}
	return out
}

// Encode returns the canonical parameters in sorted, URL-encoded form.
func (q *Query) Encode() string {
	return q.values.Encode()
}

// String implements fmt.Stringer.
func (q *Query) String() string {
	return q.initialURL + " [" + q.Encode() + "]"
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// Option configures Normalize.
type Option func(*normalizer)

type normalizer struct {
	baseURL    string
	categories map[string]string
}

// WithBaseURL overrides the catalog site used to derive the initial URL.
func WithBaseURL(u string) Option {
	return func(n *normalizer) {
		n.baseURL = strings.TrimRight(u, "/")
	}
}

// WithCategories overrides the category name to slug map.
func WithCategories(m map[string]string) Option {
	return func(n *normalizer) {
		if len(m) > 0 {
			n.categories = m
		}
	}
}

// Normalize validates raw input and builds the canonical query. It performs
// no I/O and returns identical output for identical input.
func Normalize(in Input, opts ...Option) (*Query, error) {
	n := &normalizer{
		baseURL:    DefaultBaseURL,
		categories: DefaultCategories,
	}
	for _, opt := range opts {
		opt(n)
	}

	if err := validatePrices(in.MinPrice, in.MaxPrice); err != nil {
		return nil, err
	}

	initial, err := n.initialURL(&in)
	if err != nil {
		return nil, err
	}

	raw := initial.Query()

	// Explicit inputs only fill gaps a custom start URL leaves open.
	setIfAbsent(raw, ParamSearchText, strings.TrimSpace(in.Keyword))
	if in.MinPrice != nil {
		setIfAbsent(raw, ParamPriceFrom, formatPrice(*in.MinPrice))
	}
	if in.MaxPrice != nil {
		setIfAbsent(raw, ParamPriceTo, formatPrice(*in.MaxPrice))
	}
	setIfAbsent(raw, ParamOrder, in.Order)

	for _, k := range sortedKeys(in.Filters) {
		for _, v := range in.Filters[k] {
			raw.Add(k, v)
		}
	}

	values := canonicalize(raw)

	if len(values[ParamCatalogIDs]) == 0 {
		id := defaultCatalogID
		if m := catalogPathRe.FindStringSubmatch(initial.Path); m != nil {
			id = m[1]
		}
		values.Set(ParamCatalogIDs, id)
	}

	q := &Query{
		baseURL:    initial.Scheme + "://" + initial.Host,
		initialURL: initial.String(),
		keyword:    values.Get(ParamSearchText),
		catalogIDs: strings.Split(values.Get(ParamCatalogIDs), ","),
		values:     values,
	}
	if in.StartURL != "" {
		q.initialURL = in.StartURL
	}

	if q.minPrice, err = parsePrice(values, ParamPriceFrom); err != nil {
		return nil, err
	}
	if q.maxPrice, err = parsePrice(values, ParamPriceTo); err != nil {
		return nil, err
	}
	if err := validatePrices(q.minPrice, q.maxPrice); err != nil {
		return nil, err
	}

	return q, nil
}

func (n *normalizer) initialURL(in *Input) (*url.URL, error) {
	if in.StartURL != "" {
		u, err := url.Parse(in.StartURL)
		if err != nil {
			return nil, &ValidationError{Field: "startUrl", Reason: err.Error()}
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &ValidationError{
				Field:  "startUrl",
				Reason: "must be an absolute http(s) URL",
			}
		}
		return u, nil
	}

	u, err := url.Parse(n.baseURL + "/catalog/" + n.categorySlug(in.Category))
	if err != nil {
		return nil, fmt.Errorf("building catalog URL: %w", err)
	}

	params := url.Values{}
	if kw := strings.TrimSpace(in.Keyword); kw != "" {
		params.Set(ParamSearchText, kw)
	}
	if in.MinPrice != nil {
		params.Set(ParamPriceFrom, formatPrice(*in.MinPrice))
	}
	if in.MaxPrice != nil {
		params.Set(ParamPriceTo, formatPrice(*in.MaxPrice))
	}
	u.RawQuery = params.Encode()

	return u, nil
}

func (n *normalizer) categorySlug(category string) string {
	name := strings.ToLower(strings.TrimSpace(category))
	if slug, ok := n.categories[name]; ok {
		return slug
	}
	if catalogSlugRe.MatchString(name) {
		return name
	}
	return DefaultCategorySlug
}

// canonicalize merges aliases, drops pagination fields and empty values,
// and dedupes catalog identifiers in order of first appearance.
func canonicalize(raw url.Values) url.Values {
	out := url.Values{}

	for canonical, names := range aliasOrder {
		var merged []string
		for _, name := range names {
			for _, v := range raw[name] {
				for part := range strings.SplitSeq(v, ",") {
					part = strings.TrimSpace(part)
					if part == "" {
						continue
					}
					if canonical != ParamCatalogIDs {
						merged = append(merged, part)
						continue
					}
					if !slices.Contains(merged, part) {
						merged = append(merged, part)
					}
				}
			}
		}
		if len(merged) == 0 {
			continue
		}
		if canonical == ParamCatalogIDs {
			out.Set(canonical, strings.Join(merged, ","))
		} else {
			out.Set(canonical, merged[0])
		}
	}

	for _, k := range sortedKeys(raw) {
		if _, isAlias := aliases[k]; isAlias {
			continue
		}
		if _, isPage := paginationParams[k]; isPage {
			continue
		}
		for _, v := range raw[k] {
			if v = strings.TrimSpace(v); v != "" {
				out.Add(k, v)
			}
		}
	}

	return out
}

func validatePrices(minPrice, maxPrice *float64) error {
	if minPrice != nil && !finite(*minPrice) {
		return &ValidationError{Field: "minPrice", Reason: "must be a finite number"}
	}
	if maxPrice != nil && !finite(*maxPrice) {
		return &ValidationError{Field: "maxPrice", Reason: "must be a finite number"}
	}
	if minPrice != nil && *minPrice < 0 {
		return &ValidationError{Field: "minPrice", Reason: "must not be negative"}
	}
	if maxPrice != nil && *maxPrice < 0 {
		return &ValidationError{Field: "maxPrice", Reason: "must not be negative"}
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return &ValidationError{
			Field: "minPrice",
			Reason: fmt.Sprintf(
				"%s is greater than maxPrice %s",
				formatPrice(*minPrice), formatPrice(*maxPrice),
			),
		}
	}
	return nil
}

func parsePrice(values url.Values, key string) (*float64, error) {
	s := values.Get(key)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, &ValidationError{Field: key, Reason: fmt.Sprintf("%q is not a number", s)}
	}
	if !finite(f) {
		return nil, &ValidationError{Field: key, Reason: fmt.Sprintf("%q is not a finite number", s)}
	}
	values.Set(key, formatPrice(f))
	return &f, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func formatPrice(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func setIfAbsent(v url.Values, key, value string) {
	if value == "" {
		return
	}
	for _, name := range aliasOrder[key] {
		if v.Get(name) != "" {
			return
		}
	}
	if v.Get(key) != "" {
		return
	}
	v.Set(key, value)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
