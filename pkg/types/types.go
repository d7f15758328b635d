// Package domain defines the core business types for the catalog scraper.
package domain

import (
	"time"
)

// StopReason records why a scrape run ended.
type StopReason string

// Stop reason constants.
const (
	StopBudgetReached    StopReason = "budget_reached"
	StopCatalogExhausted StopReason = "catalog_exhausted"
	StopPaginationLimit  StopReason = "pagination_limit"
	StopMaxPages         StopReason = "max_pages"
	StopError            StopReason = "error"
)

// Item is a canonical catalog listing. Two items with the same ID are the
// same entity.
type Item struct {
	ID        string `json:"id"                   db:"item_id"`
	Title     string `json:"title"                db:"title"`
	Brand     string `json:"brand"                db:"brand"`
	Size      string `json:"size"                 db:"size"`
	Condition string `json:"condition"            db:"condition"`

	// Pricing
	Price      float64 `json:"price"       db:"price"`
	TotalPrice float64 `json:"total_price" db:"total_price"`
	Currency   string  `json:"currency"    db:"currency"`
	ServiceFee float64 `json:"service_fee" db:"service_fee"`

	// Media and links
	ImageURL     string `json:"image_url,omitempty"      db:"image_url"`
	ImageURLFull string `json:"image_url_full,omitempty" db:"image_url_full"`
	URL          string `json:"url"                      db:"url"`

	// Counters and flags
	FavouriteCount int    `json:"favourite_count" db:"favourite_count"`
	ViewCount      int    `json:"view_count"      db:"view_count"`
	IsFavourite    bool   `json:"is_favourite"    db:"is_favourite"`
	IsVisible      bool   `json:"is_visible"      db:"is_visible"`
	IsPromoted     bool   `json:"is_promoted"     db:"is_promoted"`
	ContentSource  string `json:"content_source"  db:"content_source"`

	// Seller
	SellerID         string `json:"seller_id,omitempty"          db:"seller_id"`
	SellerUsername   string `json:"seller_username,omitempty"    db:"seller_username"`
	SellerProfileURL string `json:"seller_profile_url,omitempty" db:"seller_profile_url"`
	SellerIsBusiness bool   `json:"seller_is_business"           db:"seller_is_business"`

	// Search ranking
	SearchScore    *float64 `json:"search_score,omitempty"    db:"search_score"`
	MatchedQueries []string `json:"matched_queries,omitempty" db:"matched_queries"`

	// Page is the catalog page the item was first seen on.
	Page int `json:"page" db:"page"`

	FirstSeenAt time.Time `json:"first_seen_at,omitzero" db:"first_seen_at"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"    db:"updated_at"`
}

// RunResult summarizes a single scrape run.
type RunResult struct {
	Saved      int        `json:"saved"`
	Pages      int        `json:"pages"`
	Attempts   int        `json:"attempts"`
	Bootstraps int        `json:"bootstraps"`
	TotalPages *int       `json:"total_pages,omitempty"`
	StopReason StopReason `json:"stop_reason"`
	Error      string     `json:"error,omitempty"`
}

// RunRecord is a persisted scrape run.
type RunRecord struct {
	ID          string     `json:"id"                     db:"id"`
	Query       string     `json:"query"                  db:"query"`
	StartedAt   time.Time  `json:"started_at"             db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Saved       int        `json:"saved"                  db:"saved"`
	Pages       int        `json:"pages"                  db:"pages"`
	StopReason  StopReason `json:"stop_reason,omitempty"  db:"stop_reason"`
	ErrorText   string     `json:"error_text,omitempty"   db:"error_text"`
}
