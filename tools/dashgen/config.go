package main

import "errors"

// KnownMetrics is the set of metric names exported by catalog-scraper plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"catscrape_http_request_duration_seconds": true,
	"catscrape_http_requests_total":           true,

	// Health metrics.
	"catscrape_healthz_up": true,
	"catscrape_readyz_up":  true,

	// Catalog fetch metrics.
	"catscrape_page_attempts_total":      true,
	"catscrape_pages_fetched_total":      true,
	"catscrape_backoff_seconds":          true,
	"catscrape_session_bootstraps_total": true,
	"catscrape_request_budget_remaining": true,

	// Item metrics.
	"catscrape_items_saved_total":   true,
	"catscrape_items_skipped_total": true,
	"catscrape_sink_errors_total":   true,

	// Run metrics.
	"catscrape_runs_total":                    true,
	"catscrape_run_duration_seconds":          true,
	"catscrape_notification_failures_total":   true,
	"catscrape_notification_duration_seconds": true,

	// Scheduler metrics.
	"catscrape_scheduler_next_run_timestamp": true,
	"catscrape_scheduler_skips_total":        true,

	// Recording rules.
	"catscrape:http_requests:rate5m": true,
	"catscrape:http_errors:rate5m":   true,
	"catscrape:items_saved:rate5m":   true,
	"catscrape:page_attempts:rate5m": true,
	"catscrape:page_failures:rate5m": true,
	"catscrape:runs_failed:rate5m":   true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
