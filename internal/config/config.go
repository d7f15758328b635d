// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/catalog-scraper/internal/query"
	"github.com/donaldgifford/catalog-scraper/internal/vinted"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Search        query.Input         `yaml:"search"`
	Searches      []SearchConfig      `yaml:"searches"`
	Transport     TransportConfig     `yaml:"transport"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Output        OutputConfig        `yaml:"output"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
	Tracing       TracingConfig       `yaml:"tracing"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings. The database is
// optional; an empty host disables persistence.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// Enabled reports whether a database is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// CatalogConfig defines the catalog site and paging behavior.
type CatalogConfig struct {
	BaseURL     string            `yaml:"base_url"`
	PageSize    int               `yaml:"page_size"`
	MaxAttempts int               `yaml:"max_attempts"`
	BackoffBase time.Duration     `yaml:"backoff_base"`
	Jitter      time.Duration     `yaml:"backoff_jitter"`
	Categories  map[string]string `yaml:"categories"` // name -> catalog slug
}

// QueryOptions returns the normalizer options for this catalog site.
func (c *CatalogConfig) QueryOptions() []query.Option {
	return []query.Option{
		query.WithBaseURL(c.BaseURL),
		query.WithCategories(c.Categories),
	}
}

// SearchConfig is a scheduled search.
type SearchConfig struct {
	Name        string        `yaml:"name"`
	Interval    time.Duration `yaml:"interval"` // default: schedule.interval
	query.Input `yaml:",inline"`
}

// TransportConfig defines network egress settings.
type TransportConfig struct {
	ProxyURLs     []string      `yaml:"proxy_urls"`
	ProxyRequired bool          `yaml:"proxy_required"`
	Timeout       time.Duration `yaml:"timeout"`
}

// RateLimitConfig defines catalog request pacing. A zero request budget
// derives one from max pages.
type RateLimitConfig struct {
	PerSecond     float64 `yaml:"per_second"`
	Burst         int     `yaml:"burst"`
	RequestBudget int64   `yaml:"request_budget"`
}

// ScheduleConfig defines scheduler settings for `serve`.
type ScheduleConfig struct {
	Interval time.Duration `yaml:"interval"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// OutputConfig defines where scraped items go.
type OutputConfig struct {
	JSONLPath string `yaml:"jsonl_path"` // "-" for stdout, empty to disable
	Store     bool   `yaml:"store"`      // upsert into the database
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	SampleSize int    `yaml:"sample_size"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, logfmt, json
}

// TracingConfig defines OpenTelemetry export settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // OTLP gRPC host:port
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "logfmt", "json"}
)

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML config bytes, applying defaults and validation.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyCatalogDefaults(&cfg.Catalog)
	applyTransportDefaults(&cfg.Transport)
	applyRateLimitDefaults(&cfg.RateLimit)
	applyScheduleDefaults(&cfg.Schedule)
	applySearchDefaults(cfg.Searches, cfg.Schedule.Interval)
	applyOutputDefaults(&cfg.Output, &cfg.Database)
	applyNotificationDefaults(&cfg.Notifications)
	applyLoggingDefaults(&cfg.Logging)
	applyTracingDefaults(&cfg.Tracing)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 5 * time.Minute
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyCatalogDefaults(c *CatalogConfig) {
	if c.BaseURL == "" {
		c.BaseURL = query.DefaultBaseURL
	}
	if c.PageSize == 0 {
		c.PageSize = 24
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 4
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = 800 * time.Millisecond
	}
	if c.Jitter == 0 {
		c.Jitter = 600 * time.Millisecond
	}
}

func applyTransportDefaults(t *TransportConfig) {
	if t.Timeout == 0 {
		t.Timeout = 30 * time.Second
	}
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 2.0
	}
	if r.Burst == 0 {
		r.Burst = 1
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.Interval == 0 {
		s.Interval = time.Hour
	}
	if s.LockTTL == 0 {
		s.LockTTL = 30 * time.Minute
	}
}

func applySearchDefaults(searches []SearchConfig, interval time.Duration) {
	for i := range searches {
		if searches[i].Interval == 0 {
			searches[i].Interval = interval
		}
	}
}

func applyOutputDefaults(o *OutputConfig, d *DatabaseConfig) {
	if !o.Store && o.JSONLPath == "" {
		if d.Enabled() {
			o.Store = true
		} else {
			o.JSONLPath = "-"
		}
	}
}

func applyNotificationDefaults(n *NotificationsConfig) {
	if n.Discord.SampleSize == 0 {
		n.Discord.SampleSize = 5
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "catalog-scraper"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
	}
}

// Validate reports every configuration problem at once.
func (cfg *Config) Validate() error {
	var errs []error

	if cfg.Database.Enabled() {
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required"))
		}
	}
	if cfg.Output.Store && !cfg.Database.Enabled() {
		errs = append(errs, fmt.Errorf("output.store requires database.host"))
	}

	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	if _, err := query.Normalize(cfg.Search, cfg.Catalog.QueryOptions()...); err != nil {
		errs = append(errs, fmt.Errorf("search: %w", err))
	}
	errs = append(errs, validateSearches(cfg.Searches, cfg.Catalog.QueryOptions())...)

	if cfg.RateLimit.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.per_second must not be negative"))
	}
	if cfg.RateLimit.RequestBudget < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.request_budget must not be negative"))
	}

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"))
	}

	if !slices.Contains(validLevels, cfg.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: debug, info, warn, error (got %q)", cfg.Logging.Level))
	}
	if !slices.Contains(validFormats, cfg.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: text, logfmt, json (got %q)", cfg.Logging.Format))
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, fmt.Errorf("tracing.endpoint is required when tracing is enabled"))
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be between 0 and 1"))
	}

	return errors.Join(errs...)
}

func validateCatalog(c *CatalogConfig) []error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("catalog.base_url must be an absolute http(s) URL (got %q)", c.BaseURL))
	}
	if c.PageSize < 1 || c.PageSize > 96 {
		errs = append(errs, fmt.Errorf("catalog.page_size must be between 1 and 96"))
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > vinted.MaxAttemptsPerPage {
		errs = append(errs, fmt.Errorf("catalog.max_attempts must be between 1 and %d", vinted.MaxAttemptsPerPage))
	}
	return errs
}

func validateSearches(searches []SearchConfig, opts []query.Option) []error {
	var errs []error
	seen := make(map[string]bool, len(searches))

	for i := range searches {
		s := &searches[i]
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("searches[%d].name is required", i))
			continue
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Errorf("searches[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = true
		if s.Interval < time.Minute {
			errs = append(errs, fmt.Errorf("searches[%d].interval must be at least 1m", i))
		}
		if _, err := query.Normalize(s.Input, opts...); err != nil {
			errs = append(errs, fmt.Errorf("searches[%d] (%s): %w", i, s.Name, err))
		}
	}
	return errs
}
