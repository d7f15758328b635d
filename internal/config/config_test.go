package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty config uses defaults",
			yaml: ``,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
				assert.False(t, cfg.Database.Enabled())
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "https://www.vinted.com", cfg.Catalog.BaseURL)
				assert.Equal(t, 24, cfg.Catalog.PageSize)
				assert.Equal(t, 4, cfg.Catalog.MaxAttempts)
				assert.Equal(t, 800*time.Millisecond, cfg.Catalog.BackoffBase)
				assert.Equal(t, 600*time.Millisecond, cfg.Catalog.Jitter)
				assert.Equal(t, 30*time.Second, cfg.Transport.Timeout)
				assert.InDelta(t, 2.0, cfg.RateLimit.PerSecond, 0.001)
				assert.Equal(t, 1, cfg.RateLimit.Burst)
				assert.Equal(t, time.Hour, cfg.Schedule.Interval)
				assert.Equal(t, 30*time.Minute, cfg.Schedule.LockTTL)
				assert.Equal(t, "-", cfg.Output.JSONLPath)
				assert.False(t, cfg.Output.Store)
				assert.Equal(t, 5, cfg.Notifications.Discord.SampleSize)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
				assert.Equal(t, "catalog-scraper", cfg.Tracing.ServiceName)
				assert.InDelta(t, 1.0, cfg.Tracing.SampleRatio, 0.001)
			},
		},
		{
			name: "database enables store output by default",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.True(t, cfg.Database.Enabled())
				assert.True(t, cfg.Output.Store)
				assert.Empty(t, cfg.Output.JSONLPath)
			},
		},
		{
			name: "env var substitution",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
  password: "${TEST_DB_PASSWORD}"
notifications:
  discord:
    enabled: true
    webhook_url: "${TEST_DISCORD_URL}"
`,
			envVars: map[string]string{
				"TEST_DB_PASSWORD": "secret123",
				"TEST_DISCORD_URL": "https://discord.com/api/webhooks/1",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "secret123", cfg.Database.Password)
				assert.Equal(t, "https://discord.com/api/webhooks/1", cfg.Notifications.Discord.WebhookURL)
			},
		},
		{
			name: "search defaults and scheduled searches",
			yaml: `
schedule:
  interval: 20m
search:
  keyword: denim
  category: men
  min_price: 5
  results_wanted: 50
searches:
  - name: boots
    keyword: boots
    max_pages: 3
  - name: coats
    start_url: https://www.vinted.com/catalog/5-men?search_text=coat
    interval: 2h
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "denim", cfg.Search.Keyword)
				assert.Equal(t, "men", cfg.Search.Category)
				require.NotNil(t, cfg.Search.MinPrice)
				assert.InDelta(t, 5.0, *cfg.Search.MinPrice, 0.001)
				assert.Nil(t, cfg.Search.MaxPrice)
				assert.Equal(t, 50, cfg.Search.ResultsWanted)

				require.Len(t, cfg.Searches, 2)
				assert.Equal(t, "boots", cfg.Searches[0].Keyword)
				assert.Equal(t, 3, cfg.Searches[0].MaxPages)
				assert.Equal(t, 20*time.Minute, cfg.Searches[0].Interval)
				assert.Equal(t, 2*time.Hour, cfg.Searches[1].Interval)
				assert.Contains(t, cfg.Searches[1].StartURL, "search_text=coat")
			},
		},
		{
			name: "database missing name and user",
			yaml: `
database:
  host: localhost
`,
			wantErr: "database.name is required",
		},
		{
			name: "store output without database",
			yaml: `
output:
  store: true
`,
			wantErr: "output.store requires database.host",
		},
		{
			name: "invalid catalog settings",
			yaml: `
catalog:
  base_url: ftp://example.com
  page_size: 500
  max_attempts: -1
`,
			wantErr: "catalog.base_url must be an absolute http(s) URL",
		},
		{
			name: "max attempts above per-page bound",
			yaml: `
catalog:
  max_attempts: 5
`,
			wantErr: "catalog.max_attempts must be between 1 and 4",
		},
		{
			name: "search min price above max price",
			yaml: `
search:
  min_price: 50
  max_price: 10
`,
			wantErr: "search: invalid minPrice: 50 is greater than maxPrice 10",
		},
		{
			name: "scheduled search with inverted prices",
			yaml: `
searches:
  - name: cheap
    interval: 1h
    min_price: 50
    max_price: 10
`,
			wantErr: "searches[0] (cheap): invalid minPrice",
		},
		{
			name: "negative rate limit",
			yaml: `
rate_limit:
  per_second: -1
`,
			wantErr: "rate_limit.per_second must not be negative",
		},
		{
			name: "unnamed search",
			yaml: `
searches:
  - keyword: denim
`,
			wantErr: "searches[0].name is required",
		},
		{
			name: "duplicate search names",
			yaml: `
searches:
  - name: a
  - name: a
`,
			wantErr: `searches[1].name "a" is duplicated`,
		},
		{
			name: "search interval too short",
			yaml: `
searches:
  - name: fast
    interval: 10s
`,
			wantErr: "searches[0].interval must be at least 1m",
		},
		{
			name: "discord enabled without webhook",
			yaml: `
notifications:
  discord:
    enabled: true
`,
			wantErr: "notifications.discord.webhook_url is required when discord is enabled",
		},
		{
			name: "invalid logging",
			yaml: `
logging:
  level: verbose
  format: xml
`,
			wantErr: `logging.level must be one of: debug, info, warn, error (got "verbose")`,
		},
		{
			name: "tracing enabled without endpoint",
			yaml: `
tracing:
  enabled: true
`,
			wantErr: "tracing.endpoint is required when tracing is enabled",
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s
  write_timeout: 60s
database:
  host: db.example.com
  port: 5433
  name: catalog_prod
  user: admin
  password: pass
  sslmode: require
  pool_size: 20
catalog:
  base_url: https://www.vinted.fr
  page_size: 48
  max_attempts: 3
  categories:
    shoes: 16-shoes
transport:
  proxy_urls:
    - http://user-session-{session}:pw@proxy.example.com:8000
  proxy_required: true
  timeout: 10s
rate_limit:
  per_second: 0.5
  burst: 2
  request_budget: 100
output:
  jsonl_path: /tmp/items.jsonl
  store: true
logging:
  level: debug
  format: json
tracing:
  enabled: true
  endpoint: otel-collector:4317
  insecure: true
  sample_ratio: 0.25
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "db.example.com", cfg.Database.Host)
				assert.Equal(t, 20, cfg.Database.PoolSize)
				assert.Equal(t, "https://www.vinted.fr", cfg.Catalog.BaseURL)
				assert.Equal(t, 48, cfg.Catalog.PageSize)
				assert.Equal(t, 3, cfg.Catalog.MaxAttempts)
				assert.Equal(t, map[string]string{"shoes": "16-shoes"}, cfg.Catalog.Categories)
				assert.Len(t, cfg.Transport.ProxyURLs, 1)
				assert.True(t, cfg.Transport.ProxyRequired)
				assert.Equal(t, 10*time.Second, cfg.Transport.Timeout)
				assert.InDelta(t, 0.5, cfg.RateLimit.PerSecond, 0.001)
				assert.Equal(t, int64(100), cfg.RateLimit.RequestBudget)
				assert.Equal(t, "/tmp/items.jsonl", cfg.Output.JSONLPath)
				assert.True(t, cfg.Output.Store)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.True(t, cfg.Tracing.Enabled)
				assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 0.001)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			// Set env vars for this test.
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			// Write YAML to a temp file.
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_EmptyPath(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Logging.Level = "loud"
	cfg.Catalog.PageSize = 0
	cfg.RateLimit.RequestBudget = -5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
	assert.Contains(t, err.Error(), "catalog.page_size")
	assert.Contains(t, err.Error(), "rate_limit.request_budget")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "basic DSN",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "testdb",
				User:     "testuser",
				Password: "testpass",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 dbname=testdb user=testuser password=testpass sslmode=disable",
		},
		{
			name: "production DSN",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				Name:     "catalog",
				User:     "admin",
				Password: "s3cret",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 dbname=catalog user=admin password=s3cret sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
