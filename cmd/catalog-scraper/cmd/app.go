package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/donaldgifford/catalog-scraper/internal/config"
	"github.com/donaldgifford/catalog-scraper/internal/engine"
	"github.com/donaldgifford/catalog-scraper/internal/notify"
	"github.com/donaldgifford/catalog-scraper/internal/sink"
	"github.com/donaldgifford/catalog-scraper/internal/store"
	"github.com/donaldgifford/catalog-scraper/internal/tracing"
	"github.com/donaldgifford/catalog-scraper/internal/transport"
	"github.com/donaldgifford/catalog-scraper/internal/vinted"
	"github.com/donaldgifford/catalog-scraper/pkg/logger"
)

// app holds the wired components shared by scrape and serve.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	db     *store.PostgresStore // nil without a database
	store  store.Store          // nil without a database
	jsonl  *sink.JSONL          // nil when JSONL output is off
	engine *engine.Engine

	shutdownTracing tracing.ShutdownFunc
}

// newApp wires logging, tracing, the database, transport, the catalog
// client, sinks, notifications, and the engine from cfg.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.close(context.WithoutCancel(ctx))
		}
	}()

	a.shutdownTracing, err = tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     Version,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return a, fmt.Errorf("setting up tracing: %w", err)
	}

	if cfg.Database.Enabled() {
		a.db, err = store.NewPostgresStore(ctx, cfg.Database.DSN(), store.WithPoolSize(cfg.Database.PoolSize))
		if err != nil {
			return a, fmt.Errorf("connecting to database: %w", err)
		}
		if err := a.db.Migrate(ctx); err != nil {
			return a, fmt.Errorf("running migrations: %w", err)
		}
		a.store = a.db
	}

	tp, err := transport.New(cfg.Transport.ProxyURLs,
		transport.WithTimeout(cfg.Transport.Timeout),
		transport.WithProxyRequired(cfg.Transport.ProxyRequired),
		transport.WithLogger(log),
	)
	if err != nil {
		return a, fmt.Errorf("configuring transport: %w", err)
	}
	log.Info("transport configured", "proxies", tp.Len())

	boot := vinted.NewBootstrapper(tp, vinted.WithBootstrapLogger(log))
	pager := vinted.NewPaginator(boot,
		vinted.WithPageSize(cfg.Catalog.PageSize),
		vinted.WithMaxAttempts(cfg.Catalog.MaxAttempts),
		vinted.WithBackoff(vinted.Backoff{Base: cfg.Catalog.BackoffBase, Jitter: cfg.Catalog.Jitter}),
		vinted.WithPacing(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
		vinted.WithRequestBudget(cfg.RateLimit.RequestBudget),
		vinted.WithPaginatorLogger(log),
	)

	out, err := a.buildSink()
	if err != nil {
		return a, err
	}

	opts := []engine.EngineOption{
		engine.WithLogger(log),
		engine.WithNotifier(buildNotifier(cfg, log)),
		engine.WithQueryOptions(cfg.Catalog.QueryOptions()...),
	}
	if cfg.Notifications.Discord.SampleSize > 0 {
		opts = append(opts, engine.WithSampleSize(cfg.Notifications.Discord.SampleSize))
	}
	if a.store != nil {
		opts = append(opts, engine.WithStore(a.store))
	}
	a.engine = engine.NewEngine(pager, out, opts...)

	return a, nil
}

func (a *app) buildSink() (vinted.Sink, error) {
	var sinks sink.Multi

	if path := a.cfg.Output.JSONLPath; path != "" {
		j, err := sink.OpenJSONL(path)
		if err != nil {
			return nil, fmt.Errorf("opening jsonl output: %w", err)
		}
		a.jsonl = j
		sinks = append(sinks, j)
	}

	if a.cfg.Output.Store {
		if a.store == nil {
			return nil, errors.New("output.store requires a database")
		}
		sinks = append(sinks, sink.NewStore(a.store, a.log))
	}

	switch len(sinks) {
	case 0:
		a.log.Warn("no output configured, scraped items are discarded")
		return sink.Discard{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

func buildNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	d := cfg.Notifications.Discord
	if !d.Enabled {
		return notify.NewNoOpNotifier(log)
	}
	var opts []notify.DiscordOption
	if d.SampleSize > 0 {
		opts = append(opts, notify.WithSampleSize(d.SampleSize))
	}
	return notify.NewDiscordNotifier(d.WebhookURL, opts...)
}

// searches converts configured scheduled searches for the scheduler.
func searches(cfg *config.Config) []engine.Search {
	out := make([]engine.Search, 0, len(cfg.Searches))
	for i := range cfg.Searches {
		s := &cfg.Searches[i]
		out = append(out, engine.Search{Name: s.Name, Interval: s.Interval, Input: s.Input})
	}
	return out
}

// close releases everything newApp acquired. Safe on a partially built app.
func (a *app) close(ctx context.Context) {
	if a.jsonl != nil {
		if err := a.jsonl.Close(); err != nil {
			a.log.Error("closing jsonl output", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.log.Error("shutting down tracing", "error", err)
		}
	}
}
