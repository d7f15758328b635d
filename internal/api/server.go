// Package api assembles the catalog-scraper HTTP API: an Echo server with
// request logging, panic recovery, Prometheus metrics, health probes, and
// Huma-registered JSON operations.
package api

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/catalog-scraper/api/openapi"
	"github.com/donaldgifford/catalog-scraper/internal/api/handlers"
	mw "github.com/donaldgifford/catalog-scraper/internal/api/middleware"
)

// Deps are the components the API serves. Store fields may be nil when the
// service runs without a database.
type Deps struct {
	Runner   handlers.Runner
	Items    handlers.ItemStore
	Runs     handlers.RunStore
	DB       handlers.Pinger
	Searches handlers.SearchLister
	Version  string
	Logger   *slog.Logger
}

// NewServer builds the Echo instance with all routes registered.
func NewServer(d Deps) *echo.Echo {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(mw.RequestLog(log), mw.Recovery(log), mw.Metrics())

	health := handlers.NewHealthHandler(d.DB)
	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	version := d.Version
	if version == "" {
		version = "dev"
	}
	humaAPI := humaecho.New(e, huma.DefaultConfig("catalog-scraper API", version))
	openapi.RegisterRoutes(e)

	handlers.RegisterRunRoutes(humaAPI, handlers.NewRunsHandler(d.Runner, d.Runs, d.Searches))
	if d.Items != nil {
		handlers.RegisterItemRoutes(humaAPI, handlers.NewItemsHandler(d.Items))
	}

	return e
}
