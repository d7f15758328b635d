package cmd

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/donaldgifford/catalog-scraper/internal/config"
)

func scrapeCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "scrape",
		Short: "Run a single scrape and exit",
		Long: "Runs one scrape using the config file's search section, overridden by\n" +
			"flags or CATSCRAPE_* environment variables. Items go to the configured\n" +
			"outputs; the run summary is printed to stderr. Exits non-zero when the\n" +
			"run ends with a fatal error.",
		Example: "  catalog-scraper scrape --keyword 'denim jacket' --category women --results-wanted 50\n" +
			"  catalog-scraper scrape --start-url 'https://www.vinted.com/catalog?search_text=boots' --jsonl boots.jsonl",
		Args: cobra.NoArgs,
		RunE: runScrape,
	}

	f := c.Flags()
	f.String("start-url", "", "explicit catalog URL; overrides keyword, category, and prices")
	f.String("keyword", "", "free-text search")
	f.String("category", "", "category name (women, men, kids, home) or catalog slug")
	f.Float64("min-price", 0, "lower price bound")
	f.Float64("max-price", 0, "upper price bound")
	f.Int("results-wanted", 0, "maximum items to save (default 20)")
	f.Int("max-pages", 0, "maximum catalog pages to fetch (default 10)")
	f.String("order", "", "catalog sort order (default newest_first)")
	f.StringArray("filter", nil, "pass-through catalog filter as key=value; repeatable")
	f.StringSlice("proxy", nil, "proxy URL (http, https, socks5); repeatable")
	f.String("jsonl", "", `JSONL output path ("-" for stdout)`)
	f.Bool("no-store", false, "do not write items to the database")

	for _, name := range []string{
		"start-url", "keyword", "category", "min-price", "max-price",
		"results-wanted", "max-pages", "order", "filter", "proxy", "jsonl", "no-store",
	} {
		cobra.CheckErr(viper.BindPFlag(name, f.Lookup(name)))
	}

	return c
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyScrapeOverrides(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	start := time.Now()
	res, runErr := a.engine.Run(ctx, cfg.Search)
	if res != nil {
		if err := printRunSummary(cmd.ErrOrStderr(), res, time.Since(start)); err != nil {
			a.log.Error("printing summary", "error", err)
		}
	}
	return runErr
}

// applyScrapeOverrides layers explicitly set flags and environment
// variables over the config's search, transport, and output sections.
func applyScrapeOverrides(cfg *config.Config) error {
	in := &cfg.Search

	if viper.IsSet("start-url") {
		in.StartURL = viper.GetString("start-url")
	}
	if viper.IsSet("keyword") {
		in.Keyword = viper.GetString("keyword")
	}
	if viper.IsSet("category") {
		in.Category = viper.GetString("category")
	}
	if viper.IsSet("min-price") {
		v := viper.GetFloat64("min-price")
		in.MinPrice = &v
	}
	if viper.IsSet("max-price") {
		v := viper.GetFloat64("max-price")
		in.MaxPrice = &v
	}
	if viper.IsSet("results-wanted") {
		in.ResultsWanted = viper.GetInt("results-wanted")
	}
	if viper.IsSet("max-pages") {
		in.MaxPages = viper.GetInt("max-pages")
	}
	if viper.IsSet("order") {
		in.Order = viper.GetString("order")
	}
	if viper.IsSet("filter") {
		filters, err := parseFilters(viper.GetStringSlice("filter"))
		if err != nil {
			return err
		}
		in.Filters = mergeFilters(in.Filters, filters)
	}

	if viper.IsSet("proxy") {
		cfg.Transport.ProxyURLs = viper.GetStringSlice("proxy")
	}
	if viper.IsSet("jsonl") {
		cfg.Output.JSONLPath = viper.GetString("jsonl")
	}
	if viper.GetBool("no-store") {
		cfg.Output.Store = false
	}
	return nil
}

func parseFilters(pairs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q: want key=value", p)
		}
		out[k] = append(out[k], strings.TrimSpace(v))
	}
	return out, nil
}

// mergeFilters returns base with override's keys replaced.
func mergeFilters(base, override map[string][]string) map[string][]string {
	out := make(map[string][]string, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}
