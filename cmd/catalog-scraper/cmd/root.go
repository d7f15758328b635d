// Package cmd implements the CLI commands for catalog-scraper.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/donaldgifford/catalog-scraper/internal/config"
)

const envPrefix = "CATSCRAPE"

var rootCmd = &cobra.Command{
	Use:   "catalog-scraper",
	Short: "Scrape listings from a protected second-hand catalog API",
	Long: "catalog-scraper bootstraps an anonymous session against the catalog site,\n" +
		"pages through the catalog API with retries and pacing, and writes\n" +
		"deduplicated listings to JSONL and/or PostgreSQL. It can run one-shot\n" +
		"scrapes or serve an API with scheduled searches.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Root returns the root cobra command.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initViper)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file path (YAML); defaults apply when empty")
	pf.String("log-level", "", "log level override (debug, info, warn, error)")
	pf.String("log-format", "", "log format override (text, logfmt, json)")
	pf.String("server", "http://localhost:8080", "API server URL for client commands")
	pf.String("output", "table", "output format for client commands (table, json)")

	for _, name := range []string{"config", "log-level", "log-format", "server", "output"} {
		cobra.CheckErr(viper.BindPFlag(name, pf.Lookup(name)))
	}

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(itemsCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(searchesCmd())
	rootCmd.AddCommand(versionCmd())
}

// initViper maps every bound key to a CATSCRAPE_* environment variable,
// e.g. log-level -> CATSCRAPE_LOG_LEVEL.
func initViper() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// loadConfig reads the YAML config and applies flag and environment
// overrides on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if v := viper.GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := viper.GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
