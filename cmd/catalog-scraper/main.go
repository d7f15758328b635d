// Package main is the entry point for catalog-scraper.
package main

import (
	"os"

	"github.com/donaldgifford/catalog-scraper/cmd/catalog-scraper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
