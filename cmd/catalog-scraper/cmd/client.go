package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/catalog-scraper/internal/api/client"
	"github.com/donaldgifford/catalog-scraper/internal/query"
)

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func itemsCmd() *cobra.Command {
	var params apiclient.ListItemsParams

	c := &cobra.Command{
		Use:   "items [id]",
		Short: "List stored items, or show one item, from a running server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := newClient()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				item, err := cl.GetItem(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(out, item)
				}
				return printItemDetail(out, item)
			}

			resp, err := cl.ListItems(cmd.Context(), &params)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(out, resp)
			}
			return printItemsTable(out, resp.Items, resp.Total)
		},
	}

	f := c.Flags()
	f.StringVar(&params.Search, "search", "", "title substring")
	f.StringVar(&params.Brand, "brand", "", "brand filter")
	f.StringVar(&params.Currency, "currency", "", "currency filter")
	f.StringVar(&params.SellerID, "seller-id", "", "seller filter")
	f.Float64Var(&params.MinPrice, "min-price", 0, "minimum price")
	f.Float64Var(&params.MaxPrice, "max-price", 0, "maximum price")
	f.IntVar(&params.Limit, "limit", 0, "page size (server default 50)")
	f.IntVar(&params.Offset, "offset", 0, "pagination offset")
	f.StringVar(&params.OrderBy, "order-by", "", "sort: price, favourites, first_seen_at")

	return c
}

func runsCmd() *cobra.Command {
	var limit int

	c := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := newClient().ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), runs)
			}
			return printRunsTable(cmd.OutOrStdout(), runs)
		},
	}
	c.Flags().IntVar(&limit, "limit", 0, "number of runs (server default 20)")

	c.AddCommand(triggerCmd())
	return c
}

func triggerCmd() *cobra.Command {
	var (
		in       query.Input
		minPrice float64
		maxPrice float64
	)

	c := &cobra.Command{
		Use:   "trigger",
		Short: "Start a scrape on a running server and wait for its summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("min-price") {
				in.MinPrice = &minPrice
			}
			if cmd.Flags().Changed("max-price") {
				in.MaxPrice = &maxPrice
			}

			res, err := newClient().TriggerRun(cmd.Context(), &in)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), res)
			}
			if err := printRunSummary(cmd.OutOrStdout(), res, 0); err != nil {
				return err
			}
			if res.Error != "" {
				return fmt.Errorf("run failed: %s", res.Error)
			}
			return nil
		},
	}

	f := c.Flags()
	f.StringVar(&in.StartURL, "start-url", "", "explicit catalog URL")
	f.StringVar(&in.Keyword, "keyword", "", "free-text search")
	f.StringVar(&in.Category, "category", "", "category name or catalog slug")
	f.Float64Var(&minPrice, "min-price", 0, "lower price bound")
	f.Float64Var(&maxPrice, "max-price", 0, "upper price bound")
	f.IntVar(&in.ResultsWanted, "results-wanted", 0, "maximum items to save")
	f.IntVar(&in.MaxPages, "max-pages", 0, "maximum pages to fetch")
	f.StringVar(&in.Order, "order", "", "catalog sort order")

	return c
}

func searchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "searches",
		Short: "List scheduled searches on a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			searches, err := newClient().ListSearches(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), searches)
			}
			return printSearchesTable(cmd.OutOrStdout(), searches)
		},
	}
}
