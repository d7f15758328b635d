package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/donaldgifford/catalog-scraper/internal/engine"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRunSummary(w io.Writer, res *domain.RunResult, elapsed time.Duration) error {
	tw := newTabWriter(w)
	tw.writef("Saved:\t%d\n", res.Saved)
	tw.writef("Pages:\t%d\n", res.Pages)
	tw.writef("Attempts:\t%d\n", res.Attempts)
	tw.writef("Bootstraps:\t%d\n", res.Bootstraps)
	if res.TotalPages != nil {
		tw.writef("Total pages:\t%d\n", *res.TotalPages)
	}
	tw.writef("Stop reason:\t%s\n", res.StopReason)
	if res.Error != "" {
		tw.writef("Error:\t%s\n", res.Error)
	}
	if elapsed > 0 {
		tw.writef("Duration:\t%s\n", elapsed.Round(100*time.Millisecond))
	}
	return tw.finish()
}

func printItemsTable(w io.Writer, items []domain.Item, total int) error {
	tw := newTabWriter(w)
	tw.writef("ID\tTITLE\tBRAND\tSIZE\tPRICE\tFAVS\tFIRST SEEN\n")
	for i := range items {
		it := &items[i]
		tw.writef("%s\t%s\t%s\t%s\t%.2f %s\t%d\t%s\n",
			it.ID,
			truncate(it.Title, 40),
			it.Brand,
			it.Size,
			it.Price, it.Currency,
			it.FavouriteCount,
			formatTime(it.FirstSeenAt),
		)
	}
	tw.writef("\n%d of %d items\n", len(items), total)
	return tw.finish()
}

func printItemDetail(w io.Writer, it *domain.Item) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", it.ID)
	tw.writef("Title:\t%s\n", it.Title)
	tw.writef("Brand:\t%s\n", it.Brand)
	tw.writef("Size:\t%s\n", it.Size)
	tw.writef("Condition:\t%s\n", it.Condition)
	tw.writef("Price:\t%.2f %s\n", it.Price, it.Currency)
	tw.writef("Total price:\t%.2f %s\n", it.TotalPrice, it.Currency)
	tw.writef("Favourites:\t%d\n", it.FavouriteCount)
	tw.writef("Seller:\t%s\n", it.SellerUsername)
	tw.writef("URL:\t%s\n", it.URL)
	tw.writef("First seen:\t%s\n", formatTime(it.FirstSeenAt))
	return tw.finish()
}

func printRunsTable(w io.Writer, runs []domain.RunRecord) error {
	tw := newTabWriter(w)
	tw.writef("ID\tSTARTED\tDURATION\tSAVED\tPAGES\tSTOP\tERROR\n")
	for i := range runs {
		r := &runs[i]
		duration := "running"
		if r.CompletedAt != nil {
			duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		tw.writef("%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID,
			formatTime(r.StartedAt),
			duration,
			r.Saved,
			r.Pages,
			r.StopReason,
			truncate(r.ErrorText, 50),
		)
	}
	return tw.finish()
}

func printSearchesTable(w io.Writer, searches []engine.SearchStatus) error {
	tw := newTabWriter(w)
	tw.writef("NAME\tINTERVAL\tKEYWORD\tCATEGORY\tRESULTS\tNEXT RUN\n")
	for i := range searches {
		s := &searches[i]
		results, _ := s.Query.Limits()
		tw.writef("%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Name,
			s.Interval,
			s.Query.Keyword,
			s.Query.Category,
			strconv.Itoa(results),
			formatTime(s.NextRun),
		)
	}
	return tw.finish()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
