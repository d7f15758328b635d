package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// AttemptsByOutcome returns a timeseries panel showing page request
// attempts split by classified outcome.
func AttemptsByOutcome() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Page Attempts by Outcome").
		Description("Catalog page attempts per second by outcome (success, auth_retry, backoff_retry, fatal)").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(`+Sel("catscrape_page_attempts_total")+`[5m])) by (outcome)`,
			"{{outcome}}", "A",
		)).
		Unit("reqps").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// PagesRate returns a timeseries panel showing catalog pages fetched per
// minute.
func PagesRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Pages / min").
		Description("Catalog pages fetched successfully per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`rate(`+Sel("catscrape_pages_fetched_total")+`[5m]) * 60`, "pages/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// BackoffDelay returns a timeseries panel showing the p95 backoff delay
// applied after transient failures.
func BackoffDelay() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Backoff Delay (p95)").
		Description("95th percentile delay before retrying a transient failure").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(Quantile(0.95, "catscrape_backoff_seconds"), "p95", "A")).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(2, 5)).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// SessionBootstraps returns a timeseries panel showing session bootstrap
// attempts by result.
func SessionBootstraps() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Session Bootstraps").
		Description("Anonymous session bootstraps per minute by result").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(rate(`+Sel("catscrape_session_bootstraps_total")+`[5m])) by (result) * 60`,
			"{{result}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
