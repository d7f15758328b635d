package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ItemsRate returns a timeseries panel showing items saved per minute.
func ItemsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Items / min").
		Description("Items handed to the sink per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`catscrape:items_saved:rate5m * 60`, "items/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ItemsSkipped returns a timeseries panel showing items dropped per minute
// by reason.
func ItemsSkipped() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Skipped Items / min").
		Description("Items not saved per minute, by reason").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(rate(`+Sel("catscrape_items_skipped_total")+`[5m])) by (reason) * 60`,
			"{{reason}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// SinkErrors returns a stat panel showing failed sink pushes in the past
// 24 hours.
func SinkErrors() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Sink Errors (24h)").
		Description("Failed item writes in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`increase(`+Sel("catscrape_sink_errors_total")+`[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
