// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/catalog-scraper/tools/dashgen/panels"
)

// BuildOverview constructs the catalog-scraper overview dashboard with all
// metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Catalog Scraper Overview").
		Uid("catscrape-overview").
		Tags([]string{"catscrape", "catalog-scraper"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	// Row 1: Overview.
	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.BudgetStat()).
		WithPanel(panels.UptimeStat()))

	// Row 2: HTTP.
	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	// Row 3: Catalog fetching.
	b.WithRow(dashboard.NewRowBuilder("Catalog").
		WithPanel(panels.AttemptsByOutcome()).
		WithPanel(panels.PagesRate()).
		WithPanel(panels.BackoffDelay()).
		WithPanel(panels.SessionBootstraps()))

	// Row 4: Items.
	b.WithRow(dashboard.NewRowBuilder("Items").
		WithPanel(panels.ItemsRate()).
		WithPanel(panels.ItemsSkipped()).
		WithPanel(panels.SinkErrors()))

	// Row 5: Runs and scheduling.
	b.WithRow(dashboard.NewRowBuilder("Runs").
		WithPanel(panels.RunsByStopReason()).
		WithPanel(panels.RunDuration()).
		WithPanel(panels.NextRun()).
		WithPanel(panels.SchedulerSkips()))

	// Row 6: Notifications.
	b.WithRow(dashboard.NewRowBuilder("Notifications").
		WithPanel(panels.NotificationLatency()).
		WithPanel(panels.NotificationFailures()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
