package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/catalog-scraper/tools/dashgen/rules"
	"github.com/donaldgifford/catalog-scraper/tools/dashgen/validate"
)

var known = map[string]bool{
	"catscrape_runs_total":           true,
	"catscrape_run_duration_seconds": true,
	"catscrape:runs_failed:rate5m":   true,
}

func TestExpr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "counter rate", expr: `sum(rate(catscrape_runs_total[5m])) by (stop_reason)`},
		{name: "histogram bucket", expr: `histogram_quantile(0.95, sum(rate(catscrape_run_duration_seconds_bucket[5m])) by (le))`},
		{name: "recording rule", expr: `catscrape:runs_failed:rate5m > 0`},
		{name: "unknown metric", expr: `rate(catscrape_nope_total[5m])`, wantErr: true},
		{name: "unknown suffix base", expr: `catscrape_nope_bucket`, wantErr: true},
		{name: "syntax error", expr: `sum(rate(catscrape_runs_total[5m])`, wantErr: true},
		{name: "empty", expr: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := &validate.Result{}
			validate.Expr(tt.expr, known, "test", res)
			assert.Equal(t, !tt.wantErr, res.Ok(), "errors: %v", res.Errors)
		})
	}
}

func TestDashboardJSON(t *testing.T) {
	t.Parallel()

	data := []byte(`{"panels":[
		{"type":"row","title":"Runs","panels":[
			{"type":"timeseries","title":"Runs","targets":[{"expr":"rate(catscrape_runs_total[5m])"}]},
			{"type":"stat","title":"Broken","targets":[{"expr":"catscrape_missing"}]},
			{"type":"text","title":"Notes"}
		]}
	]}`)

	res, err := validate.DashboardJSON(data, known)
	require.NoError(t, err)
	assert.False(t, res.Ok())
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "catscrape_missing")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Notes")
}

func TestDashboardJSON_Invalid(t *testing.T) {
	t.Parallel()

	_, err := validate.DashboardJSON([]byte("{"), known)
	require.Error(t, err)
}

func TestRules(t *testing.T) {
	t.Parallel()

	cr := rules.PrometheusRule{
		Spec: rules.PrometheusRuleSpec{
			Groups: []rules.RuleGroup{{
				Name: "g",
				Rules: []rules.Rule{
					{Record: "catscrape:runs_failed:rate5m", Expr: `rate(catscrape_runs_total{stop_reason="error"}[5m])`},
					{Record: "catscrape:unlisted:rate5m", Expr: `rate(catscrape_runs_total[5m])`},
					{Alert: "Bad", Expr: `rate(`},
				},
			}},
		},
	}

	res := validate.Rules(cr, known)
	assert.Len(t, res.Errors, 2)
}
