package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "catscrape-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "catscrape-recording",
					Rules: []Rule{
						{
							Record: "catscrape:http_requests:rate5m",
							Expr:   `sum(rate(catscrape_http_requests_total[5m]))`,
						},
						{
							Record: "catscrape:http_errors:rate5m",
							Expr:   `sum(rate(catscrape_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "catscrape:items_saved:rate5m",
							Expr:   `rate(catscrape_items_saved_total[5m])`,
						},
						{
							Record: "catscrape:page_attempts:rate5m",
							Expr:   `sum(rate(catscrape_page_attempts_total[5m]))`,
						},
						{
							Record: "catscrape:page_failures:rate5m",
							Expr:   `sum(rate(catscrape_page_attempts_total{outcome!="success"}[5m]))`,
						},
						{
							Record: "catscrape:runs_failed:rate5m",
							Expr:   `sum(rate(catscrape_runs_total{stop_reason="error"}[5m]))`,
						},
					},
				},
			},
		},
	}
}
