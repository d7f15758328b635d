package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// catalog-scraper operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "catscrape-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "catscrape-alerts",
					Rules: []Rule{
						{
							Alert: "CatscrapeDown",
							Expr:  `absent(up{job="catalog-scraper"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Catalog scraper is down",
								"description": "The catalog-scraper job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "CatscrapeReadinessDown",
							Expr:  `catscrape_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Catalog scraper readiness check is failing",
								"description": "The readiness probe has been reporting not-ready for more than 2 minutes.",
							},
						},
						{
							Alert: "CatscrapeHighErrorRate",
							Expr:  `catscrape:http_errors:rate5m / catscrape:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on the catalog scraper API",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "CatscrapePageFailures",
							Expr:  `catscrape:page_failures:rate5m / catscrape:page_attempts:rate5m > 0.5`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Most catalog page attempts are failing",
								"description": "Over half of catalog page attempts have needed a retry or failed for 10 minutes. The site may be blocking the scraper.",
							},
						},
						{
							Alert: "CatscrapeRunsFailing",
							Expr:  `catscrape:runs_failed:rate5m > 0`,
							For:   "15m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Scrape runs are ending in error",
								"description": "At least one scrape run has stopped with an error in each of the last 15 minutes.",
							},
						},
						{
							Alert: "CatscrapeSinkErrors",
							Expr:  `increase(catscrape_sink_errors_total[5m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Items could not be written",
								"description": "The item sink rejected a page of results. Check database and output file health.",
							},
						},
						{
							Alert: "CatscrapeNotificationFailures",
							Expr:  `increase(catscrape_notification_failures_total[5m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Notification delivery failures detected",
								"description": "One or more run summary notifications (Discord webhooks) have failed to send.",
							},
						},
					},
				},
			},
		},
	}
}
