// Package validate checks generated dashboards and rules: every PromQL
// expression must parse and reference only known metrics.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/catalog-scraper/tools/dashgen/rules"
)

// Series suffixes Prometheus derives from histogram and summary metrics.
var derivedSuffixes = []string{"_bucket", "_sum", "_count"}

// Result collects validation findings. Errors fail generation; warnings
// are advisory.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

type panel struct {
	Title   string  `json:"title"`
	Type    string  `json:"type"`
	Panels  []panel `json:"panels"`
	Targets []struct {
		Expr string `json:"expr"`
	} `json:"targets"`
}

// DashboardJSON validates an encoded Grafana dashboard, including panels
// nested in rows.
func DashboardJSON(data []byte, known map[string]bool) (*Result, error) {
	var dash struct {
		Panels []panel `json:"panels"`
	}
	if err := json.Unmarshal(data, &dash); err != nil {
		return nil, fmt.Errorf("decoding dashboard: %w", err)
	}

	res := &Result{}
	checkPanels(dash.Panels, known, res)
	return res, nil
}

func checkPanels(panels []panel, known map[string]bool, res *Result) {
	for i := range panels {
		p := &panels[i]
		if p.Type == "row" {
			checkPanels(p.Panels, known, res)
			continue
		}
		if len(p.Targets) == 0 {
			res.warnf("panel %q has no targets", p.Title)
		}
		for _, t := range p.Targets {
			Expr(t.Expr, known, "panel "+p.Title, res)
		}
	}
}

// Rules validates every expression in a PrometheusRule resource. Recorded
// series must themselves be known so dashboards can reference them.
func Rules(cr rules.PrometheusRule, known map[string]bool) *Result {
	res := &Result{}
	for _, g := range cr.Spec.Groups {
		for _, r := range g.Rules {
			name := r.Record
			if name == "" {
				name = r.Alert
			}
			if r.Record != "" && !known[r.Record] {
				res.errorf("recording rule %s is not a known metric", r.Record)
			}
			Expr(r.Expr, known, "rule "+name, res)
		}
	}
	return res
}

// Expr parses one PromQL expression and checks the metrics it selects.
func Expr(expr string, known map[string]bool, where string, res *Result) {
	if strings.TrimSpace(expr) == "" {
		res.errorf("%s: empty expression", where)
		return
	}

	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.errorf("%s: %v", where, err)
		return
	}

	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok || vs.Name == "" {
			return nil
		}
		if !knownMetric(vs.Name, known) {
			res.errorf("%s: unknown metric %s", where, vs.Name)
		}
		return nil
	})
}

func knownMetric(name string, known map[string]bool) bool {
	if known[name] {
		return true
	}
	for _, suffix := range derivedSuffixes {
		if base, ok := strings.CutSuffix(name, suffix); ok && known[base] {
			return true
		}
	}
	return false
}
