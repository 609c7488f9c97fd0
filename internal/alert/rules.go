// Package alert raises rule-based alerts on the metrics of completed runs.
package alert

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/newthinker/swingsim/internal/backtest"
	"github.com/newthinker/swingsim/internal/core"
)

// Rule defines an alert rule. Expr has the form "metric op value", for
// example "max_drawdown_pct > 20".
type Rule struct {
	Name     string `mapstructure:"name"`
	Expr     string `mapstructure:"expr"`
	For      int    `mapstructure:"for"` // consecutive runs the condition must hold; 0 or 1 fires at once
	Severity string `mapstructure:"severity"`
	Message  string `mapstructure:"message"`
}

var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

type condition struct {
	metric    string
	op        string
	threshold float64
}

func (r Rule) parse() (condition, error) {
	m := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(m) != 4 {
		return condition{}, core.Errorf(core.ErrConfigInvalid, "alert %q: cannot parse expression %q", r.Name, r.Expr)
	}
	threshold, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return condition{}, core.Errorf(core.ErrConfigInvalid, "alert %q: bad threshold %q", r.Name, m[3])
	}
	return condition{metric: m[1], op: m[2], threshold: threshold}, nil
}

// Validate checks the rule name, expression and metric name.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return core.Errorf(core.ErrConfigInvalid, "alert rule needs a name")
	}
	c, err := r.parse()
	if err != nil {
		return err
	}
	if !isMetric(c.metric) {
		return core.Errorf(core.ErrConfigInvalid, "alert %q: unknown metric %q (known: %s)",
			r.Name, c.metric, strings.Join(MetricNames(), ", "))
	}
	if r.For < 0 {
		return core.Errorf(core.ErrConfigInvalid, "alert %q: for must not be negative", r.Name)
	}
	return nil
}

// Evaluate reports whether the rule holds for metrics. A rule naming a
// missing metric, or with an unparsable expression, never holds.
func (r Rule) Evaluate(metrics map[string]float64) bool {
	c, err := r.parse()
	if err != nil {
		return false
	}
	value, ok := metrics[c.metric]
	if !ok {
		return false
	}

	switch c.op {
	case ">":
		return value > c.threshold
	case "<":
		return value < c.threshold
	case ">=":
		return value >= c.threshold
	case "<=":
		return value <= c.threshold
	case "==":
		return value == c.threshold
	case "!=":
		return value != c.threshold
	default:
		return false
	}
}

// FormatMessage renders the alert line for pair, quoting the metric value.
func (r Rule) FormatMessage(pair string, metrics map[string]float64) string {
	severity := r.Severity
	if severity == "" {
		severity = "warning"
	}
	msg := fmt.Sprintf("[%s] %s %s: %s", strings.ToUpper(severity), r.Name, pair, r.Message)
	if c, err := r.parse(); err == nil {
		if v, ok := metrics[c.metric]; ok {
			msg += fmt.Sprintf(" (%s=%.2f)", c.metric, v)
		}
	}
	return msg
}

// Metrics flattens a run report into the values rules can reference.
func Metrics(rep backtest.Report, openPosition bool) map[string]float64 {
	open := 0.0
	if openPosition {
		open = 1
	}
	returnPct := 0.0
	if rep.InitialCapital > 0 {
		returnPct = (rep.FinalCapital - rep.InitialCapital) / rep.InitialCapital * 100
	}
	return map[string]float64{
		"initial_capital":   rep.InitialCapital,
		"final_capital":     rep.FinalCapital,
		"return_pct":        returnPct,
		"total_trades":      float64(rep.TotalTrades),
		"winning_trades":    float64(rep.WinningTrades),
		"losing_trades":     float64(rep.LosingTrades),
		"win_rate":          rep.WinRate,
		"total_profit":      rep.TotalProfit,
		"sharpe_ratio":      rep.SharpeRatio,
		"annual_return_pct": rep.AnnualReturnPct,
		"max_drawdown_pct":  rep.MaxDrawdownPct,
		"open_position":     open,
	}
}

// MetricNames lists the metric names rules may use.
func MetricNames() []string {
	m := Metrics(backtest.Report{}, false)
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func isMetric(name string) bool {
	_, ok := Metrics(backtest.Report{}, false)[name]
	return ok
}
