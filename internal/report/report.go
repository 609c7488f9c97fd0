// Package report renders run results for terminals and files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/newthinker/swingsim/internal/backtest"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/newthinker/swingsim/internal/signal"
	"gopkg.in/yaml.v3"
)

// Format selects an output rendering.
type Format string

const (
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatCSV     Format = "csv"     // closed trades only
	FormatSignals Format = "signals" // rows carrying a buy or sell
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatYAML, FormatCSV, FormatSignals}
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", core.Errorf(core.ErrConfigInvalid, "unknown output format %q", s)
}

// Write renders res in the given format. The portfolio series is only
// included in JSON and YAML when withPortfolio is set.
func Write(w io.Writer, res *pipeline.Result, f Format, withPortfolio bool) error {
	switch f {
	case FormatTable, "":
		return Table(w, res.Document(false))
	case FormatJSON:
		return JSON(w, res.Document(withPortfolio))
	case FormatYAML:
		return YAML(w, res.Document(withPortfolio))
	case FormatCSV:
		return TradesCSV(w, res.Trades())
	case FormatSignals:
		return SignalRows(w, res.SignalRows())
	default:
		return core.Errorf(core.ErrConfigInvalid, "unknown output format %q", f)
	}
}

// JSON writes doc as indented JSON.
func JSON(w io.Writer, doc pipeline.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// YAML writes doc as YAML.
func YAML(w io.Writer, doc pipeline.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// Table writes a human-readable summary followed by the trade list.
func Table(w io.Writer, doc pipeline.Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	r := doc.Report
	p := doc.Params

	fmt.Fprintln(tw, "=== SwingSim Backtest ===")
	fmt.Fprintf(tw, "Run:\t%s\n", doc.ID)
	fmt.Fprintf(tw, "Pair:\t%s\n", doc.Pair)
	fmt.Fprintf(tw, "Interval:\t%s\n", intervalLabel(doc.Interval))
	fmt.Fprintf(tw, "Provider:\t%s\n", doc.Provider)
	fmt.Fprintf(tw, "Parameters:\tbands %d/%g  rsi %d  thresholds %g/%g\n",
		p.BandWindow, p.BandWidth, p.RSIPeriod, p.Oversold, p.Overbought)
	fmt.Fprintf(tw, "Bars:\t%d (%d evaluated)\n", doc.Bars, doc.Rows)
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "Initial capital:\t%s\n", money(r.InitialCapital))
	fmt.Fprintf(tw, "Final capital:\t%s\n", money(r.FinalCapital))
	fmt.Fprintf(tw, "Total profit:\t%s\n", money(r.TotalProfit))
	fmt.Fprintf(tw, "Annual return:\t%.2f%%\n", r.AnnualReturnPct)
	fmt.Fprintf(tw, "Max drawdown:\t%.2f%%\n", r.MaxDrawdownPct)
	fmt.Fprintf(tw, "Sharpe ratio:\t%.3f\n", r.SharpeRatio)
	fmt.Fprintf(tw, "Trades:\t%d (%d won, %d lost, %.1f%% win rate)\n",
		r.TotalTrades, r.WinningTrades, r.LosingTrades, r.WinRate)
	if doc.OpenPosition {
		fmt.Fprintln(tw, "Position:\topen at end of series, not counted")
	}

	if len(doc.Trades) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ENTRY\tEXIT\tBUY\tSELL\tPROFIT")
		for _, t := range doc.Trades {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				stamp(t.EntryTime), stamp(t.ExitTime),
				price(t.EntryPrice), price(t.ExitPrice), money(t.Profit))
		}
	}
	return tw.Flush()
}

// TradesCSV writes one line per closed trade with a header row.
func TradesCSV(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"entry_time", "exit_time", "entry_price", "exit_price", "profit"}); err != nil {
		return err
	}
	for _, t := range trades {
		err := cw.Write([]string{
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			price(t.EntryPrice),
			price(t.ExitPrice),
			price(t.Profit),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SignalRows writes the bars carrying a buy or sell with their indicators.
func SignalRows(w io.Writer, rows signal.Frame) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCLOSE\tLOWER\tUPPER\tRSI\tBUY\tSELL")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			stamp(r.Time), price(r.Close),
			round(r.LowerBand.Float, r.LowerBand.Valid),
			round(r.UpperBand.Float, r.UpperBand.Valid),
			round(r.RSI.Float, r.RSI.Valid),
			r.Buy, r.Sell)
	}
	return tw.Flush()
}

func intervalLabel(minutes int) string {
	if iv, err := core.ParseInterval(minutes); err == nil {
		return iv.String()
	}
	return strconv.Itoa(minutes) + "m"
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

func price(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func money(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func round(f float64, ok bool) string {
	if !ok {
		return "-"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
