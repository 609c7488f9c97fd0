package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/newthinker/swingsim/internal/app"
	"github.com/newthinker/swingsim/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	btInterval   int
	btOversold   float64
	btOverbought float64
	btCapital    float64
	btSince      string
	btWindow     int
	btWidth      float64
	btRSIPeriod  int
	btOutput     string
	btPortfolio  bool
	btOutFile    string
	btNotify     bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [pair]",
	Short: "Run a backtest on one pair",
	Long: `Fetch the price series for a pair, compute the indicators, and
simulate the long-only swing strategy. Flags override the config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBacktest,
}

func init() {
	f := backtestCmd.Flags()
	f.IntVar(&btInterval, "interval", 0, "bar interval in minutes")
	f.Float64Var(&btOversold, "oversold", 0, "RSI oversold threshold")
	f.Float64Var(&btOverbought, "overbought", 0, "RSI overbought threshold")
	f.Float64Var(&btCapital, "capital", 0, "initial capital")
	f.StringVar(&btSince, "since", "", "first bar, YYYY-MM-DD or unix seconds")
	f.IntVar(&btWindow, "band-window", 0, "Bollinger band window")
	f.Float64Var(&btWidth, "band-width", 0, "Bollinger band width in standard deviations")
	f.IntVar(&btRSIPeriod, "rsi-period", 0, "RSI period")
	f.StringVarP(&btOutput, "output", "o", "table", "output format ("+formatNames()+")")
	f.BoolVar(&btPortfolio, "portfolio", false, "include the portfolio series in json/yaml output")
	f.StringVar(&btOutFile, "out", "", "write the report to a file instead of stdout")
	f.BoolVar(&btNotify, "notify", false, "send the summary to the configured notifiers")

	rootCmd.AddCommand(backtestCmd)
}

func formatNames() string {
	names := make([]string, 0, len(report.Formats()))
	for _, f := range report.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	format, err := report.ParseFormat(btOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	pair := ""
	if len(args) == 1 {
		pair = args[0]
	}
	run := rt.app.RunConfig(pair)
	ind := cfg.Indicator

	flags := cmd.Flags()
	if flags.Changed("interval") {
		run.Interval = btInterval
	}
	if flags.Changed("oversold") {
		run.Oversold = btOversold
	}
	if flags.Changed("overbought") {
		run.Overbought = btOverbought
	}
	if flags.Changed("capital") {
		run.InitialCapital = btCapital
	}
	if flags.Changed("since") {
		if run.Since, err = parseSince(btSince); err != nil {
			return err
		}
	}
	if flags.Changed("band-window") {
		ind.BandWindow = btWindow
	}
	if flags.Changed("band-width") {
		ind.BandWidth = btWidth
	}
	if flags.Changed("rsi-period") {
		ind.RSIPeriod = btRSIPeriod
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := rt.app.Backtest(ctx, run, ind)
	if err != nil {
		return err
	}
	for _, w := range out.Warnings {
		log.Warn("backtest completed with warning", zap.String("warning", w))
	}

	var dst io.Writer = cmd.OutOrStdout()
	if btOutFile != "" {
		f, err := os.Create(btOutFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		dst = f
	}

	if err := report.Write(dst, out.Result, format, btPortfolio); err != nil {
		return err
	}
	if out.Commentary != "" && format == report.FormatTable {
		fmt.Fprintf(dst, "\n%s\n", out.Commentary)
	}
	if out.ArchivePath != "" {
		log.Info("result archived", zap.String("path", out.ArchivePath))
	}

	if btNotify {
		rt.app.Notify(ctx, []*app.Outcome{out})
	}
	return nil
}

// parseSince accepts a date (YYYY-MM-DD, RFC3339) or unix seconds.
func parseSince(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Unix(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Unix(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs >= 0 {
		return secs, nil
	}
	return 0, fmt.Errorf("invalid --since %q (expected YYYY-MM-DD or unix seconds)", s)
}
