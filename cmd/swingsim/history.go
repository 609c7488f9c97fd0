package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/newthinker/swingsim/internal/report"
	"github.com/newthinker/swingsim/internal/storage/archive"
	"github.com/newthinker/swingsim/internal/storage/history"
	"github.com/spf13/cobra"
)

var (
	historyPair   string
	historyLimit  int
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past backtest runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one run; the archived document is used when available",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func init() {
	historyListCmd.Flags().StringVar(&historyPair, "pair", "", "only runs for this pair")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
	historyShowCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "output format (table, json, yaml)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.Storage.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	filter := history.ListFilter{Limit: historyLimit}
	if historyPair != "" {
		filter.Pair = core.NormalizePair(historyPair)
	}
	records, err := store.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tPAIR\tINTERVAL\tTRADES\tFINAL CAPITAL\tOPEN")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\t%t\n",
			rec.ID,
			rec.StartedAt.UTC().Format(time.RFC3339),
			rec.Pair,
			core.Interval(rec.Interval),
			rec.Report.TotalTrades,
			rec.Report.FinalCapital,
			rec.OpenPosition,
		)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	format, err := report.ParseFormat(historyOutput)
	if err != nil {
		return err
	}
	if format != report.FormatTable && format != report.FormatJSON && format != report.FormatYAML {
		return core.Errorf(core.ErrConfigInvalid, "history show supports table, json and yaml, not %q", format)
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.Storage.History)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	rec, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}

	arch, err := archive.New(cfg.Storage.Archive)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if arch == nil {
		if format != report.FormatJSON {
			log.Warn("no archive configured, showing the stored summary as json")
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	doc, err := archive.LoadResult(ctx, arch, archive.ResultPath(pipeline.Document{ID: rec.ID, Pair: rec.Pair, StartedAt: rec.StartedAt}))
	if err != nil {
		return err
	}
	switch format {
	case report.FormatJSON:
		return report.JSON(out, *doc)
	case report.FormatYAML:
		return report.YAML(out, *doc)
	default:
		return report.Table(out, *doc)
	}
}
