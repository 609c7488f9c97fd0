package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newthinker/swingsim/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchCron  string
	watchPairs []string
	watchNow   bool
	watchOnce  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the watchlist on a cron schedule",
	Long: `Backtest every watchlist pair on the configured cron schedule and
send the results to the configured notifiers. The schedule uses six
fields, seconds first.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchCron, "cron", "", "cron spec, overrides schedule.cron")
	f.StringSliceVar(&watchPairs, "pairs", nil, "watchlist, overrides schedule.pairs")
	f.BoolVar(&watchNow, "now", false, "run one pass immediately on start")
	f.BoolVar(&watchOnce, "once", false, "run one pass and exit")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if watchCron != "" {
		cfg.Schedule.Cron = watchCron
	}

	rt, err := buildRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	if len(watchPairs) > 0 {
		if err := rt.app.SetWatchlist(watchPairs); err != nil {
			return err
		}
	}
	if len(rt.app.Watchlist()) == 0 {
		return fmt.Errorf("watchlist is empty: set schedule.pairs or --pairs")
	}

	sched, err := scheduler.New(cfg.Schedule.Cron, rt.app, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchNow || watchOnce {
		_, failed := sched.RunNow(ctx)
		if watchOnce {
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d pairs failed", len(failed), len(rt.app.Watchlist()))
			}
			return nil
		}
	}

	sched.Start(ctx)
	log.Info("watching", zap.Strings("pairs", rt.app.Watchlist()), zap.Time("next", sched.Next()))
	<-ctx.Done()
	sched.Stop()
	return nil
}
