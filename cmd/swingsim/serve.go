package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/swingsim/internal/api"
	"github.com/newthinker/swingsim/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveSchedule bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SwingSim API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveSchedule, "schedule", false, "also re-run the watchlist on the configured cron schedule")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		APIKey:      cfg.Server.APIKey,
		MetricsPath: metricsPath,
		JobTTL:      time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		MaxJobs:     cfg.Server.MaxJobs,
	}, api.Dependencies{App: rt.app, Metrics: rt.metrics}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if cfg.Server.APIKey == "" {
		log.Warn("api key not set, the API is unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if serveSchedule {
		sched, err = scheduler.New(cfg.Schedule.Cron, rt.app, log)
		if err != nil {
			return err
		}
		sched.Start(ctx)
	}

	log.Info("starting SwingSim server", zap.String("addr", server.Addr()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
	}

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}
