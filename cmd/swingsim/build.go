package main

import (
	"errors"
	"fmt"

	"github.com/newthinker/swingsim/internal/alert"
	"github.com/newthinker/swingsim/internal/app"
	"github.com/newthinker/swingsim/internal/collector"
	collectorfactory "github.com/newthinker/swingsim/internal/collector/factory"
	commentaryfactory "github.com/newthinker/swingsim/internal/commentary/factory"
	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/metrics"
	"github.com/newthinker/swingsim/internal/notifier"
	"github.com/newthinker/swingsim/internal/notifier/webhook"
	"github.com/newthinker/swingsim/internal/storage/archive"
	"github.com/newthinker/swingsim/internal/storage/history"
	"go.uber.org/zap"
)

// runtime bundles the wired application and what must be closed after it.
type runtime struct {
	app     *app.App
	metrics *metrics.Registry
	history history.Store
}

func (r *runtime) Close() error {
	return r.history.Close()
}

// buildRuntime wires the provider chain, storage, commentary and
// notifiers described by cfg into an App.
func buildRuntime(cfg *config.Config, log *zap.Logger) (*runtime, error) {
	var reg *metrics.Registry
	var rec collector.Recorder
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		rec = reg
	}

	provider, err := collectorfactory.New(cfg.Provider, rec)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	store, err := history.Open(cfg.Storage.History)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithHistory(store),
		app.WithMetrics(reg),
	}

	arch, err := archive.New(cfg.Storage.Archive)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating archive: %w", err), store.Close())
	}
	if arch != nil {
		opts = append(opts, app.WithArchive(arch))
	}

	narrator, err := commentaryfactory.New(cfg.Commentary)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating commentary: %w", err), store.Close())
	}
	if narrator != nil {
		opts = append(opts, app.WithCommentator(narrator))
	}

	if len(cfg.Alerts.Rules) > 0 {
		evaluator, err := alert.NewEvaluator(cfg.Alerts.Rules, cfg.Alerts.Cooldown)
		if err != nil {
			return nil, errors.Join(err, store.Close())
		}
		opts = append(opts, app.WithAlerts(evaluator))
	}

	notifiers := notifier.NewRegistry()
	if hook := webhook.FromConfig(cfg.Notifier); hook != nil {
		if err := notifiers.Register(hook); err != nil {
			return nil, errors.Join(err, store.Close())
		}
	}
	opts = append(opts, app.WithNotifiers(notifiers))

	log.Debug("runtime wired",
		zap.String("provider", provider.Name()),
		zap.String("history", cfg.Storage.History.Type),
		zap.String("archive", cfg.Storage.Archive.Type),
		zap.String("commentary", cfg.Commentary.Provider),
		zap.Strings("notifiers", notifiers.Names()),
	)

	return &runtime{
		app:     app.New(cfg, provider, opts...),
		metrics: reg,
		history: store,
	}, nil
}
