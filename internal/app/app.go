// Package app wires a price provider, the backtest pipeline and the run
// sinks (history, archive, commentary, notifiers) into one service used by
// the CLI, the HTTP API and the scheduler.
package app

import (
	"context"
	"sync"

	"github.com/newthinker/swingsim/internal/alert"
	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/commentary"
	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/logger"
	"github.com/newthinker/swingsim/internal/metrics"
	"github.com/newthinker/swingsim/internal/notifier"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/newthinker/swingsim/internal/storage/archive"
	"github.com/newthinker/swingsim/internal/storage/history"
	"go.uber.org/zap"
)

// Outcome is a completed run plus what happened to it afterwards.
// Warnings collect failures of the optional sinks; they never fail the run.
type Outcome struct {
	Result      *pipeline.Result
	ArchivePath string
	Commentary  string
	Alerts      []alert.Alert
	Warnings    []string
}

// Summary returns the notification payload for the outcome.
func (o *Outcome) Summary() notifier.Summary {
	s := notifier.NewSummary(o.Result)
	s.Commentary = o.Commentary
	s.ArchivePath = o.ArchivePath
	for _, al := range o.Alerts {
		s.Alerts = append(s.Alerts, al.Message)
	}
	return s
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(a *App) { a.logger = logger.OrNop(log) }
}

// WithHistory saves a summary of every run to store.
func WithHistory(store history.Store) Option {
	return func(a *App) { a.history = store }
}

// WithArchive writes the full document of every run to st.
func WithArchive(st archive.Storage) Option {
	return func(a *App) { a.archive = st }
}

// WithCommentator asks c for a narrative of every run.
func WithCommentator(c commentary.Commentator) Option {
	return func(a *App) { a.commentator = c }
}

// WithAlerts checks the report of every run against the rules of e.
func WithAlerts(e *alert.Evaluator) Option {
	return func(a *App) { a.alerts = e }
}

// WithNotifiers sets the notifiers used by Notify.
func WithNotifiers(r *notifier.Registry) Option {
	return func(a *App) {
		if r != nil {
			a.notifiers = r
		}
	}
}

// WithMetrics reports runs and watchlist size to reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *App) { a.metrics = reg }
}

// App is the main application orchestrator
type App struct {
	cfg         *config.Config
	logger      *zap.Logger
	provider    collector.Provider
	history     history.Store
	archive     archive.Storage
	commentator commentary.Commentator
	notifiers   *notifier.Registry
	alerts      *alert.Evaluator
	metrics     *metrics.Registry

	mu           sync.RWMutex
	watchlist    []string
	watchlistSet map[string]struct{}
}

// New creates a new App instance. The watchlist starts as the configured
// schedule pairs.
func New(cfg *config.Config, provider collector.Provider, opts ...Option) *App {
	a := &App{
		cfg:          cfg,
		logger:       zap.NewNop(),
		provider:     provider,
		notifiers:    notifier.NewRegistry(),
		watchlistSet: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.SetWatchlist(cfg.Schedule.Pairs); err != nil {
		a.logger.Warn("ignoring invalid watchlist", zap.Error(err))
	}
	return a
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Provider returns the price provider.
func (a *App) Provider() collector.Provider {
	return a.provider
}

// History returns the run history store, or nil.
func (a *App) History() history.Store {
	return a.history
}

// Archive returns the archive storage, or nil.
func (a *App) Archive() archive.Storage {
	return a.archive
}

// RunConfig returns the configured run settings for pair.
func (a *App) RunConfig(pair string) config.RunConfig {
	run := a.cfg.Run
	if pair != "" {
		run.Pair = pair
	}
	return run
}

// Backtest runs one backtest and hands the result to the configured sinks.
func (a *App) Backtest(ctx context.Context, run config.RunConfig, ind config.IndicatorConfig) (*Outcome, error) {
	opts := []pipeline.Option{pipeline.WithLogger(a.logger)}
	if a.metrics != nil {
		opts = append(opts, pipeline.WithMetrics(a.metrics))
	}

	p, err := pipeline.New(run, ind, a.provider, opts...)
	if err != nil {
		return nil, err
	}
	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Result: res}
	a.persist(ctx, out)
	if a.alerts != nil {
		out.Alerts = a.alerts.Check(res.Pair, alert.Metrics(res.Report, res.OpenPosition))
		for _, al := range out.Alerts {
			logger.ForRun(a.logger, res.ID, res.Pair).Info("alert fired", zap.String("rule", al.Rule))
		}
	}
	return out, nil
}

func (a *App) persist(ctx context.Context, out *Outcome) {
	res := out.Result
	log := logger.ForRun(a.logger, res.ID, res.Pair)

	if a.history != nil {
		if err := a.history.Save(ctx, history.NewRecord(res)); err != nil {
			log.Warn("saving run history failed", zap.Error(err))
			out.Warnings = append(out.Warnings, err.Error())
		}
	}

	if a.archive != nil {
		path, err := archive.SaveResult(ctx, a.archive, res)
		if err != nil {
			log.Warn("archiving run failed", zap.Error(err))
			out.Warnings = append(out.Warnings, err.Error())
		} else {
			out.ArchivePath = path
			log.Debug("run archived", zap.String("path", path))
		}
	}

	if a.commentator != nil {
		text, err := a.commentator.Comment(ctx, res)
		if err != nil {
			log.Warn("commentary failed", zap.Error(err))
			out.Warnings = append(out.Warnings, err.Error())
		} else {
			out.Commentary = text
		}
	}
}

// Notify posts the outcomes to every registered notifier. One outcome is
// sent on its own, several as a batch. Failures are logged and returned.
func (a *App) Notify(ctx context.Context, outcomes []*Outcome) map[string]error {
	if a.notifiers == nil || a.notifiers.Len() == 0 || len(outcomes) == 0 {
		return nil
	}

	var errs map[string]error
	if len(outcomes) == 1 {
		errs = a.notifiers.NotifyAll(ctx, outcomes[0].Summary())
	} else {
		batch := make([]notifier.Summary, len(outcomes))
		for i, o := range outcomes {
			batch[i] = o.Summary()
		}
		errs = a.notifiers.NotifyAllBatch(ctx, batch)
	}

	for name, err := range errs {
		a.logger.Warn("notification failed", zap.String("notifier", name), zap.Error(err))
	}
	return errs
}

// RunWatchlist backtests every watchlist pair with the configured settings,
// then notifies once for all successful runs. A failing pair is logged and
// reported in failed; it never stops the pass. Cancelling ctx does.
func (a *App) RunWatchlist(ctx context.Context) (outcomes []*Outcome, failed map[string]error) {
	pairs := a.Watchlist()
	failed = make(map[string]error)
	if len(pairs) == 0 {
		a.logger.Debug("watchlist is empty")
		return nil, failed
	}

	a.logger.Info("watchlist pass starting", zap.Int("pairs", len(pairs)))
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			failed[pair] = err
			continue
		}

		out, err := a.Backtest(ctx, a.RunConfig(pair), a.cfg.Indicator)
		if err != nil {
			a.logger.Error("watchlist run failed", zap.String("pair", pair), zap.Error(err))
			failed[pair] = err
			continue
		}
		outcomes = append(outcomes, out)
	}

	a.Notify(ctx, outcomes)
	a.logger.Info("watchlist pass complete",
		zap.Int("succeeded", len(outcomes)),
		zap.Int("failed", len(failed)),
	)
	return outcomes, failed
}

// Pairs lists the pairs offered by the provider.
func (a *App) Pairs(ctx context.Context) ([]string, error) {
	return a.provider.Pairs(ctx)
}

// SetWatchlist replaces the watchlist. Pairs are normalized and
// de-duplicated; invalid pairs are rejected as a whole.
func (a *App) SetWatchlist(pairs []string) error {
	items := make([]string, 0, len(pairs))
	set := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		if err := core.ValidatePair(p); err != nil {
			return err
		}
		p = core.NormalizePair(p)
		if _, dup := set[p]; dup {
			continue
		}
		set[p] = struct{}{}
		items = append(items, p)
	}

	a.mu.Lock()
	a.watchlist = items
	a.watchlistSet = set
	a.mu.Unlock()
	a.reportWatchlist()
	return nil
}

// Watchlist returns the current watchlist pairs.
func (a *App) Watchlist() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result := make([]string, len(a.watchlist))
	copy(result, a.watchlist)
	return result
}

// AddToWatchlist adds a pair to the watchlist. It reports false when the
// pair was already present.
func (a *App) AddToWatchlist(pair string) (bool, error) {
	if err := core.ValidatePair(pair); err != nil {
		return false, err
	}
	pair = core.NormalizePair(pair)

	a.mu.Lock()
	if _, exists := a.watchlistSet[pair]; exists {
		a.mu.Unlock()
		return false, nil
	}
	a.watchlistSet[pair] = struct{}{}
	a.watchlist = append(a.watchlist, pair)
	a.mu.Unlock()

	a.reportWatchlist()
	return true, nil
}

// RemoveFromWatchlist removes a pair from the watchlist.
func (a *App) RemoveFromWatchlist(pair string) bool {
	pair = core.NormalizePair(pair)

	a.mu.Lock()
	if _, exists := a.watchlistSet[pair]; !exists {
		a.mu.Unlock()
		return false
	}
	delete(a.watchlistSet, pair)
	for i, p := range a.watchlist {
		if p == pair {
			a.watchlist = append(a.watchlist[:i], a.watchlist[i+1:]...)
			break
		}
	}
	a.mu.Unlock()

	a.reportWatchlist()
	return true
}

func (a *App) reportWatchlist() {
	if a.metrics == nil {
		return
	}
	a.mu.RLock()
	n := len(a.watchlist)
	a.mu.RUnlock()
	a.metrics.SetWatchlistSize(n)
}

// Stats returns application statistics
func (a *App) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"provider":   a.provider.Name(),
		"watchlist":  len(a.watchlist),
		"history":    a.history != nil,
		"archive":    a.archive != nil,
		"commentary": a.commentator != nil,
		"notifiers":  a.notifiers.Names(),
		"alerts":     a.alertRules(),
	}
}

func (a *App) alertRules() int {
	if a.alerts == nil {
		return 0
	}
	return len(a.alerts.Rules())
}
