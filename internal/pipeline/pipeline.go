// Package pipeline runs a backtest end to end: fetch, indicators, signals,
// simulation and metrics.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/swingsim/internal/backtest"
	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/indicator"
	"github.com/newthinker/swingsim/internal/logger"
	"github.com/newthinker/swingsim/internal/signal"
	"go.uber.org/zap"
)

// Recorder receives run-level observations.
type Recorder interface {
	RecordRun(status string, duration float64)
	RecordSignals(action string, n int)
	RecordTrades(outcome string, n int)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger.OrNop(log)
	}
}

// WithMetrics reports every run to rec.
func WithMetrics(rec Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = rec
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// Pipeline is a validated run configuration bound to a price provider.
// A Pipeline holds no state between runs and may be run concurrently.
type Pipeline struct {
	run      config.RunConfig
	params   indicator.Params
	provider collector.Provider
	logger   *zap.Logger
	metrics  Recorder
	now      func() time.Time
}

// New validates the configuration and binds it to provider. Nothing is
// built when validation fails.
func New(run config.RunConfig, ind config.IndicatorConfig, provider collector.Provider, opts ...Option) (*Pipeline, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}
	if err := ind.Validate(); err != nil {
		return nil, err
	}
	params := run.Params(ind)
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "price provider required")
	}

	run.Pair = core.NormalizePair(run.Pair)
	p := &Pipeline{
		run:      run,
		params:   params,
		provider: provider,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the validated run configuration.
func (p *Pipeline) Config() config.RunConfig {
	return p.run
}

// Run fetches the configured series and runs it through every stage.
// ctx is observed before the provider call and between stages.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.now()
	id := uuid.NewString()
	log := logger.ForRun(p.logger, id, p.run.Pair)

	if err := ctx.Err(); err != nil {
		return nil, p.fail(log, started, err)
	}

	req := collector.Request{
		Pair:     p.run.Pair,
		Interval: p.run.IntervalValue(),
		Since:    p.run.SinceTime(),
	}
	log.Debug("fetching series",
		zap.String("provider", p.provider.Name()),
		zap.Stringer("interval", req.Interval),
	)
	bars, err := p.provider.FetchOHLC(ctx, req)
	if err != nil {
		if !errors.Is(err, core.ErrProvider) && ctx.Err() == nil {
			err = core.WrapError(core.ErrProvider, err)
		}
		return nil, p.fail(log, started, err)
	}

	res, err := p.process(ctx, log, id, started, bars)
	if err != nil {
		return nil, p.fail(log, started, err)
	}
	return res, nil
}

// RunSeries runs the stages on an already fetched series.
func (p *Pipeline) RunSeries(ctx context.Context, bars []core.PriceBar) (*Result, error) {
	started := p.now()
	id := uuid.NewString()
	log := logger.ForRun(p.logger, id, p.run.Pair)

	res, err := p.process(ctx, log, id, started, bars)
	if err != nil {
		return nil, p.fail(log, started, err)
	}
	return res, nil
}

func (p *Pipeline) process(ctx context.Context, log *zap.Logger, id string, started time.Time, bars []core.PriceBar) (*Result, error) {
	if len(bars) == 0 {
		return nil, core.Errorf(core.ErrInsufficientData, "price series is empty")
	}

	frame, err := indicator.Compute(bars, p.params)
	if err != nil {
		return nil, err
	}
	complete := frame.Complete()
	log.Debug("indicators computed",
		zap.Int("bars", len(bars)),
		zap.Int("rows", len(complete)),
		zap.Int("warmup", indicator.WarmupBars(p.params)),
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signals, err := signal.Generate(complete)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ledger, err := backtest.Simulate(signals, p.run.InitialCapital)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report, err := backtest.Calculate(ledger.Portfolio, ledger.Trades, p.run.InitialCapital)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:             id,
		Pair:           p.run.Pair,
		Interval:       p.run.IntervalValue(),
		Provider:       p.provider.Name(),
		StartedAt:      started,
		Duration:       p.now().Sub(started),
		Params:         p.params,
		InitialCapital: p.run.InitialCapital,
		Bars:           len(bars),
		OpenPosition:   ledger.OpenPosition,
		Report:         report,
		signals:        signals,
		portfolio:      ledger.Portfolio,
		trades:         ledger.Trades,
		positions:      ledger.Positions,
	}
	p.record(res)

	log.Info("run complete",
		zap.Int("rows", len(signals)),
		zap.Int("signals", len(res.Events())),
		zap.Int("trades", report.TotalTrades),
		zap.Float64("final_capital", report.FinalCapital),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) fail(log *zap.Logger, started time.Time, err error) error {
	if p.metrics != nil {
		p.metrics.RecordRun("error", p.now().Sub(started).Seconds())
	}
	log.Warn("run failed", zap.Error(err))
	return err
}

func (p *Pipeline) record(res *Result) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordRun("success", res.Duration.Seconds())

	var buys, sells int
	for _, e := range res.Events() {
		if e.Side == signal.SideBuy {
			buys++
		} else {
			sells++
		}
	}
	p.metrics.RecordSignals(string(signal.SideBuy), buys)
	p.metrics.RecordSignals(string(signal.SideSell), sells)

	r := res.Report
	p.metrics.RecordTrades("win", r.WinningTrades)
	p.metrics.RecordTrades("loss", r.LosingTrades)
	p.metrics.RecordTrades("flat", r.TotalTrades-r.WinningTrades-r.LosingTrades)
}
