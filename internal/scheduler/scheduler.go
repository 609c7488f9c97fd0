// Package scheduler re-runs the watchlist on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/newthinker/swingsim/internal/app"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner executes one pass over the watchlist.
type Runner interface {
	RunWatchlist(ctx context.Context) ([]*app.Outcome, map[string]error)
}

// Scheduler manages the periodic watchlist task.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	logger  *zap.Logger
	spec    string
	entry   cron.EntryID
	timeout time.Duration

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	passes int
}

// New registers the watchlist task under spec, a six-field cron expression
// with seconds ("0 5 0 * * *") or a descriptor such as "@hourly".
// Overlapping passes are skipped, and a panicking pass is recovered.
func New(spec string, runner Runner, log *zap.Logger) (*Scheduler, error) {
	log = logger.Named(log, "scheduler")
	cl := cronLogger{log: log}

	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:  runner,
		logger:  log,
		spec:    spec,
		timeout: 30 * time.Minute,
		ctx:     context.Background(),
	}

	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, core.Errorf(core.ErrConfigInvalid, "schedule %q: %v", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start starts the cron scheduler. Passes started by the scheduler are
// cancelled when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("spec", s.spec),
		zap.Time("next", s.Next()),
	)
}

// Stop stops the cron scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next returns the next activation time, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Passes returns the number of completed passes.
func (s *Scheduler) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}

// RunNow executes one pass immediately.
func (s *Scheduler) RunNow(ctx context.Context) ([]*app.Outcome, map[string]error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	outcomes, failed := s.runner.RunWatchlist(ctx)

	s.mu.Lock()
	s.passes++
	s.mu.Unlock()

	for pair, err := range failed {
		s.logger.Error("scheduled run failed", zap.String("pair", pair), zap.Error(err))
	}
	s.logger.Info("scheduled pass complete",
		zap.Int("succeeded", len(outcomes)),
		zap.Int("failed", len(failed)),
		zap.Duration("duration", time.Since(started)),
	)
	return outcomes, failed
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	s.RunNow(ctx)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
