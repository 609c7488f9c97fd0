package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/newthinker/swingsim/internal/app"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRunner struct {
	calls  atomic.Int32
	failed map[string]error
	panic  bool
}

func (f *fakeRunner) RunWatchlist(ctx context.Context) ([]*app.Outcome, map[string]error) {
	f.calls.Add(1)
	if f.panic {
		panic("boom")
	}
	return []*app.Outcome{{}}, f.failed
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every tuesday", &fakeRunner{}, nil)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	// five-field specs lack the seconds column
	_, err = New("0 5 * * *", &fakeRunner{}, nil)
	assert.Error(t, err)
}

func TestScheduler_RunNowLogsFailures(t *testing.T) {
	zc, logs := observer.New(zapcore.InfoLevel)
	runner := &fakeRunner{failed: map[string]error{"XBTUSD": core.ErrProvider}}

	s, err := New("0 5 0 * * *", runner, zap.New(zc))
	require.NoError(t, err)

	outcomes, failed := s.RunNow(context.Background())
	assert.Len(t, outcomes, 1)
	assert.Len(t, failed, 1)
	assert.Equal(t, 1, s.Passes())

	errLogs := logs.FilterMessage("scheduled run failed").All()
	require.Len(t, errLogs, 1)
	assert.Equal(t, "XBTUSD", errLogs[0].ContextMap()["pair"])
	assert.Equal(t, 1, logs.FilterMessage("scheduled pass complete").Len())
}

func TestScheduler_Ticks(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New("* * * * * *", runner, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	assert.False(t, s.Next().IsZero())

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
	assert.GreaterOrEqual(t, s.Passes(), 1)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	runner := &fakeRunner{panic: true}
	s, err := New("* * * * * *", runner, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return runner.calls.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_CancelledContextSkipsTicks(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New("* * * * * *", runner, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
	time.Sleep(1500 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(0), runner.calls.Load())
}
