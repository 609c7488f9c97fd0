package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopProvider struct{}

func (nopProvider) Name() string { return "nop" }

func (nopProvider) FetchOHLC(ctx context.Context, req collector.Request) ([]core.PriceBar, error) {
	return nil, nil
}

func (nopProvider) Pairs(ctx context.Context) ([]string, error) { return nil, nil }

var start = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func runResult(t *testing.T) *pipeline.Result {
	t.Helper()
	run := config.RunConfig{Pair: "ETHUSD", Interval: 1440, Oversold: 30, Overbought: 70, InitialCapital: 1000}
	ind := config.IndicatorConfig{BandWindow: 3, BandWidth: 1, RSIPeriod: 2}
	p, err := pipeline.New(run, ind, nopProvider{}, pipeline.WithClock(func() time.Time { return start }))
	require.NoError(t, err)

	closes := []float64{100, 100, 100, 100, 90, 80, 85, 100, 120, 110, 100}
	bars := make([]core.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = core.PriceBar{Time: start.AddDate(0, 0, i), Close: c}
	}
	res, err := p.RunSeries(context.Background(), bars)
	require.NoError(t, err)
	return res
}

func TestNew(t *testing.T) {
	st, err := New(config.ArchiveConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, st)

	st, err = New(config.ArchiveConfig{Type: "localfs", Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalFS{}, st)

	st, err = New(config.ArchiveConfig{Type: "s3", S3: config.S3Config{Bucket: "runs", Endpoint: "http://localhost:9000"}})
	require.NoError(t, err)
	assert.IsType(t, &S3Storage{}, st)

	_, err = New(config.ArchiveConfig{Type: "s3"})
	assert.True(t, errors.Is(err, core.ErrConfigMissing))

	_, err = New(config.ArchiveConfig{Type: "ftp"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestSaveAndLoadResult(t *testing.T) {
	st, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	res := runResult(t)
	p, err := SaveResult(ctx, st, res)
	require.NoError(t, err)
	assert.Equal(t, "runs/ETHUSD/2025-03-01/"+res.ID+".json", p)

	doc, err := LoadResult(ctx, st, p)
	require.NoError(t, err)
	assert.Equal(t, res.ID, doc.ID)
	assert.Equal(t, "ETHUSD", doc.Pair)
	assert.Equal(t, 1440, doc.Interval)
	assert.Len(t, doc.Trades, 1)
	assert.InDelta(t, 1010, doc.Report.FinalCapital, 1e-9)
	assert.NotEmpty(t, doc.Portfolio)

	paths, err := st.List(ctx, "runs/ETHUSD")
	require.NoError(t, err)
	assert.Equal(t, []string{p}, paths)
}

func TestLoadResult_NotFound(t *testing.T) {
	st, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)

	_, err = LoadResult(context.Background(), st, "runs/ETHUSD/2025-03-01/missing.json")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestCleanPath(t *testing.T) {
	for _, p := range []string{"", "/etc/passwd", "../up", "a/../../up", ".."} {
		_, err := cleanPath(p)
		assert.Truef(t, errors.Is(err, core.ErrStorage), "path %q", p)
	}

	got, err := cleanPath("runs//ETHUSD/./a.json")
	require.NoError(t, err)
	assert.Equal(t, "runs/ETHUSD/a.json", got)
}
