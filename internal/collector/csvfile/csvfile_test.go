package csvfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `time,open,high,low,close,vwap,volume,count
1704153600,2352.1,2400,2340,2380.5,2370.1,1520.5,4211
2024-01-01T00:00:00Z,2282,2360,2270,2352.1,2320.4,1800.25,5120
`

func TestRead(t *testing.T) {
	bars, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, time.Unix(1704153600, 0).UTC(), bars[0].Time)
	assert.Equal(t, 2380.5, bars[0].Close)
	assert.Equal(t, 4211, bars[0].Count)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), bars[1].Time)
}

func TestRead_OptionalColumns(t *testing.T) {
	bars, err := Read(strings.NewReader("time,open,high,low,close\n1704067200,1,2,0.5,1.5\n"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)
	assert.Zero(t, bars[0].Volume)
}

func TestRead_Errors(t *testing.T) {
	tests := map[string]string{
		"missing close": "time,open,high,low\n1,1,1,1\n",
		"bad number":    "time,open,high,low,close\n1,1,1,1,abc\n",
		"bad time":      "time,open,high,low,close\nyesterday,1,1,1,1\n",
		"empty":         "",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	in, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))

	out, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestProvider_FetchOHLC_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ethusd.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	p := New(path)
	bars, err := p.FetchOHLC(context.Background(), collector.Request{Pair: "ETHUSD", Interval: core.Interval1d})
	require.NoError(t, err)

	// sorted ascending
	require.Len(t, bars, 2)
	assert.Equal(t, 2352.1, bars[0].Close)
	assert.Equal(t, 2380.5, bars[1].Close)

	pairs, err := p.Pairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSD"}, pairs)
}

func TestProvider_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ETHUSD.csv"), []byte(sample), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "XBTUSD.csv"), []byte(sample), 0644))

	p := New(dir)
	pairs, err := p.Pairs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSD", "XBTUSD"}, pairs)

	bars, err := p.FetchOHLC(context.Background(), collector.Request{
		Pair: "eth-usd", Interval: core.Interval1d, Since: time.Unix(1704100000, 0),
	})
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	_, err = p.FetchOHLC(context.Background(), collector.Request{Pair: "SOLUSD", Interval: core.Interval1d})
	assert.True(t, errors.Is(err, core.ErrProvider))
	assert.True(t, errors.Is(err, core.ErrUnknownPair))
}
