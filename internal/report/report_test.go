package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type nopProvider struct{}

func (nopProvider) Name() string { return "csv" }

func (nopProvider) FetchOHLC(ctx context.Context, req collector.Request) ([]core.PriceBar, error) {
	return nil, nil
}

func (nopProvider) Pairs(ctx context.Context) ([]string, error) { return nil, nil }

var start = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func swingResult(t *testing.T) *pipeline.Result {
	t.Helper()
	run := config.RunConfig{Pair: "ETHUSD", Interval: 1440, Oversold: 30, Overbought: 70, InitialCapital: 1000}
	ind := config.IndicatorConfig{BandWindow: 3, BandWidth: 1, RSIPeriod: 2}
	p, err := pipeline.New(run, ind, nopProvider{})
	require.NoError(t, err)

	closes := []float64{100, 100, 100, 100, 90, 80, 85, 100, 120, 110, 100}
	bars := make([]core.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = core.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
	}
	res, err := p.RunSeries(context.Background(), bars)
	require.NoError(t, err)
	return res
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"table", FormatTable, true},
		{"JSON", FormatJSON, true},
		{" yaml ", FormatYAML, true},
		{"csv", FormatCSV, true},
		{"signals", FormatSignals, true},
		{"xml", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if !tt.ok {
				assert.True(t, errors.Is(err, core.ErrConfigInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, swingResult(t), FormatTable, false))

	out := buf.String()
	assert.Contains(t, out, "ETHUSD")
	assert.Contains(t, out, "1d")
	assert.Contains(t, out, "1010.00")
	assert.Contains(t, out, "2025-03-05 00:00")
	assert.Contains(t, out, "2025-03-08 00:00")
	assert.NotContains(t, out, "open at end of series")
}

func TestWrite_JSON(t *testing.T) {
	res := swingResult(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, FormatJSON, false))

	var doc pipeline.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, res.ID, doc.ID)
	assert.Equal(t, 1440, doc.Interval)
	assert.Len(t, doc.Trades, 1)
	assert.Empty(t, doc.Portfolio)
	assert.NotContains(t, buf.String(), `"portfolio"`)

	buf.Reset()
	require.NoError(t, Write(&buf, res, FormatJSON, true))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Len(t, doc.Portfolio, len(res.Portfolio()))
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, swingResult(t), FormatYAML, false))

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "ETHUSD", out["pair"])
	assert.Equal(t, 1440, out["interval"])

	rep, ok := out["report"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, rep["total_trades"])
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, swingResult(t), FormatCSV, false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "entry_time,exit_time,entry_price,exit_price,profit", lines[0])
	assert.Equal(t, "2025-03-05T00:00:00Z,2025-03-08T00:00:00Z,90,100,10", lines[1])
}

func TestWrite_Signals(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, swingResult(t), FormatSignals, false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "2025-03-05")
	assert.Contains(t, lines[2], "2025-03-08")
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, swingResult(t), Format("xml"), false)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestTradesCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, TradesCSV(&buf, nil))
	assert.Equal(t, "entry_time,exit_time,entry_price,exit_price,profit\n", buf.String())
}
