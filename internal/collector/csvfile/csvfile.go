// Package csvfile serves price bars from CSV files for offline runs.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/core"
)

var header = []string{"time", "open", "high", "low", "close", "vwap", "volume", "count"}

// Provider reads bars from a single file, or from <PAIR>.csv files in a directory.
type Provider struct {
	path string
}

// New creates a CSV provider rooted at path.
func New(path string) *Provider {
	return &Provider{path: path}
}

func (p *Provider) Name() string {
	return "csv"
}

// FetchOHLC reads the file for req.Pair. The interval is not checked against
// the file contents.
func (p *Provider) FetchOHLC(ctx context.Context, req collector.Request) ([]core.PriceBar, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	file, err := p.resolve(req.Pair)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, core.WrapError(core.ErrProvider,
				core.Errorf(core.ErrUnknownPair, "csv: no file for %s", req.Pair))
		}
		return nil, collector.ProviderError(p.Name(), err)
	}
	defer f.Close()

	bars, err := Read(f)
	if err != nil {
		return nil, collector.ProviderError(p.Name(), fmt.Errorf("%s: %w", file, err))
	}
	bars = collector.Finalize(bars, req.Since)
	if len(bars) == 0 {
		return nil, collector.ProviderError(p.Name(), fmt.Errorf("no bars in %s", file))
	}
	return bars, nil
}

// Pairs lists the pairs available under the provider path.
func (p *Provider) Pairs(ctx context.Context) ([]string, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return nil, collector.ProviderError(p.Name(), err)
	}
	if !info.IsDir() {
		name := strings.TrimSuffix(filepath.Base(p.path), filepath.Ext(p.path))
		return []string{core.NormalizePair(name)}, nil
	}

	matches, err := filepath.Glob(filepath.Join(p.path, "*.csv"))
	if err != nil {
		return nil, collector.ProviderError(p.Name(), err)
	}
	pairs := make([]string, 0, len(matches))
	for _, m := range matches {
		pairs = append(pairs, core.NormalizePair(strings.TrimSuffix(filepath.Base(m), ".csv")))
	}
	sort.Strings(pairs)
	return pairs, nil
}

func (p *Provider) resolve(pair string) (string, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return "", collector.ProviderError(p.Name(), err)
	}
	if !info.IsDir() {
		return p.path, nil
	}
	return filepath.Join(p.path, core.NormalizePair(pair)+".csv"), nil
}

// Read parses bars from CSV with a header row. Time is unix seconds or RFC 3339.
// The vwap, volume and count columns are optional.
func Read(r io.Reader) ([]core.PriceBar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(head))
	for i, h := range head {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range header[:5] {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var bars []core.PriceBar
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		b, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func parseRecord(rec []string, cols map[string]int) (core.PriceBar, error) {
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return "", false
		}
		return strings.TrimSpace(rec[i]), true
	}
	num := func(name string) (float64, error) {
		s, ok := field(name)
		if !ok || s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	var b core.PriceBar
	ts, _ := field("time")
	t, err := parseTime(ts)
	if err != nil {
		return b, err
	}
	b.Time = t

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low},
		{"close", &b.Close}, {"vwap", &b.VWAP}, {"volume", &b.Volume},
	} {
		v, err := num(f.name)
		if err != nil {
			return b, err
		}
		*f.dst = v
	}

	count, err := num("count")
	if err != nil {
		return b, err
	}
	b.Count = int(count)
	return b, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// Write emits bars in the format Read accepts.
func Write(w io.Writer, bars []core.PriceBar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, b := range bars {
		rec := []string{
			strconv.FormatInt(b.Time.Unix(), 10),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.VWAP, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
			strconv.Itoa(b.Count),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
