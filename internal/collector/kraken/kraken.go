package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/swingsim/internal/collector"
	"github.com/newthinker/swingsim/internal/core"
)

const (
	baseURL = "https://api.kraken.com"
)

// Kraken implements collector.Provider over Kraken's public REST API.
type Kraken struct {
	client  *http.Client
	baseURL string
}

// New creates a new Kraken provider
func New(timeout time.Duration) *Kraken {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Kraken{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Kraken provider with custom base URL (for testing)
func NewWithBaseURL(url string, timeout time.Duration) *Kraken {
	k := New(timeout)
	if url != "" {
		k.baseURL = strings.TrimRight(url, "/")
	}
	return k
}

func (k *Kraken) Name() string {
	return "kraken"
}

// FetchOHLC fetches candles from /0/public/OHLC. Kraken answers with at most
// 720 bars counted back from now; Since narrows that window.
func (k *Kraken) FetchOHLC(ctx context.Context, req collector.Request) ([]core.PriceBar, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("pair", core.NormalizePair(req.Pair))
	params.Set("interval", strconv.Itoa(req.Interval.Minutes()))
	if !req.Since.IsZero() {
		params.Set("since", strconv.FormatInt(req.Since.Unix(), 10))
	}

	var result krakenResponse
	if err := collector.GetJSON(ctx, k.client, k.baseURL+"/0/public/OHLC?"+params.Encode(), &result); err != nil {
		return nil, collector.ProviderError(k.Name(), err)
	}
	if err := result.err(req.Pair); err != nil {
		return nil, err
	}

	rows, err := candleRows(result.Result)
	if err != nil {
		return nil, collector.ProviderError(k.Name(), err)
	}
	if len(rows) == 0 {
		return nil, collector.ProviderError(k.Name(), fmt.Errorf("empty result for %s", req.Pair))
	}

	bars := make([]core.PriceBar, 0, len(rows))
	for i, row := range rows {
		b, err := parseCandle(row)
		if err != nil {
			return nil, collector.ProviderError(k.Name(), fmt.Errorf("row %d: %w", i, err))
		}
		bars = append(bars, b)
	}

	return collector.Finalize(bars, req.Since), nil
}

// Pairs lists the alternate names from /0/public/AssetPairs.
func (k *Kraken) Pairs(ctx context.Context) ([]string, error) {
	var result krakenResponse
	if err := collector.GetJSON(ctx, k.client, k.baseURL+"/0/public/AssetPairs", &result); err != nil {
		return nil, collector.ProviderError(k.Name(), err)
	}
	if err := result.err(""); err != nil {
		return nil, err
	}

	pairs := make([]string, 0, len(result.Result))
	for key, raw := range result.Result {
		var info assetPair
		if err := json.Unmarshal(raw, &info); err != nil || info.Altname == "" {
			pairs = append(pairs, key)
			continue
		}
		pairs = append(pairs, info.Altname)
	}
	sort.Strings(pairs)
	return pairs, nil
}

// candleRows picks the candle array out of the result object. The result
// holds one key named after the pair plus a "last" cursor.
func candleRows(result map[string]json.RawMessage) ([][]any, error) {
	keys := make([]string, 0, len(result))
	for key := range result {
		if key != "last" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	var rows [][]any
	if err := json.Unmarshal(result[keys[0]], &rows); err != nil {
		return nil, fmt.Errorf("decoding candles: %w", err)
	}
	return rows, nil
}

// parseCandle reads [time, open, high, low, close, vwap, volume, count].
func parseCandle(row []any) (core.PriceBar, error) {
	if len(row) < 8 {
		return core.PriceBar{}, fmt.Errorf("expected 8 columns, got %d", len(row))
	}

	ts, ok := row[0].(float64)
	if !ok {
		return core.PriceBar{}, fmt.Errorf("bad time %v", row[0])
	}

	var prices [6]float64
	for i := range prices {
		s, ok := row[i+1].(string)
		if !ok {
			return core.PriceBar{}, fmt.Errorf("column %d: expected string, got %T", i+1, row[i+1])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return core.PriceBar{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		prices[i] = v
	}

	count, ok := row[7].(float64)
	if !ok {
		return core.PriceBar{}, fmt.Errorf("bad count %v", row[7])
	}

	return core.PriceBar{
		Time:   time.Unix(int64(ts), 0).UTC(),
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		VWAP:   prices[4],
		Volume: prices[5],
		Count:  int(count),
	}, nil
}

// Kraken API response types
type krakenResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

func (r krakenResponse) err(pair string) error {
	if len(r.Error) == 0 {
		return nil
	}
	msg := strings.Join(r.Error, "; ")
	for _, e := range r.Error {
		if strings.Contains(e, "Unknown asset pair") {
			return core.WrapError(core.ErrProvider,
				core.Errorf(core.ErrUnknownPair, "kraken: %s: %s", pair, msg))
		}
	}
	return collector.ProviderError("kraken", fmt.Errorf("%s", msg))
}

type assetPair struct {
	Altname string `json:"altname"`
	Wsname  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
}
