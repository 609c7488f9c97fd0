package binance

import (
	"context"
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
	baseURL   = "https://api.binance.com"
	pageLimit = 1000
)

// Binance implements collector.Provider for the Binance exchange
type Binance struct {
	client  *http.Client
	baseURL string
}

// New creates a new Binance provider
func New(timeout time.Duration) *Binance {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Binance{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(url string, timeout time.Duration) *Binance {
	b := New(timeout)
	if url != "" {
		b.baseURL = strings.TrimRight(url, "/")
	}
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// toSymbol converts a pair to a Binance symbol. Binance lists BTC rather
// than XBT and has no plain USD books, so USD maps to USDT.
func toSymbol(pair string) string {
	base, quote := core.SplitPair(pair)
	if base == "XBT" {
		base = "BTC"
	}
	if quote == "USD" {
		quote = "USDT"
	}
	return base + quote
}

// toInterval maps a width in minutes to a Binance kline interval.
func toInterval(interval core.Interval) (string, error) {
	switch interval {
	case core.Interval1m, core.Interval5m, core.Interval15m, core.Interval30m,
		core.Interval1h, core.Interval4h, core.Interval1d:
		return interval.String(), nil
	case core.Interval1w:
		return "1w", nil
	default:
		return "", core.Errorf(core.ErrConfigInvalid, "binance has no %s klines", interval)
	}
}

// FetchOHLC fetches klines from Binance
func (b *Binance) FetchOHLC(ctx context.Context, req collector.Request) ([]core.PriceBar, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	interval, err := toInterval(req.Interval)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", toSymbol(req.Pair))
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(pageLimit))
	if !req.Since.IsZero() {
		params.Set("startTime", strconv.FormatInt(req.Since.UnixMilli(), 10))
	}

	var klines [][]any
	if err := collector.GetJSON(ctx, b.client, b.baseURL+"/api/v3/klines?"+params.Encode(), &klines); err != nil {
		if strings.Contains(err.Error(), "status: 400") {
			return nil, core.WrapError(core.ErrProvider,
				core.Errorf(core.ErrUnknownPair, "binance: %s: %v", req.Pair, err))
		}
		return nil, collector.ProviderError(b.Name(), err)
	}
	if len(klines) == 0 {
		return nil, collector.ProviderError(b.Name(), fmt.Errorf("empty result for %s", req.Pair))
	}

	bars := make([]core.PriceBar, 0, len(klines))
	for _, k := range klines {
		if len(k) < 9 {
			continue
		}

		openTime, _ := k[0].(float64)
		openStr, _ := k[1].(string)
		highStr, _ := k[2].(string)
		lowStr, _ := k[3].(string)
		closeStr, _ := k[4].(string)
		volumeStr, _ := k[5].(string)
		quoteVolStr, _ := k[7].(string)
		trades, _ := k[8].(float64)

		open, _ := strconv.ParseFloat(openStr, 64)
		high, _ := strconv.ParseFloat(highStr, 64)
		low, _ := strconv.ParseFloat(lowStr, 64)
		close, _ := strconv.ParseFloat(closeStr, 64)
		volume, _ := strconv.ParseFloat(volumeStr, 64)
		quoteVol, _ := strconv.ParseFloat(quoteVolStr, 64)

		var vwap float64
		if volume > 0 {
			vwap = quoteVol / volume
		}

		bars = append(bars, core.PriceBar{
			Time:   time.UnixMilli(int64(openTime)).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			VWAP:   vwap,
			Volume: volume,
			Count:  int(trades),
		})
	}

	return collector.Finalize(bars, req.Since), nil
}

// Pairs lists symbols currently trading on Binance.
func (b *Binance) Pairs(ctx context.Context) ([]string, error) {
	var info exchangeInfo
	if err := collector.GetJSON(ctx, b.client, b.baseURL+"/api/v3/exchangeInfo", &info); err != nil {
		return nil, collector.ProviderError(b.Name(), err)
	}

	pairs := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status == "TRADING" {
			pairs = append(pairs, s.Symbol)
		}
	}
	sort.Strings(pairs)
	return pairs, nil
}

// Binance API response types
type exchangeInfo struct {
	Symbols []symbolInfo `json:"symbols"`
}

type symbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}
