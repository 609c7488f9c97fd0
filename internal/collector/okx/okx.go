package okx

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
	baseURL = "https://www.okx.com"
	// OKX caps a candle page at 300 rows.
	pageLimit = 300
)

// OKX implements collector.Provider for the OKX exchange
type OKX struct {
	client  *http.Client
	baseURL string
}

// New creates a new OKX provider
func New(timeout time.Duration) *OKX {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OKX{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates an OKX provider with custom base URL (for testing)
func NewWithBaseURL(url string, timeout time.Duration) *OKX {
	o := New(timeout)
	if url != "" {
		o.baseURL = strings.TrimRight(url, "/")
	}
	return o
}

func (o *OKX) Name() string {
	return "okx"
}

// toInstID converts a pair to an OKX instrument ID.
// ETHUSD -> ETH-USD, XBTUSDT -> BTC-USDT
func toInstID(pair string) string {
	base, quote := core.SplitPair(pair)
	if base == "XBT" {
		base = "BTC"
	}
	if quote == "" {
		return base
	}
	return base + "-" + quote
}

// toBar maps a width in minutes to an OKX bar code.
func toBar(interval core.Interval) (string, error) {
	switch interval {
	case core.Interval1m, core.Interval5m, core.Interval15m, core.Interval30m:
		return interval.String(), nil
	case core.Interval1h:
		return "1H", nil
	case core.Interval4h:
		return "4H", nil
	case core.Interval1d:
		return "1D", nil
	case core.Interval1w:
		return "1W", nil
	default:
		return "", core.Errorf(core.ErrConfigInvalid, "okx has no %s candles", interval)
	}
}

// FetchOHLC fetches the most recent page of candles from OKX
func (o *OKX) FetchOHLC(ctx context.Context, req collector.Request) ([]core.PriceBar, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	bar, err := toBar(req.Interval)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("instId", toInstID(req.Pair))
	params.Set("bar", bar)
	params.Set("limit", strconv.Itoa(pageLimit))
	if !req.Since.IsZero() {
		// "before" returns records newer than the timestamp
		params.Set("before", strconv.FormatInt(req.Since.UnixMilli()-1, 10))
	}

	var result okxCandleResponse
	if err := collector.GetJSON(ctx, o.client, o.baseURL+"/api/v5/market/candles?"+params.Encode(), &result); err != nil {
		return nil, collector.ProviderError(o.Name(), err)
	}

	if result.Code != "0" {
		if result.Code == "51001" {
			return nil, core.WrapError(core.ErrProvider,
				core.Errorf(core.ErrUnknownPair, "okx: %s: %s", req.Pair, result.Msg))
		}
		return nil, collector.ProviderError(o.Name(), fmt.Errorf("okx error %s: %s", result.Code, result.Msg))
	}
	if len(result.Data) == 0 {
		return nil, collector.ProviderError(o.Name(), fmt.Errorf("empty result for %s", req.Pair))
	}

	bars := make([]core.PriceBar, 0, len(result.Data))
	// OKX returns newest first; Finalize restores chronological order
	for _, candle := range result.Data {
		if len(candle) < 6 {
			continue
		}

		ts, _ := strconv.ParseInt(candle[0], 10, 64)
		openPrice, _ := strconv.ParseFloat(candle[1], 64)
		high, _ := strconv.ParseFloat(candle[2], 64)
		low, _ := strconv.ParseFloat(candle[3], 64)
		closePrice, _ := strconv.ParseFloat(candle[4], 64)
		volume, _ := strconv.ParseFloat(candle[5], 64)

		bars = append(bars, core.PriceBar{
			Time:   time.UnixMilli(ts).UTC(),
			Open:   openPrice,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return collector.Finalize(bars, req.Since), nil
}

// Pairs lists live spot instruments as concatenated pairs (BTC-USDT -> BTCUSDT).
func (o *OKX) Pairs(ctx context.Context) ([]string, error) {
	var result okxInstrumentResponse
	if err := collector.GetJSON(ctx, o.client, o.baseURL+"/api/v5/public/instruments?instType=SPOT", &result); err != nil {
		return nil, collector.ProviderError(o.Name(), err)
	}
	if result.Code != "0" {
		return nil, collector.ProviderError(o.Name(), fmt.Errorf("okx error %s: %s", result.Code, result.Msg))
	}

	pairs := make([]string, 0, len(result.Data))
	for _, inst := range result.Data {
		if inst.State != "" && inst.State != "live" {
			continue
		}
		pairs = append(pairs, core.NormalizePair(inst.InstID))
	}
	sort.Strings(pairs)
	return pairs, nil
}

// OKX API response types
type okxCandleResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

type okxInstrumentResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data []okxInstrument `json:"data"`
}

type okxInstrument struct {
	InstID string `json:"instId"`
	State  string `json:"state"`
}
