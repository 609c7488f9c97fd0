package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/swingsim/internal/config"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBacktestRequest_Apply(t *testing.T) {
	cfg := config.Defaults()
	interval := 60
	window := 5
	oversold := 25.0

	run, ind := BacktestRequest{
		Pair:       "xbt-usd",
		Interval:   &interval,
		Oversold:   &oversold,
		BandWindow: &window,
	}.Apply(cfg.Run, cfg.Indicator)

	assert.Equal(t, "xbt-usd", run.Pair)
	assert.Equal(t, 60, run.Interval)
	assert.Equal(t, 25.0, run.Oversold)
	assert.Equal(t, cfg.Run.Overbought, run.Overbought)
	assert.Equal(t, cfg.Run.InitialCapital, run.InitialCapital)
	assert.Equal(t, 5, ind.BandWindow)
	assert.Equal(t, cfg.Indicator.RSIPeriod, ind.RSIPeriod)
}

func TestBacktestRequest_ApplyEmpty(t *testing.T) {
	cfg := config.Defaults()
	run, ind := BacktestRequest{}.Apply(cfg.Run, cfg.Indicator)
	assert.Equal(t, cfg.Run, run)
	assert.Equal(t, cfg.Indicator, ind)
}

func TestAsCoreError(t *testing.T) {
	wrapped := core.Errorf(core.ErrInsufficientData, "2 bars")
	assert.Same(t, wrapped, asCoreError(wrapped))

	plain := asCoreError(errors.New("boom"))
	assert.Equal(t, core.ErrProvider.Code, plain.Code)
	assert.EqualError(t, plain.Cause, "boom")
}

func TestParseFilter(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/runs?pair=eth-usd&interval=60&from=2025-03-01&to=2025-03-02T12:00:00Z&limit=5&offset=10", nil)
	f, err := parseFilter(r)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSD", f.Pair)
	assert.Equal(t, 60, f.Interval)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), f.From)
	assert.Equal(t, time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC), f.To)
	assert.Equal(t, 5, f.Limit)
	assert.Equal(t, 10, f.Offset)
}

func TestParseFilter_Defaults(t *testing.T) {
	f, err := parseFilter(httptest.NewRequest("GET", "/api/runs", nil))
	require.NoError(t, err)
	assert.Equal(t, defaultRunsLimit, f.Limit)
	assert.True(t, f.From.IsZero())
}

func TestParseFilter_Invalid(t *testing.T) {
	tests := []string{
		"interval=daily",
		"from=03/01/2025",
		"to=soon",
		"limit=-1",
		"offset=x",
	}
	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			_, err := parseFilter(httptest.NewRequest("GET", "/api/runs?"+q, nil))
			assert.ErrorIs(t, err, core.ErrConfigInvalid)
		})
	}
}

type stubLister struct {
	pairs []string
	err   error
}

func (s stubLister) Pairs(ctx context.Context) ([]string, error) {
	return s.pairs, s.err
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestPairsHandler_List(t *testing.T) {
	h := NewPairsHandler(stubLister{pairs: []string{"ETHUSD", "XBTUSD", "XBTEUR"}})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/pairs?q=xbt", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, []any{"XBTUSD", "XBTEUR"}, data["pairs"])
	assert.Equal(t, float64(2), data["count"])
}

func TestPairsHandler_ProviderError(t *testing.T) {
	h := NewPairsHandler(stubLister{err: core.Errorf(core.ErrProvider, "kraken down")})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/pairs", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "PROVIDER_FAILED")
}

type stubWatchlist struct {
	pairs []string
}

func (s *stubWatchlist) Watchlist() []string { return s.pairs }

func (s *stubWatchlist) AddToWatchlist(pair string) (bool, error) {
	if err := core.ValidatePair(pair); err != nil {
		return false, err
	}
	pair = core.NormalizePair(pair)
	for _, p := range s.pairs {
		if p == pair {
			return false, nil
		}
	}
	s.pairs = append(s.pairs, pair)
	return true, nil
}

func (s *stubWatchlist) RemoveFromWatchlist(pair string) bool {
	pair = core.NormalizePair(pair)
	for i, p := range s.pairs {
		if p == pair {
			s.pairs = append(s.pairs[:i], s.pairs[i+1:]...)
			return true
		}
	}
	return false
}

func TestWatchlistHandler(t *testing.T) {
	wl := &stubWatchlist{}
	h := NewWatchlistHandler(wl)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /watchlist", h.List)
	mux.HandleFunc("POST /watchlist", h.Add)
	mux.HandleFunc("DELETE /watchlist/{pair}", h.Remove)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(method, path, strings.NewReader(body)))
		return w
	}

	w := do("POST", "/watchlist", `{"pair":"eth/usd"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ETHUSD", decodeData(t, w)["pair"])

	assert.Equal(t, http.StatusOK, do("POST", "/watchlist", `{"pair":"ETHUSD"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do("POST", "/watchlist", `{"pair":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do("POST", "/watchlist", `not json`).Code)

	w = do("GET", "/watchlist", "")
	assert.Equal(t, []any{"ETHUSD"}, decodeData(t, w)["pairs"])

	assert.Equal(t, http.StatusOK, do("DELETE", "/watchlist/eth-usd", "").Code)
	assert.Equal(t, http.StatusNotFound, do("DELETE", "/watchlist/ETHUSD", "").Code)
	assert.Empty(t, wl.pairs)
}
