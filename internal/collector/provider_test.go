package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_Validate(t *testing.T) {
	assert.NoError(t, Request{Pair: "ETHUSD", Interval: core.Interval1h}.Validate())
	assert.True(t, errors.Is(Request{Pair: "", Interval: core.Interval1h}.Validate(), core.ErrConfigInvalid))
	assert.True(t, errors.Is(Request{Pair: "ETHUSD", Interval: 2}.Validate(), core.ErrConfigInvalid))
}

func TestFinalize(t *testing.T) {
	in := []core.PriceBar{bar(3, 3), bar(1, 1), bar(2, 2), bar(3, 33)}

	out := Finalize(in, bar(2, 0).Time)
	require.Len(t, out, 2)
	assert.Equal(t, 2.0, out[0].Close)
	assert.Equal(t, 33.0, out[1].Close)
	assert.NoError(t, core.ValidateSeries(out))

	assert.Len(t, Finalize(in, bar(0, 0).Time.AddDate(0, 0, -1)), 3)
}

func TestProviderError(t *testing.T) {
	err := ProviderError("kraken", errors.New("boom"))
	assert.True(t, errors.Is(err, core.ErrProvider))
	assert.Contains(t, err.Error(), "kraken: boom")
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, GetJSON(context.Background(), server.Client(), server.URL+"/good", &out))
	assert.True(t, out.OK)

	err := GetJSON(context.Background(), server.Client(), server.URL+"/bad", &out)
	assert.ErrorContains(t, err, "502")
}

type countingRecorder map[string]int

func (c countingRecorder) RecordProviderRequest(provider, status string) {
	c[provider+"/"+status]++
}

func TestInstrument(t *testing.T) {
	rec := countingRecorder{}
	ok := Instrument(&mockProvider{name: "kraken", bars: []core.PriceBar{bar(1, 1)}}, rec)
	bad := Instrument(&mockProvider{name: "okx", err: errors.New("down")}, rec)

	_, _ = ok.FetchOHLC(context.Background(), testReq)
	_, _ = bad.FetchOHLC(context.Background(), testReq)

	assert.Equal(t, 1, rec["kraken/success"])
	assert.Equal(t, 1, rec["okx/error"])
	assert.Equal(t, "kraken", ok.Name())
}
