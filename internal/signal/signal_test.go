package signal

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func row(i int, close, lower, upper, rsi float64) indicator.Row {
	return indicator.Row{
		PriceBar:   core.PriceBar{Time: baseTime.AddDate(0, 0, i), Close: close},
		MovingAvg:  indicator.Some((lower + upper) / 2),
		MovingStd:  indicator.Some((upper - lower) / 4),
		UpperBand:  indicator.Some(upper),
		LowerBand:  indicator.Some(lower),
		RSI:        indicator.Some(rsi),
		Oversold:   30,
		Overbought: 70,
	}
}

func TestGenerate_BuyThenSell(t *testing.T) {
	frame := indicator.Frame{
		row(0, 100, 85, 105, 50),
		row(1, 90, 85, 105, 40),
		row(2, 80, 85, 105, 25),
		row(3, 95, 85, 105, 55),
		row(4, 110, 85, 105, 75),
	}

	out, err := Generate(frame)
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.Equal(t, indicator.Some(80), out[2].Buy)
	assert.False(t, out[2].Sell.Valid)
	assert.Equal(t, indicator.Some(110), out[4].Sell)
	assert.False(t, out[4].Buy.Valid)

	for _, i := range []int{0, 1, 3} {
		assert.False(t, out[i].Buy.Valid, "row %d", i)
		assert.False(t, out[i].Sell.Valid, "row %d", i)
	}

	events := out.Events()
	require.Len(t, events, 2)
	assert.Equal(t, Event{Time: baseTime.AddDate(0, 0, 2), Side: SideBuy, Price: 80}, events[0])
	assert.Equal(t, Event{Time: baseTime.AddDate(0, 0, 4), Side: SideSell, Price: 110}, events[1])
	assert.Len(t, out.Signaled(), 2)
}

func TestGenerate_RequiresBothConditions(t *testing.T) {
	tests := []struct {
		name string
		row  indicator.Row
	}{
		{"below band, rsi not oversold", row(0, 80, 85, 105, 35)},
		{"rsi oversold, above band", row(0, 90, 85, 105, 20)},
		{"close equal to band", row(0, 85, 85, 105, 20)},
		{"rsi equal to threshold", row(0, 80, 85, 105, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Generate(indicator.Frame{tt.row})
			require.NoError(t, err)
			assert.False(t, out[0].Buy.Valid)
		})
	}
}

func TestGenerate_SellWithoutPositionIgnored(t *testing.T) {
	out, err := Generate(indicator.Frame{row(0, 120, 85, 105, 90)})
	require.NoError(t, err)
	assert.False(t, out[0].Sell.Valid)
	assert.Empty(t, out.Events())
}

func TestGenerate_NoDoubleBuy(t *testing.T) {
	frame := indicator.Frame{
		row(0, 80, 85, 105, 20),
		row(1, 75, 85, 105, 15),
		row(2, 110, 85, 105, 80),
		row(3, 115, 85, 105, 85),
	}
	out, err := Generate(frame)
	require.NoError(t, err)

	events := out.Events()
	require.Len(t, events, 2)
	assert.Equal(t, SideBuy, events[0].Side)
	assert.Equal(t, 80.0, events[0].Price)
	assert.Equal(t, SideSell, events[1].Side)
	assert.Equal(t, 110.0, events[1].Price)
}

func TestGenerate_Alternation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	frame := make(indicator.Frame, 500)
	for i := range frame {
		frame[i] = row(i, 50+rng.Float64()*100, 60+rng.Float64()*20, 120+rng.Float64()*20, rng.Float64()*100)
	}

	out, err := Generate(frame)
	require.NoError(t, err)

	events := out.Events()
	require.NotEmpty(t, events)
	for i, ev := range events {
		want := SideBuy
		if i%2 == 1 {
			want = SideSell
		}
		assert.Equal(t, want, ev.Side, "event %d", i)
	}
	for _, r := range out {
		assert.False(t, r.Buy.Valid && r.Sell.Valid)
	}
}

func TestGenerate_UndefinedMidSeries(t *testing.T) {
	bad := row(2, 80, 85, 105, 20)
	bad.RSI = indicator.Value{}
	bad.LowerBand = indicator.Value{}

	frame := indicator.Frame{row(0, 100, 85, 105, 50), row(1, 99, 85, 105, 50), bad}

	_, err := Generate(frame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDataValidation))
	assert.Contains(t, err.Error(), indicator.FieldRSI)
	assert.Contains(t, err.Error(), indicator.FieldLowerBand)
}

func TestGenerate_Empty(t *testing.T) {
	out, err := Generate(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
