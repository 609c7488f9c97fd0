package core

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// PriceBar is one OHLC candle as delivered by a price provider.
type PriceBar struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	VWAP   float64   `json:"vwap" yaml:"vwap"`
	Volume float64   `json:"volume" yaml:"volume"`
	Count  int       `json:"count" yaml:"count"`
}

// Interval is a candle width in minutes.
type Interval int

const (
	Interval1m  Interval = 1
	Interval5m  Interval = 5
	Interval15m Interval = 15
	Interval30m Interval = 30
	Interval1h  Interval = 60
	Interval4h  Interval = 240
	Interval1d  Interval = 1440
	Interval1w  Interval = 10080
	Interval15d Interval = 21600
)

var allowedIntervals = []Interval{
	Interval1m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval4h, Interval1d, Interval1w, Interval15d,
}

// AllowedIntervals returns the accepted candle widths in ascending order.
func AllowedIntervals() []Interval {
	return slices.Clone(allowedIntervals)
}

// ParseInterval converts minutes into an Interval, rejecting unsupported widths.
func ParseInterval(minutes int) (Interval, error) {
	iv := Interval(minutes)
	if !iv.IsValid() {
		return 0, Errorf(ErrConfigInvalid, "interval %d not in %v", minutes, allowedIntervals)
	}
	return iv, nil
}

// IsValid reports whether the interval is one of the allowed widths.
func (i Interval) IsValid() bool {
	return slices.Contains(allowedIntervals, i)
}

// Minutes returns the interval width in minutes.
func (i Interval) Minutes() int {
	return int(i)
}

// Duration returns the interval width as a time.Duration.
func (i Interval) Duration() time.Duration {
	return time.Duration(i) * time.Minute
}

func (i Interval) String() string {
	switch {
	case i >= Interval1d && int(i)%int(Interval1d) == 0:
		return fmt.Sprintf("%dd", int(i)/int(Interval1d))
	case i >= Interval1h && int(i)%int(Interval1h) == 0:
		return fmt.Sprintf("%dh", int(i)/int(Interval1h))
	default:
		return fmt.Sprintf("%dm", int(i))
	}
}

// ValidateSeries checks that bars are strictly ascending in time.
func ValidateSeries(bars []PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return Errorf(ErrDataValidation, "bar %d at %s does not follow %s",
				i, bars[i].Time.UTC().Format(time.RFC3339), bars[i-1].Time.UTC().Format(time.RFC3339))
		}
	}
	return nil
}

// SortSeries orders bars by time and drops repeated timestamps, keeping the
// last bar seen for each time.
func SortSeries(bars []PriceBar) []PriceBar {
	out := slices.Clone(bars)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Time.Equal(b.Time) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// Closes extracts the close price of every bar.
func Closes(bars []PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
