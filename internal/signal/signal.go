// Package signal turns indicator crossings into buy and sell events.
package signal

import (
	"time"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/indicator"
)

// Side is the direction of a signal event.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Row is an indicator row with optional buy and sell prices.
// At most one of Buy and Sell is defined.
type Row struct {
	indicator.Row `yaml:",inline"`
	Buy           indicator.Value `json:"buy" yaml:"buy"`
	Sell          indicator.Value `json:"sell" yaml:"sell"`
}

// Event is a single emitted signal.
type Event struct {
	Time  time.Time `json:"time" yaml:"time"`
	Side  Side      `json:"side" yaml:"side"`
	Price float64   `json:"price" yaml:"price"`
}

// Frame is a signal-stamped series in ascending time order.
type Frame []Row

// Events returns the buy and sell events in time order.
func (f Frame) Events() []Event {
	var events []Event
	for _, r := range f {
		if p, ok := r.Buy.Get(); ok {
			events = append(events, Event{Time: r.Time, Side: SideBuy, Price: p})
		}
		if p, ok := r.Sell.Get(); ok {
			events = append(events, Event{Time: r.Time, Side: SideSell, Price: p})
		}
	}
	return events
}

// Signaled returns only the rows carrying a buy or sell.
func (f Frame) Signaled() Frame {
	var out Frame
	for _, r := range f {
		if r.Buy.Valid || r.Sell.Valid {
			out = append(out, r)
		}
	}
	return out
}

type position int

const (
	flat position = iota
	long
)

// Generate walks frame in order keeping a flat/long position. A flat position
// goes long when the close is below the lower band and the RSI is below the
// oversold level; a long position goes flat when the close is above the upper
// band and the RSI is above the overbought level. Each transition stamps the
// bar's close as the buy or sell price.
//
// Every row is checked as it is evaluated; an undefined indicator fails with
// core.ErrDataValidation naming the missing fields.
func Generate(frame indicator.Frame) (Frame, error) {
	out := make(Frame, len(frame))
	pos := flat

	for i, r := range frame {
		if missing := r.Missing(); len(missing) > 0 {
			return nil, core.MissingFieldsError(r.Time, missing...)
		}

		out[i] = Row{Row: r}
		switch {
		case pos == flat && r.Close < r.LowerBand.Float && r.RSI.Float < r.Oversold:
			pos = long
			out[i].Buy = indicator.Some(r.Close)
		case pos == long && r.Close > r.UpperBand.Float && r.RSI.Float > r.Overbought:
			pos = flat
			out[i].Sell = indicator.Some(r.Close)
		}
	}
	return out, nil
}
