package pipeline

import (
	"slices"
	"time"

	"github.com/newthinker/swingsim/internal/backtest"
	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/indicator"
	"github.com/newthinker/swingsim/internal/signal"
)

// Result is the outcome of one run. The series behind it are only reachable
// through accessors that return copies.
type Result struct {
	ID             string
	Pair           string
	Interval       core.Interval
	Provider       string
	StartedAt      time.Time
	Duration       time.Duration
	Params         indicator.Params
	InitialCapital float64
	Bars           int // bars received before warm-up rows were dropped
	OpenPosition   bool
	Report         backtest.Report

	signals   signal.Frame
	portfolio []backtest.PortfolioPoint
	trades    []backtest.Trade
	positions []backtest.PositionEvent
}

// Signals returns the signal frame, one row per bar with complete indicators.
func (r *Result) Signals() signal.Frame {
	return slices.Clone(r.signals)
}

// SignalRows returns only the rows carrying a buy or sell.
func (r *Result) SignalRows() signal.Frame {
	return r.signals.Signaled()
}

// Events returns the buy and sell events in time order.
func (r *Result) Events() []signal.Event {
	return r.signals.Events()
}

// LastEvent returns the most recent buy or sell, if any.
func (r *Result) LastEvent() (signal.Event, bool) {
	events := r.signals.Events()
	if len(events) == 0 {
		return signal.Event{}, false
	}
	return events[len(events)-1], true
}

// Portfolio returns the capital recorded after each bar.
func (r *Result) Portfolio() []backtest.PortfolioPoint {
	return slices.Clone(r.portfolio)
}

// Trades returns the closed trades in exit order.
func (r *Result) Trades() []backtest.Trade {
	return slices.Clone(r.trades)
}

// Positions returns the position open and close markers.
func (r *Result) Positions() []backtest.PositionEvent {
	return slices.Clone(r.positions)
}

// Document is the serializable form of a Result used by reports, the
// archive and the HTTP API.
type Document struct {
	ID             string                    `json:"id" yaml:"id"`
	Pair           string                    `json:"pair" yaml:"pair"`
	Interval       int                       `json:"interval" yaml:"interval"`
	Provider       string                    `json:"provider,omitempty" yaml:"provider,omitempty"`
	StartedAt      time.Time                 `json:"started_at" yaml:"started_at"`
	DurationMS     int64                     `json:"duration_ms" yaml:"duration_ms"`
	Params         DocumentParams            `json:"params" yaml:"params"`
	InitialCapital float64                   `json:"initial_capital" yaml:"initial_capital"`
	Bars           int                       `json:"bars" yaml:"bars"`
	Rows           int                       `json:"rows" yaml:"rows"`
	OpenPosition   bool                      `json:"open_position" yaml:"open_position"`
	Report         backtest.Report           `json:"report" yaml:"report"`
	Events         []signal.Event            `json:"events" yaml:"events"`
	Trades         []backtest.Trade          `json:"trades" yaml:"trades"`
	Positions      []backtest.PositionEvent  `json:"positions" yaml:"positions"`
	Portfolio      []backtest.PortfolioPoint `json:"portfolio,omitempty" yaml:"portfolio,omitempty"`
}

// DocumentParams mirrors indicator.Params with wire names.
type DocumentParams struct {
	BandWindow int     `json:"band_window" yaml:"band_window"`
	BandWidth  float64 `json:"band_width" yaml:"band_width"`
	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period"`
	Oversold   float64 `json:"oversold" yaml:"oversold"`
	Overbought float64 `json:"overbought" yaml:"overbought"`
}

// Document snapshots the result. The portfolio series is included only
// when withPortfolio is set.
func (r *Result) Document(withPortfolio bool) Document {
	doc := Document{
		ID:         r.ID,
		Pair:       r.Pair,
		Interval:   r.Interval.Minutes(),
		Provider:   r.Provider,
		StartedAt:  r.StartedAt,
		DurationMS: r.Duration.Milliseconds(),
		Params: DocumentParams{
			BandWindow: r.Params.BandWindow,
			BandWidth:  r.Params.BandWidth,
			RSIPeriod:  r.Params.RSIPeriod,
			Oversold:   r.Params.Oversold,
			Overbought: r.Params.Overbought,
		},
		InitialCapital: r.InitialCapital,
		Bars:           r.Bars,
		Rows:           len(r.signals),
		OpenPosition:   r.OpenPosition,
		Report:         r.Report,
		Events:         r.Events(),
		Trades:         r.Trades(),
		Positions:      r.Positions(),
	}
	if doc.Events == nil {
		doc.Events = []signal.Event{}
	}
	if withPortfolio {
		doc.Portfolio = r.Portfolio()
	}
	return doc
}
