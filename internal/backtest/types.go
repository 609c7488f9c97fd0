package backtest

import (
	"time"

	"github.com/newthinker/swingsim/internal/signal"
)

// Trade is a closed round trip from a buy to the following sell.
type Trade struct {
	EntryTime  time.Time `json:"entry_time" yaml:"entry_time"`
	ExitTime   time.Time `json:"exit_time" yaml:"exit_time"`
	EntryPrice float64   `json:"entry_price" yaml:"entry_price"`
	ExitPrice  float64   `json:"exit_price" yaml:"exit_price"`
	Profit     float64   `json:"profit" yaml:"profit"` // ExitPrice - EntryPrice
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Profit > 0
}

// IsLoss returns true if the trade lost money. Break-even trades are neither.
func (t Trade) IsLoss() bool {
	return t.Profit < 0
}

// PositionEvent marks a position being opened or closed.
type PositionEvent struct {
	Time  time.Time   `json:"time" yaml:"time"`
	Side  signal.Side `json:"side" yaml:"side"`
	Price float64     `json:"price" yaml:"price"`
}

// PortfolioPoint is the capital held after processing the bar at Time.
type PortfolioPoint struct {
	Time  time.Time `json:"time" yaml:"time"`
	Value float64   `json:"value" yaml:"value"`
}

// Ledger is the output of a simulation.
type Ledger struct {
	InitialCapital float64          `json:"initial_capital" yaml:"initial_capital"`
	FinalCapital   float64          `json:"final_capital" yaml:"final_capital"`
	Trades         []Trade          `json:"trades" yaml:"trades"`
	Positions      []PositionEvent  `json:"positions" yaml:"positions"`
	Portfolio      []PortfolioPoint `json:"portfolio" yaml:"portfolio"`
	OpenPosition   bool             `json:"open_position" yaml:"open_position"` // ended long; unrealized P&L not counted
}

// Report holds summary performance statistics.
type Report struct {
	InitialCapital  float64 `json:"initial_capital" yaml:"initial_capital"`
	FinalCapital    float64 `json:"final_capital" yaml:"final_capital"`
	TotalTrades     int     `json:"total_trades" yaml:"total_trades"`
	WinningTrades   int     `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades    int     `json:"losing_trades" yaml:"losing_trades"`
	WinRate         float64 `json:"win_rate" yaml:"win_rate"` // Percentage of trades won
	TotalProfit     float64 `json:"total_profit" yaml:"total_profit"`
	SharpeRatio     float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	AnnualReturnPct float64 `json:"annual_return_pct" yaml:"annual_return_pct"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
}

// Values returns the portfolio values without timestamps.
func (l *Ledger) Values() []float64 {
	out := make([]float64, len(l.Portfolio))
	for i, p := range l.Portfolio {
		out[i] = p.Value
	}
	return out
}
