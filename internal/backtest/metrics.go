package backtest

import (
	"math"

	"github.com/newthinker/swingsim/internal/core"
)

// TradingPeriodsPerYear annualizes the Sharpe ratio assuming daily-equivalent periods.
const TradingPeriodsPerYear = 252

// Calculate reduces a portfolio series and trade log into a Report.
// An empty portfolio fails with core.ErrInsufficientData.
func Calculate(portfolio []PortfolioPoint, trades []Trade, initialCapital float64) (Report, error) {
	if initialCapital <= 0 {
		return Report{}, core.Errorf(core.ErrConfigInvalid, "initial capital must be positive, got %g", initialCapital)
	}
	if len(portfolio) == 0 {
		return Report{}, core.Errorf(core.ErrInsufficientData, "portfolio series is empty")
	}

	values := make([]float64, len(portfolio))
	for i, p := range portfolio {
		values[i] = p.Value
	}

	returns, err := periodReturns(values)
	if err != nil {
		return Report{}, err
	}
	maxDD, err := maxDrawdownPct(values)
	if err != nil {
		return Report{}, err
	}

	final := values[len(values)-1]
	var winning, losing int
	for _, t := range trades {
		switch {
		case t.IsWin():
			winning++
		case t.IsLoss():
			losing++
		}
	}
	var winRate float64
	if len(trades) > 0 {
		winRate = float64(winning) / float64(len(trades)) * 100
	}

	return Report{
		InitialCapital:  initialCapital,
		FinalCapital:    final,
		TotalTrades:     len(trades),
		WinningTrades:   winning,
		LosingTrades:    losing,
		WinRate:         winRate,
		TotalProfit:     final - initialCapital,
		SharpeRatio:     sharpeRatio(returns),
		AnnualReturnPct: (final/initialCapital - 1) * 100,
		MaxDrawdownPct:  maxDD,
	}, nil
}

// periodReturns computes the fractional change between consecutive values.
// The first value has no predecessor and produces no return.
func periodReturns(values []float64) ([]float64, error) {
	if len(values) < 2 {
		return nil, nil
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		if prev <= 0 {
			return nil, core.Errorf(core.ErrInsufficientData, "portfolio value is %g at index %d", prev, i-1)
		}
		returns = append(returns, (values[i]-prev)/prev)
	}
	return returns, nil
}

// sharpeRatio is mean/stddev of returns scaled by sqrt(252), using the sample
// deviation. Fewer than two returns or zero deviation yields 0.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev * math.Sqrt(TradingPeriodsPerYear)
}

// maxDrawdownPct tracks the running peak in lockstep with each value and
// returns the deepest decline relative to the peak in force at that point.
func maxDrawdownPct(values []float64) (float64, error) {
	peak := values[0]
	if peak <= 0 {
		return 0, core.Errorf(core.ErrInsufficientData, "portfolio starts at non-positive value %g", peak)
	}

	var maxDD float64
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100, nil
}
