package backtest

import (
	"math"

	"github.com/newthinker/swingsim/internal/core"
	"github.com/newthinker/swingsim/internal/signal"
	"github.com/shopspring/decimal"
)

// Simulate replays the buy and sell prices stamped on frame with an all-in,
// all-out long position. Capital changes only when a position is closed, by
// the sell price minus the entry price; open positions are not marked to
// market. One portfolio point is recorded per bar.
//
// The position flag here is independent of the one used to stamp the frame;
// it is driven only by the Buy and Sell fields.
func Simulate(frame signal.Frame, initialCapital float64) (*Ledger, error) {
	if math.IsNaN(initialCapital) || math.IsInf(initialCapital, 0) || initialCapital <= 0 {
		return nil, core.Errorf(core.ErrConfigInvalid, "initial capital must be positive, got %g", initialCapital)
	}

	ledger := &Ledger{
		InitialCapital: initialCapital,
		Trades:         []Trade{},
		Positions:      []PositionEvent{},
		Portfolio:      make([]PortfolioPoint, 0, len(frame)),
	}

	capital := decimal.NewFromFloat(initialCapital)
	var (
		long  bool
		entry decimal.Decimal
		open  PositionEvent
	)

	for i, r := range frame {
		if i > 0 && !r.Time.After(frame[i-1].Time) {
			return nil, core.Errorf(core.ErrDataValidation, "signal frame out of order at row %d", i)
		}

		if buy, ok := r.Buy.Get(); ok && !long {
			long = true
			entry = decimal.NewFromFloat(buy)
			open = PositionEvent{Time: r.Time, Side: signal.SideBuy, Price: buy}
			ledger.Positions = append(ledger.Positions, open)
		} else if sell, ok := r.Sell.Get(); ok && long {
			profit := decimal.NewFromFloat(sell).Sub(entry)
			capital = capital.Add(profit)
			ledger.Trades = append(ledger.Trades, Trade{
				EntryTime:  open.Time,
				ExitTime:   r.Time,
				EntryPrice: open.Price,
				ExitPrice:  sell,
				Profit:     profit.InexactFloat64(),
			})
			ledger.Positions = append(ledger.Positions, PositionEvent{Time: r.Time, Side: signal.SideSell, Price: sell})
			long = false
		}

		ledger.Portfolio = append(ledger.Portfolio, PortfolioPoint{
			Time:  r.Time,
			Value: capital.InexactFloat64(),
		})
	}

	ledger.FinalCapital = capital.InexactFloat64()
	ledger.OpenPosition = long
	return ledger, nil
}
