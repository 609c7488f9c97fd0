package indicator

import (
	"math"

	"github.com/newthinker/swingsim/internal/core"
)

// Field names used when reporting undefined indicator values.
const (
	FieldMovingAvg = "moving_avg"
	FieldMovingStd = "moving_std_dev"
	FieldUpperBand = "upper_band"
	FieldLowerBand = "lower_band"
	FieldRSI       = "rsi"
)

// Params configures indicator computation.
type Params struct {
	BandWindow int     // trailing window for the moving average and deviation
	BandWidth  float64 // band distance in standard deviations
	RSIPeriod  int
	Oversold   float64
	Overbought float64
}

// DefaultParams returns a 20-bar, 2-sigma band with a 14-bar RSI and 30/70 thresholds.
func DefaultParams() Params {
	return Params{
		BandWindow: 20,
		BandWidth:  2,
		RSIPeriod:  14,
		Oversold:   30,
		Overbought: 70,
	}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if p.BandWindow < 2 {
		return core.Errorf(core.ErrConfigInvalid, "band window must be at least 2, got %d", p.BandWindow)
	}
	if math.IsNaN(p.BandWidth) || math.IsInf(p.BandWidth, 0) || p.BandWidth <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "band width must be positive, got %g", p.BandWidth)
	}
	if p.RSIPeriod < 1 {
		return core.Errorf(core.ErrConfigInvalid, "rsi period must be at least 1, got %d", p.RSIPeriod)
	}
	if !(p.Oversold >= 0 && p.Oversold <= 100) {
		return core.Errorf(core.ErrConfigInvalid, "oversold must be between 0 and 100, got %g", p.Oversold)
	}
	if !(p.Overbought >= 0 && p.Overbought <= 100) {
		return core.Errorf(core.ErrConfigInvalid, "overbought must be between 0 and 100, got %g", p.Overbought)
	}
	return nil
}

// Row is a price bar with its indicator values. Oversold and Overbought echo
// the thresholds so each row can be evaluated on its own.
type Row struct {
	core.PriceBar `yaml:",inline"`
	MovingAvg     Value   `json:"moving_avg" yaml:"moving_avg"`
	MovingStd     Value   `json:"moving_std_dev" yaml:"moving_std_dev"`
	UpperBand     Value   `json:"upper_band" yaml:"upper_band"`
	LowerBand     Value   `json:"lower_band" yaml:"lower_band"`
	RSI           Value   `json:"rsi" yaml:"rsi"`
	Oversold      float64 `json:"over_sold" yaml:"over_sold"`
	Overbought    float64 `json:"over_bought" yaml:"over_bought"`
}

// Missing lists the names of undefined indicator fields.
func (r Row) Missing() []string {
	var missing []string
	if !r.MovingAvg.Valid {
		missing = append(missing, FieldMovingAvg)
	}
	if !r.MovingStd.Valid {
		missing = append(missing, FieldMovingStd)
	}
	if !r.UpperBand.Valid {
		missing = append(missing, FieldUpperBand)
	}
	if !r.LowerBand.Valid {
		missing = append(missing, FieldLowerBand)
	}
	if !r.RSI.Valid {
		missing = append(missing, FieldRSI)
	}
	return missing
}

// IsComplete reports whether every indicator field is defined.
func (r Row) IsComplete() bool {
	return len(r.Missing()) == 0
}

// Frame is an indicator-augmented price series in ascending time order.
type Frame []Row

// Compute derives Bollinger Bands and RSI from the close of every bar.
// Rows whose windows are not yet full carry undefined values; callers must
// drop them with Complete before generating signals.
func Compute(bars []core.PriceBar, p Params) (Frame, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateSeries(bars); err != nil {
		return nil, err
	}

	closes := core.Closes(bars)
	bands := Bollinger(closes, p.BandWindow, p.BandWidth)
	rsi := RSI(closes, p.RSIPeriod)

	frame := make(Frame, len(bars))
	for i, bar := range bars {
		frame[i] = Row{
			PriceBar:   bar,
			MovingAvg:  bands[i].Middle,
			MovingStd:  bands[i].StdDev,
			UpperBand:  bands[i].Upper,
			LowerBand:  bands[i].Lower,
			RSI:        rsi[i],
			Oversold:   p.Oversold,
			Overbought: p.Overbought,
		}
	}
	return frame, nil
}

// Complete returns the rows with every indicator defined.
func (f Frame) Complete() Frame {
	out := make(Frame, 0, len(f))
	for _, r := range f {
		if r.IsComplete() {
			out = append(out, r)
		}
	}
	return out
}

// WarmupBars returns how many leading bars stay undefined for p.
func WarmupBars(p Params) int {
	return max(p.BandWindow-1, p.RSIPeriod)
}
