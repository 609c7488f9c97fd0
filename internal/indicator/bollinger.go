package indicator

// Band holds one bar's Bollinger Band values.
type Band struct {
	Middle Value // moving average
	StdDev Value // moving standard deviation
	Upper  Value
	Lower  Value
}

// Bollinger computes Bollinger Bands over closes with a trailing window and
// a width of k standard deviations. Bars before window-1 are undefined.
func Bollinger(closes []float64, window int, k float64) []Band {
	avg := RollingMean(closes, window)
	std := RollingStdDev(closes, window)

	bands := make([]Band, len(closes))
	for i := range closes {
		m, okM := avg[i].Get()
		s, okS := std[i].Get()
		if !okM || !okS {
			continue
		}
		bands[i] = Band{
			Middle: Some(m),
			StdDev: Some(s),
			Upper:  Some(m + k*s),
			Lower:  Some(m - k*s),
		}
	}
	return bands
}
