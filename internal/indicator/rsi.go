package indicator

// RSI computes the Relative Strength Index using a simple trailing mean of
// gains and losses over period price deltas. The first defined value is at
// index period. When the average loss is zero the RSI is 100.
func RSI(closes []float64, period int) []Value {
	result := make([]Value, len(closes))
	if period <= 0 || len(closes) <= period {
		return result
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	for i := period; i < len(closes); i++ {
		gain := mean(gains[i-period+1 : i+1])
		loss := mean(losses[i-period+1 : i+1])
		result[i] = Some(rsiFromAverages(gain, loss))
	}
	return result
}

func rsiFromAverages(gain, loss float64) float64 {
	if loss == 0 {
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}
