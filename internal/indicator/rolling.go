package indicator

import "math"

// RollingMean calculates the trailing mean over window values.
// The result is aligned with values: positions before window-1 are undefined.
func RollingMean(values []float64, window int) []Value {
	result := make([]Value, len(values))
	if window <= 0 {
		return result
	}

	for i := window - 1; i < len(values); i++ {
		result[i] = Some(mean(values[i-window+1 : i+1]))
	}
	return result
}

// RollingStdDev calculates the trailing sample standard deviation (n-1)
// over window values. Windows shorter than 2 are undefined everywhere.
func RollingStdDev(values []float64, window int) []Value {
	result := make([]Value, len(values))
	if window < 2 {
		return result
	}

	for i := window - 1; i < len(values); i++ {
		result[i] = Some(sampleStdDev(values[i-window+1 : i+1]))
	}
	return result
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleStdDev(values []float64) float64 {
	m := mean(values)
	var ss float64
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}
