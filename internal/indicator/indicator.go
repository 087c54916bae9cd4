// Package indicator provides technical indicator calculations over ordered
// price series.
//
// All functions are pure and deterministic: no I/O, no retained state.
// Insufficient history is a normal outcome, not an error: each composite
// result carries a Sufficient flag alongside documented neutral defaults
// (RSI 50, ADX 25/±DI 50, zeroed MACD) so downstream scoring degrades
// gracefully instead of failing.
package indicator

import "math"

// SMA returns the mean of the last period values.
//
// Degenerate case: if fewer than period values are available, the last
// value itself is returned. Callers must not treat this as "no signal".
func SMA(values []float64, period int) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if period <= 0 || n < period {
		return values[n-1]
	}
	sum := 0.0
	for _, v := range values[n-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the last value of the exponential moving average series.
// Shares SMA's degenerate behavior when history is shorter than period.
func EMA(values []float64, period int) float64 {
	series := EMASeries(values, period)
	if len(series) == 0 {
		return SMA(values, period)
	}
	return series[len(series)-1]
}

// EMASeries returns the full EMA series. The first element is the SMA of
// the first period values; each subsequent element follows
// prev + (x - prev) * 2/(period+1). The returned series has
// len(values)-period+1 elements, or nil when history is too short.
// MACD depends on this form, differencing two series after realigning
// them by their period offset.
func EMASeries(values []float64, period int) []float64 {
	n := len(values)
	if period <= 0 || n < period {
		return nil
	}
	series := make([]float64, 0, n-period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	seed /= float64(period)
	series = append(series, seed)

	k := 2.0 / float64(period+1)
	prev := seed
	for _, v := range values[period:] {
		prev = prev + (v-prev)*k
		series = append(series, prev)
	}
	return series
}

// stdDev returns the population standard deviation of values.
func stdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(n))
}
