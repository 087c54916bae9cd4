package indicator

// BollingerResult is the outcome of a Bollinger Bands computation.
type BollingerResult struct {
	Upper  float64
	Middle float64
	Lower  float64

	// PercentB is (price − Lower) / (Upper − Lower): 0 at the lower band,
	// 1 at the upper band by construction.
	PercentB float64

	// Bandwidth is (Upper − Lower) / Middle.
	Bandwidth float64

	// Squeeze is true when the current bandwidth is below 50% of the
	// trailing-20 average bandwidth.
	Squeeze bool

	Sufficient bool
}

// Bollinger computes Bollinger Bands over closes: Upper/Lower are
// SMA ± k·stddev of the last period closes. Zero parameters fall back to
// the conventional 20/2.
//
// With insufficient history all three bands collapse to the SMA
// degenerate value and PercentB is pinned to 0.5.
func Bollinger(closes []float64, period int, k float64) BollingerResult {
	if period <= 0 {
		period = 20
	}
	if k == 0 {
		k = 2
	}
	res := BollingerResult{PercentB: 0.5}
	if len(closes) == 0 {
		return res
	}
	price := closes[len(closes)-1]
	if len(closes) < period {
		mid := SMA(closes, period)
		res.Upper, res.Middle, res.Lower = mid, mid, mid
		return res
	}

	res.Upper, res.Middle, res.Lower = bandsAt(closes, len(closes), period, k)
	res.Sufficient = true

	if width := res.Upper - res.Lower; width > 0 {
		res.PercentB = (price - res.Lower) / width
	}
	if res.Middle != 0 {
		res.Bandwidth = (res.Upper - res.Lower) / res.Middle
	}

	// Squeeze: compare against the average bandwidth of the trailing 20
	// windows. Not enough history for the trailing windows means no squeeze.
	const trailing = 20
	if len(closes) >= period+trailing {
		sum := 0.0
		for i := 0; i < trailing; i++ {
			end := len(closes) - i
			u, m, l := bandsAt(closes, end, period, k)
			if m != 0 {
				sum += (u - l) / m
			}
		}
		avg := sum / trailing
		res.Squeeze = res.Bandwidth < 0.5*avg
	}
	return res
}

// bandsAt computes the bands for the window of period closes ending at
// index end (exclusive).
func bandsAt(closes []float64, end, period int, k float64) (upper, middle, lower float64) {
	window := closes[end-period : end]
	middle = SMA(window, period)
	sd := stdDev(window)
	return middle + k*sd, middle, middle - k*sd
}
