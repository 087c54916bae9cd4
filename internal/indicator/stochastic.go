package indicator

// StochasticResult is the outcome of a stochastic oscillator computation.
type StochasticResult struct {
	K          float64 // %K from the rolling high/low range
	D          float64 // %D = SMA(%K, dPeriod)
	Sufficient bool
}

// Stochastic computes the stochastic oscillator. Zero periods fall back
// to the conventional 14/3. With fewer than kPeriod candles both lines
// hold the neutral 50.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) StochasticResult {
	if kPeriod <= 0 {
		kPeriod = 14
	}
	if dPeriod <= 0 {
		dPeriod = 3
	}
	n := len(closes)
	if n < kPeriod || len(highs) != n || len(lows) != n {
		return StochasticResult{K: 50, D: 50}
	}

	// %K series over every full window, newest last.
	kCount := n - kPeriod + 1
	kSeries := make([]float64, 0, kCount)
	for end := kPeriod; end <= n; end++ {
		hi, lo := highs[end-kPeriod], lows[end-kPeriod]
		for i := end - kPeriod + 1; i < end; i++ {
			if highs[i] > hi {
				hi = highs[i]
			}
			if lows[i] < lo {
				lo = lows[i]
			}
		}
		k := 50.0
		if hi > lo {
			k = 100 * (closes[end-1] - lo) / (hi - lo)
		}
		kSeries = append(kSeries, k)
	}

	return StochasticResult{
		K:          kSeries[len(kSeries)-1],
		D:          SMA(kSeries, dPeriod),
		Sufficient: true,
	}
}
