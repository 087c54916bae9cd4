package indicator

// DefaultDivergenceLookback is the conventional divergence window.
const DefaultDivergenceLookback = 10

// BullishDivergence reports RSI bullish divergence: price makes a new
// local low over the lookback window while RSI at the earlier price low
// is below the current RSI reading. closes and rsiSeries must be aligned
// (see RSISeries).
func BullishDivergence(closes, rsiSeries []float64, lookback int) bool {
	if lookback <= 0 {
		lookback = DefaultDivergenceLookback
	}
	n := len(closes)
	if n < lookback+1 || len(rsiSeries) != n {
		return false
	}

	// Earlier low within the window, excluding the current bar.
	lowIdx := n - 1 - lookback
	for i := n - 1 - lookback; i < n-1; i++ {
		if closes[i] < closes[lowIdx] {
			lowIdx = i
		}
	}

	priceNewLow := closes[n-1] < closes[lowIdx]
	rsiHigherLow := rsiSeries[n-1] > rsiSeries[lowIdx]
	return priceNewLow && rsiHigherLow
}
