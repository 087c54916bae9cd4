package indicator

// Crossover labels for MACDResult.Crossover.
const (
	CrossNone    = "none"
	CrossBullish = "bullish"
	CrossBearish = "bearish"
)

// MACDResult is the outcome of a MACD computation.
type MACDResult struct {
	MACD      float64 // MACD line (fast EMA − slow EMA)
	Signal    float64 // EMA of the MACD line
	Histogram float64 // MACD − Signal

	// Crossover is set only on the tick where (MACD−Signal) changes sign
	// between the last two aligned pairs; a sustained same-sign run
	// reports "none".
	Crossover string

	// Trend is "bullish" iff Histogram > 0 and MACD > 0, "bearish" on the
	// symmetric condition, else "neutral".
	Trend string

	Sufficient bool
}

// MACD computes Moving Average Convergence Divergence over closes.
// Zero periods fall back to the conventional 12/26/9.
//
// The fast and slow EMA series start at different offsets; they are
// realigned by the slow−fast offset before differencing. With
// insufficient history (fewer than slow+signal closes) a zeroed result
// with Trend "neutral" and Sufficient=false is returned.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}
	res := MACDResult{Crossover: CrossNone, Trend: "neutral"}
	if len(closes) < slow+signal {
		return res
	}

	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)
	offset := slow - fast

	// macdLine[i] pairs slowSeries[i] with the fast value for the same candle.
	macdLine := make([]float64, len(slowSeries))
	for i := range slowSeries {
		macdLine[i] = fastSeries[i+offset] - slowSeries[i]
	}

	signalSeries := EMASeries(macdLine, signal)
	if len(signalSeries) == 0 {
		return res
	}

	res.MACD = macdLine[len(macdLine)-1]
	res.Signal = signalSeries[len(signalSeries)-1]
	res.Histogram = res.MACD - res.Signal
	res.Sufficient = true

	// Crossover: sign change of (MACD−Signal) between the last two pairs.
	if len(signalSeries) >= 2 {
		prevDiff := macdLine[len(macdLine)-2] - signalSeries[len(signalSeries)-2]
		currDiff := res.Histogram
		if prevDiff <= 0 && currDiff > 0 {
			res.Crossover = CrossBullish
		} else if prevDiff >= 0 && currDiff < 0 {
			res.Crossover = CrossBearish
		}
	}

	if res.Histogram > 0 && res.MACD > 0 {
		res.Trend = "bullish"
	} else if res.Histogram < 0 && res.MACD < 0 {
		res.Trend = "bearish"
	}
	return res
}
