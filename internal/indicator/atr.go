package indicator

import (
	"math"

	"tradecore/internal/model"
)

// Volatility levels reported by ATRResult.
const (
	VolatilityLow    = "low"    // ATR below 1% of price
	VolatilityNormal = "normal"
	VolatilityHigh   = "high"   // ATR above 3% of price
)

// ATRResult is the outcome of an Average True Range computation.
type ATRResult struct {
	ATR             float64
	VolatilityLevel string
	Sufficient      bool
}

// ATR computes the EMA-smoothed Average True Range over candles, where
// true range = max(high−low, |high−prevClose|, |low−prevClose|).
// Zero period falls back to the conventional 14.
func ATR(candles []model.Candle, period int) ATRResult {
	if period <= 0 {
		period = 14
	}
	res := ATRResult{VolatilityLevel: VolatilityNormal}
	if len(candles) < period+1 {
		return res
	}

	trs := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
		trs = append(trs, tr)
	}

	res.ATR = EMA(trs, period)
	res.Sufficient = true

	price := candles[len(candles)-1].Close
	if price > 0 {
		switch ratio := res.ATR / price; {
		case ratio < 0.01:
			res.VolatilityLevel = VolatilityLow
		case ratio > 0.03:
			res.VolatilityLevel = VolatilityHigh
		}
	}
	return res
}
