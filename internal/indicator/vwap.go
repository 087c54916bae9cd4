package indicator

import "tradecore/internal/model"

// VWAPResult is the outcome of an anchored VWAP computation.
type VWAPResult struct {
	VWAP        float64
	AnchorIndex int

	// Reclaim is true when the previous close was below VWAP and the
	// current close is above it. Confirmed additionally requires current
	// volume above 1.5× the 20-period average.
	Reclaim   bool
	Confirmed bool

	Sufficient bool
}

// VWAP computes the volume-weighted typical price from an anchor candle
// to the latest candle. anchorIndex < 0 selects the default anchor: the
// index of the lowest low in the window.
func VWAP(candles []model.Candle, anchorIndex int) VWAPResult {
	res := VWAPResult{}
	if len(candles) < 2 {
		return res
	}

	if anchorIndex < 0 || anchorIndex >= len(candles) {
		anchorIndex = 0
		for i, c := range candles {
			if c.Low < candles[anchorIndex].Low {
				anchorIndex = i
			}
		}
	}
	res.AnchorIndex = anchorIndex

	pv, vol := 0.0, 0.0
	for _, c := range candles[anchorIndex:] {
		typical := (c.High + c.Low + c.Close) / 3
		pv += typical * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return res
	}
	res.VWAP = pv / vol
	res.Sufficient = true

	last := candles[len(candles)-1]
	prev := candles[len(candles)-2]
	res.Reclaim = prev.Close < res.VWAP && last.Close > res.VWAP
	if res.Reclaim {
		res.Confirmed = last.Volume > 1.5*avgVolume(candles, 20)
	}
	return res
}

// avgVolume returns the mean volume of the last period candles
// (or all of them when fewer are available).
func avgVolume(candles []model.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if len(candles) < period {
		period = len(candles)
	}
	total := 0.0
	for _, c := range candles[len(candles)-period:] {
		total += c.Volume
	}
	return total / float64(period)
}
