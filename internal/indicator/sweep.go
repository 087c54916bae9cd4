package indicator

import "tradecore/internal/model"

// Fixed confidence weights of the four sweep conditions.
const (
	sweepWeightRecovery   = 0.30
	sweepWeightWick       = 0.20
	sweepWeightVolume     = 0.25
	sweepWeightDivergence = 0.25
)

// SweepResult is the outcome of a liquidity-sweep detection.
type SweepResult struct {
	Detected   bool
	Confidence float64

	// Individual conditions, each worth its fixed confidence weight.
	SupportRecovered bool // low breached support, close recovered above it
	WickRejection    bool // lower-wick/body ratio at or above threshold
	VolumeSpike      bool
	BullishDiv       bool
}

// LiquiditySweep scores the latest candle against a support level for a
// stop-hunt pattern: a breach-and-recover of support, a long lower wick,
// a volume spike and RSI bullish divergence. Detection requires at least
// three of the four conditions; Confidence is the sum of the satisfied
// conditions' weights. Zero thresholds fall back to 1.5/2.0.
func LiquiditySweep(candles []model.Candle, supportLevel, avgVol float64, rsiSeries []float64, wickRatio, volumeMultiplier float64) SweepResult {
	if wickRatio <= 0 {
		wickRatio = 1.5
	}
	if volumeMultiplier <= 0 {
		volumeMultiplier = 2.0
	}
	res := SweepResult{}
	if len(candles) == 0 || supportLevel <= 0 {
		return res
	}
	last := candles[len(candles)-1]

	res.SupportRecovered = last.Low < supportLevel && last.Close > supportLevel

	body := last.Close - last.Open
	if body < 0 {
		body = -body
	}
	lowerWick := last.Open
	if last.Close < last.Open {
		lowerWick = last.Close
	}
	lowerWick -= last.Low
	if body > 0 {
		res.WickRejection = lowerWick/body >= wickRatio
	} else {
		// Doji: any meaningful lower wick counts as rejection.
		res.WickRejection = lowerWick > 0
	}

	res.VolumeSpike = avgVol > 0 && last.Volume >= volumeMultiplier*avgVol

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	res.BullishDiv = BullishDivergence(closes, rsiSeries, DefaultDivergenceLookback)

	count := 0
	if res.SupportRecovered {
		res.Confidence += sweepWeightRecovery
		count++
	}
	if res.WickRejection {
		res.Confidence += sweepWeightWick
		count++
	}
	if res.VolumeSpike {
		res.Confidence += sweepWeightVolume
		count++
	}
	if res.BullishDiv {
		res.Confidence += sweepWeightDivergence
		count++
	}
	res.Detected = count >= 3
	return res
}
