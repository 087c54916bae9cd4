package signal

import (
	"fmt"

	"tradecore/internal/indicator"
	"tradecore/internal/model"
)

// EntryCheck is the verdict of the advanced-detector gate for one
// prospective long entry.
type EntryCheck struct {
	Allowed  bool     `json:"allowed"`
	StopLoss float64  `json:"stop_loss,omitempty"`
	Reasons  []string `json:"reasons"`
}

// CheckEntry runs the enabled advanced detectors over the candle window
// for a prospective buy. VWAP-entry requires a confirmed reclaim;
// liquidity-sweep detection upgrades an otherwise blocked entry; ATR
// stops attach a volatility-scaled stop-loss to allowed entries.
func CheckEntry(candles []model.Candle, supportLevel float64, adv model.AdvancedSignalSettings) EntryCheck {
	check := EntryCheck{Allowed: true}
	if len(candles) == 0 {
		return EntryCheck{Allowed: false, Reasons: []string{"no candle history"}}
	}
	last := candles[len(candles)-1]

	if adv.VWAPEntry {
		vw := indicator.VWAP(candles, -1)
		switch {
		case !vw.Sufficient:
			check.Allowed = false
			check.Reasons = append(check.Reasons, "VWAP entry: insufficient history")
		case vw.Reclaim && vw.Confirmed:
			check.Reasons = append(check.Reasons, fmt.Sprintf("VWAP reclaimed with volume (%.2f)", vw.VWAP))
		case last.Close > vw.VWAP:
			check.Reasons = append(check.Reasons, "price holding above VWAP")
		default:
			check.Allowed = false
			check.Reasons = append(check.Reasons, "VWAP entry: price below VWAP without reclaim")
		}
	}

	if adv.LiqSweep && !check.Allowed {
		closes := make([]float64, len(candles))
		for i, c := range candles {
			closes[i] = c.Close
		}
		rsiSeries := indicator.RSISeries(closes, indicator.DefaultRSIPeriod)
		avgVol := averageVolume(candles, 20)
		sweep := indicator.LiquiditySweep(candles, supportLevel, avgVol, rsiSeries, adv.SweepWickRatio, adv.SweepVolumeMult)
		if sweep.Detected {
			check.Allowed = true
			check.Reasons = append(check.Reasons,
				fmt.Sprintf("liquidity sweep detected (confidence %.2f)", sweep.Confidence))
		}
	}

	if adv.ATRStops && check.Allowed {
		atr := indicator.ATR(candles, 14)
		if atr.Sufficient && atr.ATR > 0 {
			check.StopLoss = last.Close - adv.ATRStopMultiplier*atr.ATR
			if check.StopLoss < 0 {
				check.StopLoss = 0
			}
			check.Reasons = append(check.Reasons,
				fmt.Sprintf("ATR stop at %.4f (%.1fx ATR)", check.StopLoss, adv.ATRStopMultiplier))
		}
	}

	return check
}

func averageVolume(candles []model.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if period > len(candles) {
		period = len(candles)
	}
	sum := 0.0
	for _, c := range candles[len(candles)-period:] {
		sum += c.Volume
	}
	return sum / float64(period)
}
