package signal

import (
	"fmt"

	"tradecore/internal/indicator"
	"tradecore/internal/model"
)

// FullIndicatorAnalysis is the pre-assembled input for the weighted
// confidence scorer: multi-timeframe RSI plus point readings of the
// remaining components.
type FullIndicatorAnalysis struct {
	RSI15m float64
	RSI1h  float64
	RSI4h  float64

	MACD      indicator.MACDResult
	Bollinger indicator.BollingerResult

	// EMACrossed reports a fresh fast/slow crossover this candle;
	// EMAFastAboveSlow the standing relation.
	EMACrossed       bool
	EMAFastAboveSlow bool

	VolumeRatio float64
}

// Contribution is one component's share of the final confidence.
type Contribution struct {
	Component string  `json:"component"`
	Weight    float64 `json:"weight"`
	Fraction  float64 `json:"fraction"`
	Value     float64 `json:"value"`
	Reason    string  `json:"reason,omitempty"`
}

// ConfidenceResult is the scorer output: a 0..1 total plus the
// per-component breakdown so the caller can explain the score.
type ConfidenceResult struct {
	Total         float64        `json:"total"`
	Entry         bool           `json:"entry"`
	MinConfidence float64        `json:"min_confidence"`
	Contributions []Contribution `json:"contributions"`
}

// Sub-condition fractions per component. A component at its strongest
// reading contributes 100% of its normalized weight; weaker readings a
// documented fraction.
// rsiOversoldLevel is the oversold threshold used by the scorer's RSI
// component; the analyzer's tiered thresholds live in analyzer.go.
const rsiOversoldLevel = 30.0

const (
	fracRSIAllOversold  = 1.0
	fracRSITwoOversold  = 0.7
	fracRSIOneOversold  = 0.4
	fracRSILeanOversold = 0.25

	fracMACDCross   = 1.0
	fracMACDHistPos = 0.55

	fracBollBelowLower = 1.0
	fracBollNearLower  = 0.6

	fracEMACross     = 1.0
	fracEMAFastAbove = 0.5

	fracVolumeStrong = 1.0
	fracVolumeMild   = 0.6

	fracPriceDropSupport = 1.0
	fracPriceNearSupport = 0.5
	fracPriceSharpDrop   = 0.4
)

// Score blends the enabled components into a single confidence total.
// Disabled components are excluded and the remaining weights
// renormalized to sum to 1, so toggling a component never changes the
// relative influence of the others.
func Score(fa FullIndicatorAnalysis, priceDropPct float64, nearSupport bool, settings model.IndicatorSettings) ConfidenceResult {
	weights := normalizedWeights(settings.Weights, settings.Enabled)
	res := ConfidenceResult{MinConfidence: settings.MinConfidence}

	if settings.Enabled.RSI {
		frac, reason := rsiFraction(fa, rsiOversoldLevel)
		res.add("rsi", weights.RSI, frac, reason)
	}
	if settings.Enabled.MACD {
		frac, reason := macdFraction(fa.MACD)
		res.add("macd", weights.MACD, frac, reason)
	}
	if settings.Enabled.Bollinger {
		frac, reason := bollingerFraction(fa.Bollinger)
		res.add("bollinger", weights.Bollinger, frac, reason)
	}
	if settings.Enabled.EMA {
		frac, reason := emaFraction(fa)
		res.add("ema", weights.EMA, frac, reason)
	}
	if settings.Enabled.Volume {
		frac, reason := volumeFraction(fa.VolumeRatio)
		res.add("volume", weights.Volume, frac, reason)
	}
	if settings.Enabled.PriceAction {
		frac, reason := priceActionFraction(priceDropPct, nearSupport)
		res.add("price_action", weights.PriceAction, frac, reason)
	}

	res.Total = clamp01(res.Total)
	res.Entry = res.Total >= settings.MinConfidence
	return res
}

func (r *ConfidenceResult) add(component string, weight, frac float64, reason string) {
	value := weight * frac
	r.Total += value
	r.Contributions = append(r.Contributions, Contribution{
		Component: component,
		Weight:    weight,
		Fraction:  frac,
		Value:     value,
		Reason:    reason,
	})
}

// normalizedWeights zeroes disabled components and rescales the rest to
// sum to 1. All-zero input yields all-zero output.
func normalizedWeights(w model.ComponentWeights, enabled model.ComponentFlags) model.ComponentWeights {
	if !enabled.RSI {
		w.RSI = 0
	}
	if !enabled.MACD {
		w.MACD = 0
	}
	if !enabled.Bollinger {
		w.Bollinger = 0
	}
	if !enabled.EMA {
		w.EMA = 0
	}
	if !enabled.Volume {
		w.Volume = 0
	}
	if !enabled.PriceAction {
		w.PriceAction = 0
	}
	sum := w.RSI + w.MACD + w.Bollinger + w.EMA + w.Volume + w.PriceAction
	if sum <= 0 {
		return model.ComponentWeights{}
	}
	w.RSI /= sum
	w.MACD /= sum
	w.Bollinger /= sum
	w.EMA /= sum
	w.Volume /= sum
	w.PriceAction /= sum
	return w
}

func rsiFraction(fa FullIndicatorAnalysis, oversold float64) (float64, string) {
	count := 0
	for _, rsi := range []float64{fa.RSI15m, fa.RSI1h, fa.RSI4h} {
		if rsi <= oversold {
			count++
		}
	}
	switch count {
	case 3:
		return fracRSIAllOversold, "RSI oversold on 15m, 1h and 4h"
	case 2:
		return fracRSITwoOversold, "RSI oversold on two timeframes"
	case 1:
		return fracRSIOneOversold, "RSI oversold on one timeframe"
	}
	if avg := (fa.RSI15m + fa.RSI1h + fa.RSI4h) / 3; avg <= oversold+10 {
		return fracRSILeanOversold, fmt.Sprintf("average RSI leaning low (%.1f)", avg)
	}
	return 0, ""
}

func macdFraction(m indicator.MACDResult) (float64, string) {
	if !m.Sufficient {
		return 0, ""
	}
	if m.Crossover == indicator.CrossBullish {
		return fracMACDCross, "MACD bullish crossover"
	}
	if m.Histogram > 0 {
		return fracMACDHistPos, "MACD histogram positive"
	}
	return 0, ""
}

func bollingerFraction(b indicator.BollingerResult) (float64, string) {
	if !b.Sufficient {
		return 0, ""
	}
	if b.PercentB <= 0 {
		return fracBollBelowLower, "price below lower Bollinger band"
	}
	if b.PercentB <= 0.2 {
		return fracBollNearLower, "price near lower Bollinger band"
	}
	return 0, ""
}

func emaFraction(fa FullIndicatorAnalysis) (float64, string) {
	if fa.EMACrossed && fa.EMAFastAboveSlow {
		return fracEMACross, "fresh bullish EMA crossover"
	}
	if fa.EMAFastAboveSlow {
		return fracEMAFastAbove, "fast EMA above slow EMA"
	}
	return 0, ""
}

func volumeFraction(ratio float64) (float64, string) {
	if ratio >= 2 {
		return fracVolumeStrong, fmt.Sprintf("volume x%.1f average", ratio)
	}
	if ratio >= 1.5 {
		return fracVolumeMild, fmt.Sprintf("volume x%.1f average", ratio)
	}
	return 0, ""
}

func priceActionFraction(dropPct float64, nearSupport bool) (float64, string) {
	switch {
	case dropPct >= 5 && nearSupport:
		return fracPriceDropSupport, fmt.Sprintf("%.1f%% drop into support", dropPct)
	case nearSupport:
		return fracPriceNearSupport, "price near support"
	case dropPct >= 3:
		return fracPriceSharpDrop, fmt.Sprintf("%.1f%% drop", dropPct)
	}
	return 0, ""
}
