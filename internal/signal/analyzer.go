// Package signal scores indicator snapshots into directional trading
// signals and blends user-weighted components into a confidence value.
//
// The analyzer is read-only: it never places orders. Its output is a
// decision input consumed by the bot executors and the auto-entry path.
package signal

import (
	"fmt"
	"math"

	"tradecore/internal/model"
)

// Signal directions.
const (
	SignalBuy     = "buy"
	SignalSell    = "sell"
	SignalNeutral = "neutral"
)

// Signal strengths.
const (
	StrengthStrong = "strong"
	StrengthMedium = "medium"
	StrengthWeak   = "weak"
)

// ReferenceSymbol is the market-bias reference asset.
const ReferenceSymbol = "BTCUSDT"

// minSignalScore is the minimum absolute score for a non-neutral signal.
const minSignalScore = 3

// Result is the analyzer's output for one (symbol, timeframe).
type Result struct {
	Symbol     string   `json:"symbol"`
	Timeframe  string   `json:"timeframe"`
	Signal     string   `json:"signal"`
	Strength   string   `json:"strength"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`

	// BTCBias is set for non-reference symbols: the reference asset's
	// market bias in points (positive = bullish).
	BTCBias *int `json:"btc_bias,omitempty"`

	// MultiTFConfirmed is set when higher-timeframe checks ran.
	MultiTFConfirmed *bool `json:"multi_tf_confirmed,omitempty"`
}

// Analyzer scores snapshots from the snapshot store.
type Analyzer struct {
	snapshots model.SnapshotStore
}

// NewAnalyzer creates an analyzer reading from the given store.
func NewAnalyzer(snapshots model.SnapshotStore) *Analyzer {
	return &Analyzer{snapshots: snapshots}
}

// Analyze scores one symbol and timeframe. A missing snapshot yields
// neutral with confidence 0 rather than an error.
func (a *Analyzer) Analyze(symbol, timeframe string, adv model.AdvancedSignalSettings) Result {
	res := Result{Symbol: symbol, Timeframe: timeframe, Signal: SignalNeutral, Strength: StrengthWeak}

	snap, ok := a.snapshots.Get(symbol, timeframe)
	if !ok {
		res.Reasons = []string{"insufficient data"}
		return res
	}

	buy, sell, reasons := scoreComponents(snap)
	res.Reasons = reasons

	// Provisional signal: strictly greater side with a minimum score.
	provisional := SignalNeutral
	if buy > sell && buy >= minSignalScore {
		provisional = SignalBuy
	} else if sell > buy && sell >= minSignalScore {
		provisional = SignalSell
	}
	if provisional == SignalNeutral {
		// Terminal: no bias adjustment or confirmation for neutral.
		return res
	}

	// Reference-asset bias: ±1 point, reinforcing when aligned.
	adjusted := false
	if symbol != ReferenceSymbol {
		if btcSnap, ok := a.snapshots.Get(ReferenceSymbol, timeframe); ok {
			bias := marketBias(btcSnap)
			res.BTCBias = &bias
			adjusted = true
			switch {
			case bias > 0 && provisional == SignalBuy:
				buy++
				res.Reasons = append(res.Reasons, "BTC bias aligned (bullish)")
			case bias > 0 && provisional == SignalSell:
				sell--
				res.Reasons = append(res.Reasons, "BTC bias opposed (bullish)")
			case bias < 0 && provisional == SignalSell:
				sell++
				res.Reasons = append(res.Reasons, "BTC bias aligned (bearish)")
			case bias < 0 && provisional == SignalBuy:
				buy--
				res.Reasons = append(res.Reasons, "BTC bias opposed (bearish)")
			}
		}
	}

	// BTC-dump filter: a sharp reference-asset drop blocks long entries.
	if adv.BTCDumpFilter && provisional == SignalBuy && symbol != ReferenceSymbol {
		if btcSnap, ok := a.snapshots.Get(ReferenceSymbol, "15m"); ok && btcSnap.EMA9 > 0 {
			dropPct := (btcSnap.EMA9 - btcSnap.Price) / btcSnap.EMA9 * 100
			if dropPct >= adv.BTCDumpThresholdPct {
				res.Reasons = append(res.Reasons,
					fmt.Sprintf("BTC dump filter: %.1f%% below 15m EMA9", dropPct))
				return res
			}
		}
	}

	// Multi-timeframe confirmation weight.
	mtfWeight := 0.5
	if adv.MultiTF || adv.FeatureSet == "" {
		weight, checked, confirmed := a.multiTFWeight(symbol, timeframe, provisional)
		if checked {
			mtfWeight = weight
			res.MultiTFConfirmed = &confirmed
			if confirmed {
				res.Reasons = append(res.Reasons, "higher timeframes confirm")
			} else {
				res.Reasons = append(res.Reasons, "higher timeframes contradict")
			}
		}
	}

	if buy < 0 {
		buy = 0
	}
	if sell < 0 {
		sell = 0
	}

	// Re-derive signal and strength from the adjusted scores.
	res.Signal = SignalNeutral
	score := 0
	if buy > sell && buy >= minSignalScore {
		res.Signal = SignalBuy
		score = buy
	} else if sell > buy && sell >= minSignalScore {
		res.Signal = SignalSell
		score = sell
	}
	if res.Signal == SignalNeutral {
		return res
	}

	// Strength tiers differ with adjustment because the bias shifts the
	// achievable score range.
	if adjusted {
		switch {
		case score >= 6:
			res.Strength = StrengthStrong
		case score >= 4:
			res.Strength = StrengthMedium
		default:
			res.Strength = StrengthWeak
		}
	} else {
		switch {
		case score >= 5:
			res.Strength = StrengthStrong
		case score >= 4:
			res.Strength = StrengthMedium
		default:
			res.Strength = StrengthWeak
		}
	}

	if buy+sell > 0 {
		res.Confidence = math.Abs(float64(buy-sell)) / float64(buy+sell)
	}
	res.Confidence *= 0.7 + 0.3*mtfWeight
	res.Confidence = clamp01(res.Confidence)
	return res
}

// scoreComponents turns one snapshot into bullish and bearish point
// totals with human-readable reasons.
func scoreComponents(snap model.IndicatorSnapshot) (buy, sell int, reasons []string) {
	// RSI oversold/overbought tiers.
	switch {
	case snap.RSI <= 25:
		buy += 3
		reasons = append(reasons, fmt.Sprintf("RSI deeply oversold (%.1f)", snap.RSI))
	case snap.RSI <= 30:
		buy += 2
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", snap.RSI))
	case snap.RSI <= 40:
		buy++
		reasons = append(reasons, fmt.Sprintf("RSI leaning oversold (%.1f)", snap.RSI))
	case snap.RSI >= 75:
		sell += 3
		reasons = append(reasons, fmt.Sprintf("RSI deeply overbought (%.1f)", snap.RSI))
	case snap.RSI >= 70:
		sell += 2
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", snap.RSI))
	case snap.RSI >= 60:
		sell++
		reasons = append(reasons, fmt.Sprintf("RSI leaning overbought (%.1f)", snap.RSI))
	}

	// MACD: histogram direction, doubled when the lines agree.
	if snap.MACDHist > 0 {
		if snap.MACD > snap.MACDSignal && snap.MACD > 0 {
			buy += 2
			reasons = append(reasons, "MACD bullish above zero")
		} else {
			buy++
			reasons = append(reasons, "MACD histogram positive")
		}
	} else if snap.MACDHist < 0 {
		if snap.MACD < snap.MACDSignal && snap.MACD < 0 {
			sell += 2
			reasons = append(reasons, "MACD bearish below zero")
		} else {
			sell++
			reasons = append(reasons, "MACD histogram negative")
		}
	}

	// Bollinger %B proximity plus squeeze amplification.
	if width := snap.BollUpper - snap.BollLower; width > 0 {
		pb := (snap.Price - snap.BollLower) / width
		switch {
		case pb <= 0.05:
			buy += 2
			reasons = append(reasons, "price at lower Bollinger band")
		case pb <= 0.20:
			buy++
			reasons = append(reasons, "price near lower Bollinger band")
		case pb >= 0.95:
			sell += 2
			reasons = append(reasons, "price at upper Bollinger band")
		case pb >= 0.80:
			sell++
			reasons = append(reasons, "price near upper Bollinger band")
		}
		if snap.BollMiddle > 0 && width/snap.BollMiddle < 0.04 {
			// Tight bands: breakout pressure amplifies the leading side.
			if buy > sell {
				buy++
				reasons = append(reasons, "Bollinger squeeze (bullish lean)")
			} else if sell > buy {
				sell++
				reasons = append(reasons, "Bollinger squeeze (bearish lean)")
			}
		}
	}

	// EMA alignment.
	if snap.EMA9 > snap.EMA21 && snap.EMA21 > snap.EMA50 {
		buy += 2
		reasons = append(reasons, "EMA alignment bullish (9>21>50)")
	} else if snap.EMA9 < snap.EMA21 && snap.EMA21 < snap.EMA50 {
		sell += 2
		reasons = append(reasons, "EMA alignment bearish (9<21<50)")
	}
	if snap.EMA200 > 0 {
		if snap.Price > snap.EMA200 {
			buy++
		} else if snap.Price < snap.EMA200 {
			sell++
		}
	}

	// Stochastic extremes.
	if snap.StochK <= 20 && snap.StochD <= 20 {
		buy++
		reasons = append(reasons, fmt.Sprintf("stochastic oversold (%.1f/%.1f)", snap.StochK, snap.StochD))
	} else if snap.StochK >= 80 && snap.StochD >= 80 {
		sell++
		reasons = append(reasons, fmt.Sprintf("stochastic overbought (%.1f/%.1f)", snap.StochK, snap.StochD))
	}

	// Volume spike amplifies the side already leading.
	if snap.VolumeRatio >= 1.5 && buy != sell {
		boost := 1
		if snap.VolumeRatio >= 2 {
			boost = 2
		}
		if buy > sell {
			buy += boost
		} else {
			sell += boost
		}
		reasons = append(reasons, fmt.Sprintf("volume spike x%.1f", snap.VolumeRatio))
	}

	return buy, sell, reasons
}

// marketBias scores the reference asset's snapshot into a net bias:
// EMA alignment, RSI and MACD histogram scored the same way as signal
// components. Positive = bullish.
func marketBias(snap model.IndicatorSnapshot) int {
	bias := 0
	if snap.EMA9 > snap.EMA21 && snap.EMA21 > snap.EMA50 {
		bias += 2
	} else if snap.EMA9 < snap.EMA21 && snap.EMA21 < snap.EMA50 {
		bias -= 2
	}
	if snap.RSI >= 55 {
		bias++
	} else if snap.RSI <= 45 {
		bias--
	}
	if snap.MACDHist > 0 {
		bias++
	} else if snap.MACDHist < 0 {
		bias--
	}
	return bias
}

// multiTFWeight checks the higher timeframes for EMA-alignment and
// RSI-trend agreement with the provisional direction. Returns
// checked=false when no higher-timeframe snapshot is available, in which
// case the caller keeps the default weight 0.5.
func (a *Analyzer) multiTFWeight(symbol, timeframe, direction string) (weight float64, checked, confirmed bool) {
	confirmations, contradictions := 0, 0
	for _, higher := range model.HigherTimeframes[timeframe] {
		snap, ok := a.snapshots.Get(symbol, higher)
		if !ok {
			continue
		}
		emaBullish := snap.EMA9 > snap.EMA21
		rsiBullish := snap.RSI > 50
		for _, bullish := range []bool{emaBullish, rsiBullish} {
			if (direction == SignalBuy) == bullish {
				confirmations++
			} else {
				contradictions++
			}
		}
	}
	if confirmations+contradictions == 0 {
		return 0.5, false, false
	}
	weight = float64(confirmations) / float64(confirmations+contradictions)
	return weight, true, weight > 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
