package indengine

import (
	"tradecore/internal/indicator"
	"tradecore/internal/model"
)

const (
	// CandleFetchLimit is how much history each recomputation requests.
	CandleFetchLimit = 200

	// MinCandles is the minimum history below which no snapshot is
	// written; the pair is skipped, not zeroed.
	MinCandles = 30
)

// ComputeSnapshot computes every indicator over the given candles.
// Deterministic: identical candle windows yield identical snapshots.
// Returns ok=false when the history is too short to write a snapshot.
func ComputeSnapshot(symbol, timeframe string, candles []model.Candle) (model.IndicatorSnapshot, bool) {
	if len(candles) < MinCandles {
		return model.IndicatorSnapshot{}, false
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}
	last := candles[len(candles)-1]

	snap := model.IndicatorSnapshot{
		Symbol:    symbol,
		Timeframe: timeframe,
		TS:        last.TS,
		Price:     last.Close,
	}

	snap.RSI = indicator.RSI(closes, indicator.DefaultRSIPeriod)

	macd := indicator.MACD(closes, 12, 26, 9)
	snap.MACD = macd.MACD
	snap.MACDSignal = macd.Signal
	snap.MACDHist = macd.Histogram

	boll := indicator.Bollinger(closes, 20, 2)
	snap.BollUpper = boll.Upper
	snap.BollMiddle = boll.Middle
	snap.BollLower = boll.Lower

	snap.EMA9 = indicator.EMA(closes, 9)
	snap.EMA20 = indicator.EMA(closes, 20)
	snap.EMA21 = indicator.EMA(closes, 21)
	snap.EMA50 = indicator.EMA(closes, 50)
	snap.EMA200 = indicator.EMA(closes, 200)

	atr := indicator.ATR(candles, 14)
	snap.ATR = atr.ATR

	adx := indicator.ADX(candles, 14)
	snap.ADX = adx.ADX
	snap.PlusDI = adx.PlusDI
	snap.MinusDI = adx.MinusDI

	stoch := indicator.Stochastic(highs, lows, closes, 14, 3)
	snap.StochK = stoch.K
	snap.StochD = stoch.D

	snap.VolumeSMA = indicator.SMA(volumes, 20)
	if snap.VolumeSMA > 0 {
		snap.VolumeRatio = last.Volume / snap.VolumeSMA
	}

	return snap, true
}
