package model

import (
	"encoding/json"
	"time"
)

// IndicatorSnapshot holds the latest computed indicator values for one
// (symbol, timeframe) pair. It is overwritten on each recomputation; no
// history is retained here.
type IndicatorSnapshot struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	TS        time.Time `json:"ts"`

	Price float64 `json:"price"` // close of the latest candle used

	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDHist   float64 `json:"macd_hist"`

	BollUpper  float64 `json:"boll_upper"`
	BollMiddle float64 `json:"boll_middle"`
	BollLower  float64 `json:"boll_lower"`

	EMA9   float64 `json:"ema_9"`
	EMA20  float64 `json:"ema_20"`
	EMA21  float64 `json:"ema_21"`
	EMA50  float64 `json:"ema_50"`
	EMA200 float64 `json:"ema_200"`

	ATR     float64 `json:"atr"`
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`

	StochK float64 `json:"stoch_k"`
	StochD float64 `json:"stoch_d"`

	VolumeSMA   float64 `json:"volume_sma"`
	VolumeRatio float64 `json:"volume_ratio"` // last volume / VolumeSMA
}

// JSON returns the JSON-encoded snapshot.
func (s *IndicatorSnapshot) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
