package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLCV bar for a symbol at a fixed timeframe.
// Final is false only for the most recent, still-forming bar; a candle
// is immutable once Final is true.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	TS        time.Time `json:"ts"` // bucket open time (UTC)
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Final     bool      `json:"final"`
}

// Key returns a unique key for this candle's series: "symbol:timeframe".
func (c *Candle) Key() string {
	return c.Symbol + ":" + c.Timeframe
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Timeframes supported by the engine, shortest first.
var Timeframes = []string{"1m", "5m", "15m", "1h", "4h", "1d"}

// HigherTimeframes maps a timeframe to the 1-2 higher timeframes used for
// multi-timeframe confirmation. The daily timeframe has none.
var HigherTimeframes = map[string][]string{
	"1m":  {"5m", "15m"},
	"5m":  {"15m", "1h"},
	"15m": {"1h", "4h"},
	"1h":  {"4h", "1d"},
	"4h":  {"1d"},
	"1d":  {},
}

// TimeframeDuration converts a timeframe string to its duration.
// Unknown timeframes return 0.
func TimeframeDuration(tf string) time.Duration {
	switch tf {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	}
	return 0
}
