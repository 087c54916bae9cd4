package ws

import (
	"testing"
	"time"
)

const closedFrame = `{
  "stream": "btcusdt@kline_1m",
  "data": {
    "e": "kline", "E": 1672515782136, "s": "BTCUSDT",
    "k": {
      "t": 1672515780000, "T": 1672515839999, "s": "BTCUSDT", "i": "1m",
      "o": "16568.45", "c": "16570.12", "h": "16571.00", "l": "16567.90",
      "v": "34.205", "x": true
    }
  }
}`

const openFrame = `{
  "stream": "ethusdt@kline_1h",
  "data": {
    "e": "kline", "s": "ETHUSDT",
    "k": {
      "t": 1672513200000, "i": "1h",
      "o": "1195.00", "c": "1201.55", "h": "1203.10", "l": "1192.80",
      "v": "812.4", "x": false
    }
  }
}`

func TestParseKlineEventClosed(t *testing.T) {
	candle, closed, err := parseKlineEvent([]byte(closedFrame))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !closed {
		t.Fatal("expected closed kline")
	}
	if candle.Symbol != "BTCUSDT" || candle.Timeframe != "1m" {
		t.Fatalf("wrong key: %s:%s", candle.Symbol, candle.Timeframe)
	}
	if !candle.Final {
		t.Fatal("closed kline must be final")
	}
	if candle.Close != 16570.12 || candle.Volume != 34.205 {
		t.Fatalf("wrong OHLCV: close=%v vol=%v", candle.Close, candle.Volume)
	}
	want := time.UnixMilli(1672515780000).UTC()
	if !candle.TS.Equal(want) {
		t.Fatalf("wrong open time: %v", candle.TS)
	}
}

func TestParseKlineEventOpen(t *testing.T) {
	candle, closed, err := parseKlineEvent([]byte(openFrame))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if closed || candle.Final {
		t.Fatal("forming kline must not be final")
	}
	if candle.Close != 1201.55 {
		t.Fatalf("wrong close: %v", candle.Close)
	}
}

func TestParseKlineEventRejectsNonKline(t *testing.T) {
	if _, _, err := parseKlineEvent([]byte(`{"stream":"btcusdt@trade","data":{}}`)); err == nil {
		t.Fatal("expected error for non-kline frame")
	}
}

func TestStreamURL(t *testing.T) {
	ing, err := New(IngestConfig{
		BaseURL:    "wss://example.test",
		Symbols:    []string{"BTCUSDT", "ethusdt"},
		Timeframes: []string{"1m", "1h"},
	}, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got := ing.streamURL()
	want := "wss://example.test/stream?streams=btcusdt@kline_1m/btcusdt@kline_1h/ethusdt@kline_1m/ethusdt@kline_1h"
	if got != want {
		t.Fatalf("url mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestNewRequiresStreams(t *testing.T) {
	if _, err := New(IngestConfig{Symbols: []string{"BTCUSDT"}}, nil, nil); err == nil {
		t.Fatal("expected error without timeframes")
	}
}
