package signal

import (
	"testing"
	"time"

	"tradecore/internal/indengine"
	"tradecore/internal/model"
)

func risingCandles(symbol, tf string, n int, start, step float64) []model.Candle {
	out := make([]model.Candle, n)
	price := start
	for i := range out {
		out[i] = model.Candle{
			Symbol: symbol, Timeframe: tf,
			TS:    time.Unix(int64(i)*3600, 0).UTC(),
			Open:  price, High: price + step, Low: price - step/2, Close: price + step,
			Volume: 1000, Final: true,
		}
		price += step
	}
	return out
}

func TestAnalyzeMissingSnapshot(t *testing.T) {
	a := NewAnalyzer(indengine.NewStore())
	res := a.Analyze("ETHUSDT", "1h", model.DefaultAdvancedSignalSettings("u1"))

	if res.Signal != SignalNeutral {
		t.Fatalf("signal = %q, want neutral", res.Signal)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
	if len(res.Reasons) != 1 || res.Reasons[0] != "insufficient data" {
		t.Errorf("reasons = %v, want [insufficient data]", res.Reasons)
	}
}

func TestAnalyzeRisingClosesNeverSell(t *testing.T) {
	store := indengine.NewStore()
	candles := risingCandles("BTCUSDT", "1h", 200, 100, 1)
	snap, ok := indengine.ComputeSnapshot("BTCUSDT", "1h", candles)
	if !ok {
		t.Fatal("ComputeSnapshot returned ok=false for 200 candles")
	}
	if !(snap.EMA9 > snap.EMA21 && snap.EMA21 > snap.EMA50) {
		t.Fatalf("EMA alignment not bullish: 9=%v 21=%v 50=%v", snap.EMA9, snap.EMA21, snap.EMA50)
	}
	if snap.MACDHist <= 0 {
		t.Fatalf("MACD histogram = %v, want > 0 on rising closes", snap.MACDHist)
	}
	store.Set(snap)

	a := NewAnalyzer(store)
	res := a.Analyze("BTCUSDT", "1h", model.DefaultAdvancedSignalSettings("u1"))
	if res.Signal == SignalSell {
		t.Fatalf("signal = sell on strictly rising closes, reasons: %v", res.Reasons)
	}
}

func TestAnalyzeConfidenceWithinBounds(t *testing.T) {
	store := indengine.NewStore()
	for _, tf := range []string{"1h", "4h", "1d"} {
		snap, ok := indengine.ComputeSnapshot("ETHUSDT", tf, risingCandles("ETHUSDT", tf, 200, 50, 0.5))
		if !ok {
			t.Fatalf("ComputeSnapshot failed for %s", tf)
		}
		store.Set(snap)
	}
	a := NewAnalyzer(store)

	adv := model.DefaultAdvancedSignalSettings("u1")
	adv.MultiTF = true
	res := a.Analyze("ETHUSDT", "1h", adv)
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Fatalf("confidence = %v, want within [0,1]", res.Confidence)
	}
}

func TestAnalyzeBTCBiasAdjustsAltcoin(t *testing.T) {
	bullish := model.IndicatorSnapshot{
		Symbol: "SOLUSDT", Timeframe: "1h", Price: 105,
		RSI: 28, MACD: 1.2, MACDSignal: 0.8, MACDHist: 0.4,
		BollUpper: 120, BollMiddle: 110, BollLower: 104,
		EMA9: 104, EMA21: 102, EMA50: 100, EMA200: 90,
		StochK: 15, StochD: 18, VolumeRatio: 1,
	}

	// Without a reference snapshot no bias is applied.
	store := indengine.NewStore()
	store.Set(bullish)
	a := NewAnalyzer(store)
	base := a.Analyze("SOLUSDT", "1h", model.AdvancedSignalSettings{})
	if base.Signal != SignalBuy {
		t.Fatalf("base signal = %q, want buy (reasons %v)", base.Signal, base.Reasons)
	}
	if base.BTCBias != nil {
		t.Fatal("BTCBias set without a reference snapshot")
	}

	// A bearish reference asset opposes the buy.
	store.Set(model.IndicatorSnapshot{
		Symbol: "BTCUSDT", Timeframe: "1h", Price: 100,
		RSI: 35, MACDHist: -1, EMA9: 95, EMA21: 97, EMA50: 99,
	})
	opposed := a.Analyze("SOLUSDT", "1h", model.AdvancedSignalSettings{})
	if opposed.BTCBias == nil || *opposed.BTCBias >= 0 {
		t.Fatalf("BTCBias = %v, want negative", opposed.BTCBias)
	}
	if opposed.Signal != SignalBuy {
		t.Fatalf("signal flipped to %q under a -1 adjustment", opposed.Signal)
	}
}

func TestAnalyzeBTCDumpFilterBlocksBuy(t *testing.T) {
	store := indengine.NewStore()
	store.Set(model.IndicatorSnapshot{
		Symbol: "SOLUSDT", Timeframe: "1h", Price: 105,
		RSI: 28, MACD: 1.2, MACDSignal: 0.8, MACDHist: 0.4,
		BollUpper: 120, BollMiddle: 110, BollLower: 104,
		EMA9: 104, EMA21: 102, EMA50: 100, EMA200: 90,
		StochK: 15, StochD: 18, VolumeRatio: 1,
	})
	// Reference 15m snapshot 5% below its EMA9: a dump in progress.
	store.Set(model.IndicatorSnapshot{
		Symbol: "BTCUSDT", Timeframe: "15m", Price: 95, EMA9: 100,
	})

	adv := model.AdvancedSignalSettings{BTCDumpFilter: true, BTCDumpThresholdPct: 2.0}
	res := NewAnalyzer(store).Analyze("SOLUSDT", "1h", adv)
	if res.Signal != SignalNeutral {
		t.Fatalf("signal = %q, want neutral under dump filter", res.Signal)
	}
}

func TestMultiTFWeight(t *testing.T) {
	store := indengine.NewStore()
	// 1h's higher timeframes are 4h and 1d. Both bullish.
	for _, tf := range []string{"4h", "1d"} {
		store.Set(model.IndicatorSnapshot{
			Symbol: "BTCUSDT", Timeframe: tf,
			RSI: 60, EMA9: 102, EMA21: 100,
		})
	}
	a := NewAnalyzer(store)
	weight, checked, confirmed := a.multiTFWeight("BTCUSDT", "1h", SignalBuy)
	if !checked || !confirmed {
		t.Fatalf("checked=%v confirmed=%v, want both true", checked, confirmed)
	}
	if weight != 1 {
		t.Errorf("weight = %v, want 1 when every check agrees", weight)
	}

	// No higher timeframes for 1d: default weight, not checked.
	weight, checked, _ = a.multiTFWeight("BTCUSDT", "1d", SignalBuy)
	if checked || weight != 0.5 {
		t.Errorf("weight=%v checked=%v for 1d, want 0.5/false", weight, checked)
	}
}
