package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tradecore/internal/model"
)

// ── test fakes ──

type fakeCandles struct {
	candles []model.Candle
}

func (f *fakeCandles) GetCandles(_ context.Context, _, _ string, limit int) ([]model.Candle, error) {
	if len(f.candles) > limit {
		return f.candles[len(f.candles)-limit:], nil
	}
	return f.candles, nil
}

type fakePrices struct {
	price  float64
	prices map[string]float64
	err    error
}

func (f *fakePrices) GetPrice(_ context.Context, symbol string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.prices != nil {
		return f.prices[symbol], nil
	}
	return f.price, nil
}

func (f *fakePrices) GetPricesBatch(_ context.Context, symbols []string) (map[string]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if f.prices != nil {
			if p, ok := f.prices[s]; ok {
				out[s] = p
			}
		} else {
			out[s] = f.price
		}
	}
	return out, nil
}

type placedOrder struct {
	userID string
	req    model.OrderRequest
}

type fakeGateway struct {
	mu        sync.Mutex
	placed    []placedOrder
	placeErr  error
	fillPrice float64
	portfolio model.Portfolio
	stepSize  float64
}

func (f *fakeGateway) PlaceOrder(_ context.Context, userID string, req model.OrderRequest) (model.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return model.OrderResult{}, f.placeErr
	}
	f.placed = append(f.placed, placedOrder{userID: userID, req: req})
	price := f.fillPrice
	if price == 0 {
		price = req.Price
	}
	qty := req.Quantity
	if qty == 0 && price > 0 {
		qty = req.QuoteAmount / price
	}
	return model.OrderResult{
		OrderID:   fmt.Sprintf("ord-%d", len(f.placed)),
		Symbol:    req.Symbol,
		Side:      req.Side,
		FillQty:   qty,
		FillPrice: price,
		PlacedAt:  time.Now(),
	}, nil
}

func (f *fakeGateway) GetPortfolio(_ context.Context, _ string) (model.Portfolio, error) {
	return f.portfolio, nil
}

func (f *fakeGateway) GetSymbolInfo(_ context.Context, _ string) (model.SymbolInfo, error) {
	return model.SymbolInfo{StepSize: f.stepSize}, nil
}

func (f *fakeGateway) orders() []placedOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]placedOrder(nil), f.placed...)
}

type fakeBotStore struct {
	mu   sync.Mutex
	bots map[string]*model.Bot
}

func newFakeBotStore(bots ...*model.Bot) *fakeBotStore {
	s := &fakeBotStore{bots: make(map[string]*model.Bot)}
	for _, b := range bots {
		s.bots[b.ID] = b
	}
	return s
}

func (s *fakeBotStore) ListByStatus(_ context.Context, status model.BotStatus) ([]model.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Bot
	for _, b := range s.bots {
		if b.Status == status {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeBotStore) GetBot(_ context.Context, id string) (model.Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return model.Bot{}, errors.New("not found")
	}
	return *b, nil
}

func (s *fakeBotStore) CreateBot(_ context.Context, b model.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[b.ID] = &b
	return nil
}

func (s *fakeBotStore) SaveBotState(_ context.Context, id string, cfg model.BotConfig, totalTrades int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return errors.New("not found")
	}
	b.Config = cfg
	b.TotalTrades = totalTrades
	return nil
}

func (s *fakeBotStore) SetBotStatus(_ context.Context, id string, status model.BotStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return errors.New("not found")
	}
	b.Status = status
	b.StopReason = reason
	return nil
}

type fakeCache struct {
	mu    sync.Mutex
	grids map[string]*model.GridRuntimeState
}

func newFakeCache() *fakeCache {
	return &fakeCache{grids: make(map[string]*model.GridRuntimeState)}
}

func (c *fakeCache) GetGridState(_ context.Context, botID string) (*model.GridRuntimeState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.grids[botID]
	if !ok {
		return nil, nil
	}
	cp := *st
	cp.Positions = append([]model.GridPosition(nil), st.Positions...)
	return &cp, nil
}

func (c *fakeCache) SetGridState(_ context.Context, botID string, st *model.GridRuntimeState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grids[botID] = st
	return nil
}

func (c *fakeCache) DeleteGridState(_ context.Context, botID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grids, botID)
	return nil
}

func (c *fakeCache) MirrorSnapshot(_ context.Context, _ model.IndicatorSnapshot) error { return nil }
func (c *fakeCache) CachePrice(_ context.Context, _ string, _ float64) error          { return nil }
func (c *fakeCache) CachedPrice(_ context.Context, _ string) (float64, bool, error) {
	return 0, false, nil
}

func testDeps(store *fakeBotStore, gw *fakeGateway, prices *fakePrices, candles *fakeCandles) *Deps {
	return &Deps{
		Candles: candles,
		Prices:  prices,
		Gateway: gw,
		Bots:    store,
		Cache:   newFakeCache(),
		Now:     func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
}

// candlesWithCloses builds final hourly candles from a close series.
func candlesWithCloses(symbol string, closes []float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Symbol: symbol, Timeframe: "1h", TS: time.Unix(int64(i)*3600, 0).UTC(),
			Open: c, High: c * 1.01, Low: c * 0.99, Close: c,
			Volume: 1000, Final: true,
		}
	}
	return out
}

// ── runner ──

type panicExecutor struct{}

func (panicExecutor) Type() model.BotType { return model.BotDCA }
func (panicExecutor) Tick(context.Context, *model.Bot) error {
	panic("boom")
}

func TestRunnerIsolatesFailures(t *testing.T) {
	gw := &fakeGateway{fillPrice: 100}
	store := newFakeBotStore(
		&model.Bot{ID: "b1", UserID: "u1", Type: model.BotDCA, Symbol: "BTCUSDT", Status: model.BotRunning,
			Config: model.DCAConfig{AmountPerPurchase: 50, IntervalHours: 1, TotalPurchases: 10}},
		&model.Bot{ID: "b2", UserID: "u1", Type: "unknown_type", Symbol: "BTCUSDT", Status: model.BotRunning},
		&model.Bot{ID: "b3", UserID: "u1", Type: model.BotDCA, Symbol: "ETHUSDT", Status: model.BotRunning,
			Config: model.DCAConfig{AmountPerPurchase: 25, IntervalHours: 1, TotalPurchases: 10}},
	)
	deps := testDeps(store, gw, &fakePrices{price: 100}, &fakeCandles{})
	r := NewRunner(deps)

	// A panicking executor for a custom type must not take down the batch.
	r.executors["unknown_type"] = panicExecutor{}
	store.bots["b2"].Type = "unknown_type"

	r.TickAll(context.Background())

	if got := len(gw.orders()); got != 2 {
		t.Fatalf("placed %d orders, want 2 (one per healthy DCA bot)", got)
	}
}

func TestRunnerSkipsStoppedBots(t *testing.T) {
	gw := &fakeGateway{fillPrice: 100}
	store := newFakeBotStore(
		&model.Bot{ID: "b1", UserID: "u1", Type: model.BotDCA, Symbol: "BTCUSDT", Status: model.BotStopped,
			Config: model.DCAConfig{AmountPerPurchase: 50, IntervalHours: 1, TotalPurchases: 10}},
	)
	NewRunner(testDeps(store, gw, &fakePrices{price: 100}, &fakeCandles{})).TickAll(context.Background())
	if len(gw.orders()) != 0 {
		t.Fatalf("stopped bot traded")
	}
}

// ── amount resolution ──

func TestResolveAmountPercentage(t *testing.T) {
	gw := &fakeGateway{portfolio: model.Portfolio{
		AvailableQuote: 1000,
		Holdings:       []model.Holding{{Asset: "SOL", Amount: 40, Price: 25}},
	}}
	ctx := context.Background()

	buy, err := ResolveAmount(ctx, gw, "u1", "SOLUSDT", model.SideBuy,
		model.AmountSpec{Mode: model.AmountPercentage, Value: 10}, 25)
	if err != nil {
		t.Fatal(err)
	}
	if buy.QuoteAmount != 100 {
		t.Errorf("buy quote = %v, want 100 (10%% of 1000)", buy.QuoteAmount)
	}

	sell, err := ResolveAmount(ctx, gw, "u1", "SOLUSDT", model.SideSell,
		model.AmountSpec{Mode: model.AmountPercentage, Value: 50}, 25)
	if err != nil {
		t.Fatal(err)
	}
	if sell.Quantity != 20 {
		t.Errorf("sell qty = %v, want 20 (50%% of 40)", sell.Quantity)
	}
}

func TestRoundToStep(t *testing.T) {
	tests := []struct {
		qty, step, want float64
	}{
		{1.23456, 0.01, 1.23},
		{1.23456, 0, 1.23456},
		{0.009, 0.01, 0},
		{5, 1, 5},
	}
	for _, tt := range tests {
		if got := RoundToStep(tt.qty, tt.step); got != tt.want {
			t.Errorf("RoundToStep(%v, %v) = %v, want %v", tt.qty, tt.step, got, tt.want)
		}
	}
}

func TestBaseAsset(t *testing.T) {
	tests := map[string]string{
		"SOLUSDT": "SOL",
		"BTCUSDT": "BTC",
		"ETHBTC":  "ETH",
		"USDT":    "USDT",
	}
	for in, want := range tests {
		if got := BaseAsset(in); got != want {
			t.Errorf("BaseAsset(%q) = %q, want %q", in, got, want)
		}
	}
}

// ── DCA ──

func TestDCAIntervalAndExhaustion(t *testing.T) {
	gw := &fakeGateway{fillPrice: 100}
	now := time.Unix(1_700_000_000, 0)
	b := &model.Bot{ID: "d1", UserID: "u1", Type: model.BotDCA, Symbol: "BTCUSDT", Status: model.BotRunning,
		Config: model.DCAConfig{AmountPerPurchase: 50, IntervalHours: 1, TotalPurchases: 2}}
	store := newFakeBotStore(b)
	deps := testDeps(store, gw, &fakePrices{price: 100}, &fakeCandles{})
	deps.Now = func() time.Time { return now }
	ex := NewDCAExecutor(deps)
	ctx := context.Background()

	if err := ex.Tick(ctx, b); err != nil {
		t.Fatal(err)
	}
	if len(gw.orders()) != 1 {
		t.Fatalf("first tick placed %d orders, want 1", len(gw.orders()))
	}

	// Second tick within the interval: nothing.
	if err := ex.Tick(ctx, b); err != nil {
		t.Fatal(err)
	}
	if len(gw.orders()) != 1 {
		t.Fatalf("tick within interval traded")
	}

	// Advance past the interval: final purchase, then self-stop.
	now = now.Add(2 * time.Hour)
	if err := ex.Tick(ctx, b); err != nil {
		t.Fatal(err)
	}
	if len(gw.orders()) != 2 {
		t.Fatalf("placed %d orders, want 2", len(gw.orders()))
	}
	if b.Status != model.BotStopped {
		t.Errorf("bot status = %q, want stopped after exhausting purchases", b.Status)
	}
	cfg := b.Config.(model.DCAConfig)
	if cfg.PurchasesMade != 2 {
		t.Errorf("purchasesMade = %d, want 2", cfg.PurchasesMade)
	}
}

// ── MACD first-tick guard ──

func TestMACDFirstTickNeverTrades(t *testing.T) {
	// A series ending in a fresh bullish regime: the first tick must only
	// seed the direction guard.
	closes := make([]float64, 0, 80)
	p := 100.0
	for i := 0; i < 60; i++ {
		p -= 0.5
		closes = append(closes, p)
	}
	for i := 0; i < 20; i++ {
		p += 2
		closes = append(closes, p)
	}

	gw := &fakeGateway{fillPrice: p}
	b := &model.Bot{ID: "m1", UserID: "u1", Type: model.BotMACD, Symbol: "BTCUSDT", Status: model.BotRunning,
		Config: model.MACDConfig{Amount: 100}}
	store := newFakeBotStore(b)
	deps := testDeps(store, gw, &fakePrices{price: p}, &fakeCandles{candles: candlesWithCloses("BTCUSDT", closes)})
	ex := NewMACDExecutor(deps)

	if err := ex.Tick(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	if len(gw.orders()) != 0 {
		t.Fatalf("first tick traded, want guard seeding only")
	}
	cfg := b.Config.(model.MACDConfig)
	if cfg.LastDirection == "" {
		t.Fatal("first tick did not seed lastDirection")
	}
}

func TestMACDFiresOncePerCross(t *testing.T) {
	// Downtrend then recovery: histogram flips negative to positive.
	down := make([]float64, 0, 100)
	p := 200.0
	for i := 0; i < 60; i++ {
		p -= 1
		down = append(down, p)
	}
	up := append([]float64(nil), down...)
	for i := 0; i < 40; i++ {
		p += 3
		up = append(up, p)
	}

	feed := &fakeCandles{candles: candlesWithCloses("BTCUSDT", down)}
	gw := &fakeGateway{fillPrice: p}
	b := &model.Bot{ID: "m2", UserID: "u1", Type: model.BotMACD, Symbol: "BTCUSDT", Status: model.BotRunning,
		Config: model.MACDConfig{Amount: 100}}
	store := newFakeBotStore(b)
	deps := testDeps(store, gw, &fakePrices{price: p}, feed)
	ex := NewMACDExecutor(deps)
	ctx := context.Background()

	// Seed the guard in the bearish regime.
	if err := ex.Tick(ctx, b); err != nil {
		t.Fatal(err)
	}
	if b.Config.(model.MACDConfig).LastDirection != "bearish" {
		t.Fatalf("seeded direction = %q, want bearish", b.Config.(model.MACDConfig).LastDirection)
	}

	// Regime flips bullish: exactly one buy, then silence while it persists.
	feed.candles = candlesWithCloses("BTCUSDT", up)
	for i := 0; i < 3; i++ {
		if err := ex.Tick(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	orders := gw.orders()
	if len(orders) != 1 {
		t.Fatalf("placed %d orders across sustained bullish run, want exactly 1", len(orders))
	}
	if orders[0].req.Side != model.SideBuy {
		t.Errorf("side = %q, want BUY", orders[0].req.Side)
	}
}
