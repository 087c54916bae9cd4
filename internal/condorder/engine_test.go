package condorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tradecore/internal/model"
)

// ── fakes ──

type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*model.ConditionalOrder
}

func newFakeOrderStore(orders ...*model.ConditionalOrder) *fakeOrderStore {
	s := &fakeOrderStore{orders: make(map[string]*model.ConditionalOrder)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *fakeOrderStore) ListActive(context.Context) ([]model.ConditionalOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ConditionalOrder
	for _, o := range s.orders {
		if o.Status == model.OrderActive {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) CreateOrder(_ context.Context, o model.ConditionalOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = &o
	return nil
}

func (s *fakeOrderStore) MarkTerminal(_ context.Context, id string, status model.OrderStatus, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return errors.New("not found")
	}
	if o.Status != model.OrderActive {
		return errors.New("already terminal")
	}
	o.Status = status
	o.Error = errMsg
	if status == model.OrderTriggered {
		t := at
		o.TriggeredAt = &t
	}
	return nil
}

func (s *fakeOrderStore) UpdateLastPrice(_ context.Context, id string, price float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return errors.New("not found")
	}
	o.LastPrice = price
	return nil
}

func (s *fakeOrderStore) get(id string) model.ConditionalOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.orders[id]
}

type fakePrices struct {
	prices map[string]float64
}

func (f *fakePrices) GetPrice(_ context.Context, symbol string) (float64, error) {
	return f.prices[symbol], nil
}

func (f *fakePrices) GetPricesBatch(_ context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	placed   []model.OrderRequest
	placeErr error
}

func (f *fakeGateway) PlaceOrder(_ context.Context, _ string, req model.OrderRequest) (model.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return model.OrderResult{}, f.placeErr
	}
	f.placed = append(f.placed, req)
	return model.OrderResult{OrderID: "x", FillQty: req.Quantity, FillPrice: 100}, nil
}

func (f *fakeGateway) GetPortfolio(context.Context, string) (model.Portfolio, error) {
	return model.Portfolio{AvailableQuote: 1000}, nil
}

func (f *fakeGateway) GetSymbolInfo(context.Context, string) (model.SymbolInfo, error) {
	return model.SymbolInfo{StepSize: 0.001}, nil
}

func (f *fakeGateway) orders() []model.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.OrderRequest(nil), f.placed...)
}

func activeOrder(id string, cond model.OrderCondition, trigger, lastPrice float64) *model.ConditionalOrder {
	return &model.ConditionalOrder{
		ID: id, UserID: "u1", Symbol: "BTCUSDT",
		Condition: cond, TriggerPrice: trigger, LastPrice: lastPrice,
		Action: model.OrderAction{
			Side: model.SideBuy, Type: "market",
			Amount: model.AmountSpec{Mode: model.AmountQuote, Value: 100},
		},
		Status:    model.OrderActive,
		CreatedAt: time.Unix(1_700_000_000, 0),
	}
}

func newTestEngine(store *fakeOrderStore, prices *fakePrices, gw *fakeGateway) *Engine {
	e := New(store, prices, gw, nil, nil)
	e.now = func() time.Time { return time.Unix(1_700_000_100, 0) }
	return e
}

// ── condition semantics ──

func TestConditionMet(t *testing.T) {
	tests := []struct {
		name      string
		cond      model.OrderCondition
		trigger   float64
		lastPrice float64
		price     float64
		want      bool
	}{
		{"above met", model.CondAbove, 100, 0, 101, true},
		{"above at trigger", model.CondAbove, 100, 0, 100, true},
		{"above not met", model.CondAbove, 100, 0, 99, false},
		{"below met", model.CondBelow, 100, 0, 99, true},
		{"below not met", model.CondBelow, 100, 0, 101, false},

		{"crosses_up actual crossing", model.CondCrossesUp, 100, 95, 101, true},
		{"crosses_up already above", model.CondCrossesUp, 100, 101, 105, false},
		{"crosses_up no prior price", model.CondCrossesUp, 100, 0, 101, false},
		{"crosses_up still below", model.CondCrossesUp, 100, 95, 99, false},
		{"crosses_up from trigger exactly", model.CondCrossesUp, 100, 100, 105, false},

		{"crosses_down actual crossing", model.CondCrossesDown, 100, 105, 99, true},
		{"crosses_down already below", model.CondCrossesDown, 100, 99, 95, false},
		{"crosses_down still above", model.CondCrossesDown, 100, 105, 101, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConditionMet(tt.cond, tt.trigger, tt.lastPrice, tt.price)
			if got != tt.want {
				t.Errorf("ConditionMet(%s, trig=%v, last=%v, cur=%v) = %v, want %v",
					tt.cond, tt.trigger, tt.lastPrice, tt.price, got, tt.want)
			}
		})
	}
}

// ── engine behavior ──

func TestTickFiresAndMarksTriggered(t *testing.T) {
	store := newFakeOrderStore(activeOrder("o1", model.CondCrossesUp, 100, 95))
	gw := &fakeGateway{}
	e := newTestEngine(store, &fakePrices{prices: map[string]float64{"BTCUSDT": 101}}, gw)

	e.Tick(context.Background())

	if len(gw.orders()) != 1 {
		t.Fatalf("placed %d orders, want 1", len(gw.orders()))
	}
	o := store.get("o1")
	if o.Status != model.OrderTriggered {
		t.Fatalf("status = %q, want triggered", o.Status)
	}
	if o.TriggeredAt == nil {
		t.Error("triggeredAt not recorded")
	}
	if o.LastPrice != 101 {
		t.Errorf("lastPrice = %v, want 101 (updated after evaluation)", o.LastPrice)
	}
}

func TestTickUpdatesLastPriceWithoutFiring(t *testing.T) {
	store := newFakeOrderStore(activeOrder("o1", model.CondCrossesUp, 100, 0))
	gw := &fakeGateway{}
	e := newTestEngine(store, &fakePrices{prices: map[string]float64{"BTCUSDT": 98}}, gw)

	e.Tick(context.Background())

	o := store.get("o1")
	if o.Status != model.OrderActive {
		t.Fatalf("status = %q, want still active", o.Status)
	}
	if o.LastPrice != 98 {
		t.Errorf("lastPrice = %v, want 98", o.LastPrice)
	}
}

func TestCrossingNeedsTrackedApproach(t *testing.T) {
	// Created while already above its trigger: must never fire on the
	// approach side, only after dipping below and re-crossing.
	store := newFakeOrderStore(activeOrder("o1", model.CondCrossesUp, 100, 0))
	gw := &fakeGateway{}
	prices := &fakePrices{prices: map[string]float64{"BTCUSDT": 105}}
	e := newTestEngine(store, prices, gw)
	ctx := context.Background()

	e.Tick(ctx) // above trigger, no prior price: no fire
	prices.prices["BTCUSDT"] = 102
	e.Tick(ctx) // still above: no fire
	if len(gw.orders()) != 0 {
		t.Fatal("fired without a crossing")
	}

	prices.prices["BTCUSDT"] = 97
	e.Tick(ctx) // dips below
	prices.prices["BTCUSDT"] = 103
	e.Tick(ctx) // crosses up: fires
	if len(gw.orders()) != 1 {
		t.Fatalf("placed %d orders, want 1 after the true crossing", len(gw.orders()))
	}
}

func TestFailedOrderIsTerminal(t *testing.T) {
	store := newFakeOrderStore(activeOrder("o1", model.CondAbove, 100, 0))
	gw := &fakeGateway{placeErr: errors.New("insufficient balance")}
	prices := &fakePrices{prices: map[string]float64{"BTCUSDT": 101}}
	e := newTestEngine(store, prices, gw)
	ctx := context.Background()

	e.Tick(ctx)

	o := store.get("o1")
	if o.Status != model.OrderFailed {
		t.Fatalf("status = %q, want failed", o.Status)
	}
	if o.Error == "" {
		t.Error("failure message not recorded")
	}

	// Never retried: the next tick must not re-place even with the
	// gateway healthy again.
	gw.placeErr = nil
	e.Tick(ctx)
	if len(gw.orders()) != 0 {
		t.Fatal("failed order was retried")
	}
}

func TestExpirySweep(t *testing.T) {
	expiry := time.Unix(1_700_000_050, 0) // before the engine clock
	o := activeOrder("o1", model.CondAbove, 100, 0)
	o.ExpiresAt = &expiry
	store := newFakeOrderStore(o)
	gw := &fakeGateway{}
	e := newTestEngine(store, &fakePrices{prices: map[string]float64{"BTCUSDT": 150}}, gw)

	e.Tick(context.Background())

	if got := store.get("o1"); got.Status != model.OrderExpired {
		t.Fatalf("status = %q, want expired", got.Status)
	}
	if len(gw.orders()) != 0 {
		t.Error("expired order fired")
	}
}

func TestTrailingStopDollarConversion(t *testing.T) {
	o := activeOrder("o1", model.CondAbove, 100, 0)
	o.Action.TrailingStopUSD = 5
	store := newFakeOrderStore(o)
	gw := &fakeGateway{}
	e := newTestEngine(store, &fakePrices{prices: map[string]float64{"BTCUSDT": 200}}, gw)

	e.Tick(context.Background())

	orders := gw.orders()
	if len(orders) != 1 {
		t.Fatalf("placed %d orders, want 1", len(orders))
	}
	// pct = dollar / currentPrice * 100 = 5/200*100 = 2.5
	if orders[0].TrailingStopPct != 2.5 {
		t.Errorf("trailingStopPct = %v, want 2.5", orders[0].TrailingStopPct)
	}
}

func TestMissingPriceSkipsOrder(t *testing.T) {
	store := newFakeOrderStore(activeOrder("o1", model.CondAbove, 100, 50))
	gw := &fakeGateway{}
	e := newTestEngine(store, &fakePrices{prices: map[string]float64{}}, gw)

	e.Tick(context.Background())

	o := store.get("o1")
	if o.Status != model.OrderActive {
		t.Fatalf("status = %q, want active", o.Status)
	}
	if o.LastPrice != 50 {
		t.Errorf("lastPrice = %v, want unchanged 50 when no price observed", o.LastPrice)
	}
}
