// Package condorder evaluates user price-trigger rules and fires
// one-shot orders when they are met.
//
// The engine is tick-driven: each tick batch-fetches current prices for
// every distinct symbol with an active order, sweeps expired orders, and
// evaluates each remaining order's condition against the last and current
// price. An order transitions to a terminal status (triggered, cancelled,
// expired, failed) exactly once and is never retried after failure.
package condorder

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradecore/internal/bot"
	"tradecore/internal/metrics"
	"tradecore/internal/model"
	"tradecore/internal/notification"
)

// Engine evaluates active conditional orders once per tick.
type Engine struct {
	orders  model.ConditionalOrderStore
	prices  model.PriceSource
	gateway model.ExecutionGateway
	notify  notification.Notifier
	prom    *metrics.Metrics

	now func() time.Time
}

// New creates a conditional order engine. notify and prom may be nil.
func New(orders model.ConditionalOrderStore, prices model.PriceSource, gateway model.ExecutionGateway, notify notification.Notifier, prom *metrics.Metrics) *Engine {
	return &Engine{
		orders:  orders,
		prices:  prices,
		gateway: gateway,
		notify:  notify,
		prom:    prom,
		now:     time.Now,
	}
}

// Tick runs one evaluation pass over every active order. Failures are
// per-order; the batch always completes.
func (e *Engine) Tick(ctx context.Context) {
	active, err := e.orders.ListActive(ctx)
	if err != nil {
		log.Printf("[condorder] list active orders: %v", err)
		return
	}
	if len(active) == 0 {
		return
	}

	prices, err := e.prices.GetPricesBatch(ctx, distinctSymbols(active))
	if err != nil {
		log.Printf("[condorder] batch price fetch: %v", err)
		return
	}

	now := e.now()
	for i := range active {
		o := &active[i]
		e.evaluate(ctx, o, prices, now)
	}
}

func distinctSymbols(orders []model.ConditionalOrder) []string {
	seen := make(map[string]struct{}, len(orders))
	var out []string
	for _, o := range orders {
		if _, ok := seen[o.Symbol]; ok {
			continue
		}
		seen[o.Symbol] = struct{}{}
		out = append(out, o.Symbol)
	}
	return out
}

func (e *Engine) evaluate(ctx context.Context, o *model.ConditionalOrder, prices map[string]float64, now time.Time) {
	if e.prom != nil {
		e.prom.OrdersEvaluated.Inc()
	}

	// Expiry sweep runs before condition checks.
	if o.Expired(now) {
		if err := e.orders.MarkTerminal(ctx, o.ID, model.OrderExpired, "", now); err != nil {
			log.Printf("[condorder] expire %s: %v", o.ID, err)
			return
		}
		if e.prom != nil {
			e.prom.OrdersExpired.Inc()
		}
		log.Printf("[condorder] %s expired", o.ID)
		return
	}

	price, ok := prices[o.Symbol]
	if !ok || price <= 0 {
		log.Printf("[condorder] no price for %s, skipping %s", o.Symbol, o.ID)
		return
	}

	fired := ConditionMet(o.Condition, o.TriggerPrice, o.LastPrice, price)

	// lastPrice advances after evaluation on every tick regardless of
	// firing so crossing state is tracked continuously.
	defer func() {
		if err := e.orders.UpdateLastPrice(ctx, o.ID, price); err != nil {
			log.Printf("[condorder] update lastPrice %s: %v", o.ID, err)
		}
	}()

	if !fired {
		return
	}
	e.fire(ctx, o, price, now)
}

// ConditionMet evaluates a trigger condition. above/below compare the
// current price only; crosses_up/crosses_down additionally require the
// previous price strictly on the other side of the trigger, so an order
// created when the price is already past its trigger never fires until
// an actual crossing happens.
func ConditionMet(cond model.OrderCondition, trigger, lastPrice, price float64) bool {
	switch cond {
	case model.CondAbove:
		return price >= trigger
	case model.CondBelow:
		return price <= trigger
	case model.CondCrossesUp:
		return lastPrice > 0 && lastPrice < trigger && price >= trigger
	case model.CondCrossesDown:
		return lastPrice > trigger && price <= trigger
	default:
		return false
	}
}

func (e *Engine) fire(ctx context.Context, o *model.ConditionalOrder, price float64, now time.Time) {
	req, err := e.buildRequest(ctx, o, price)
	if err == nil {
		_, err = e.gateway.PlaceOrder(ctx, o.UserID, req)
	}
	if err != nil {
		// Terminal: failed orders are never retried automatically.
		log.Printf("[condorder] %s failed: %v", o.ID, err)
		if mErr := e.orders.MarkTerminal(ctx, o.ID, model.OrderFailed, err.Error(), now); mErr != nil {
			log.Printf("[condorder] mark failed %s: %v", o.ID, mErr)
		}
		if e.prom != nil {
			e.prom.OrdersFailed.Inc()
		}
		e.send(ctx, notification.Alert{
			Level:   notification.AlertCritical,
			Title:   fmt.Sprintf("Conditional order failed (%s)", o.Symbol),
			Message: err.Error(),
		})
		return
	}

	if err := e.orders.MarkTerminal(ctx, o.ID, model.OrderTriggered, "", now); err != nil {
		log.Printf("[condorder] mark triggered %s: %v", o.ID, err)
		return
	}
	if e.prom != nil {
		e.prom.OrdersTriggered.Inc()
	}
	log.Printf("[condorder] %s triggered: %s %s at %.4f", o.ID, o.Action.Side, o.Symbol, price)
	e.send(ctx, notification.Alert{
		Level:   notification.AlertInfo,
		Title:   fmt.Sprintf("Conditional order triggered (%s)", o.Symbol),
		Message: fmt.Sprintf("%s %s at %.4f (%s %.4f)", o.Action.Side, o.Symbol, price, o.Condition, o.TriggerPrice),
	})
}

// buildRequest resolves the order action into a gateway request at the
// firing price.
func (e *Engine) buildRequest(ctx context.Context, o *model.ConditionalOrder, price float64) (model.OrderRequest, error) {
	amt, err := bot.ResolveAmount(ctx, e.gateway, o.UserID, o.Symbol, o.Action.Side, o.Action.Amount, price)
	if err != nil {
		return model.OrderRequest{}, err
	}
	if amt.Quantity > 0 {
		info, err := e.gateway.GetSymbolInfo(ctx, o.Symbol)
		if err != nil {
			return model.OrderRequest{}, fmt.Errorf("symbol info: %w", err)
		}
		amt.Quantity = bot.RoundToStep(amt.Quantity, info.StepSize)
		if amt.Quantity <= 0 {
			return model.OrderRequest{}, fmt.Errorf("quantity rounds to zero at step %v", info.StepSize)
		}
	}

	trailingPct := o.Action.TrailingStopPct
	if trailingPct == 0 && o.Action.TrailingStopUSD > 0 {
		// Dollar trailing distance converted at the firing price.
		trailingPct = o.Action.TrailingStopUSD / price * 100
	}

	return model.OrderRequest{
		Symbol:          o.Symbol,
		Side:            o.Action.Side,
		Type:            o.Action.Type,
		Quantity:        amt.Quantity,
		QuoteAmount:     amt.QuoteAmount,
		Price:           o.Action.LimitPrice,
		StopLoss:        o.Action.StopLoss,
		TakeProfit:      o.Action.TakeProfit,
		TrailingStopPct: trailingPct,
		Notes:           fmt.Sprintf("conditional %s %.4f", o.Condition, o.TriggerPrice),
	}, nil
}

func (e *Engine) send(ctx context.Context, alert notification.Alert) {
	if e.notify == nil {
		return
	}
	if err := e.notify.Send(ctx, alert); err != nil {
		log.Printf("[condorder] notify: %v", err)
	}
}
