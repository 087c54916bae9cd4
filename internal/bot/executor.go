// Package bot implements the strategy executors for user trading bots.
//
// Each executor owns one strategy family (grid, DCA, RSI, ...) and is an
// evaluate-then-maybe-act procedure: load state, check cooldown, compute
// the strategy signal, and on a decision call the execution gateway and
// write the updated config blob back. The Runner dispatches every running
// bot to its executor once per tick, sequentially, so a single exchange
// account is never hit by concurrent bot orders.
package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradecore/internal/metrics"
	"tradecore/internal/model"
	"tradecore/internal/notification"
)

// DefaultTimeframe is the candle timeframe the strategy executors
// evaluate on.
const DefaultTimeframe = "1h"

// candleLimit is the candle window fetched per evaluation.
const candleLimit = 200

// Executor evaluates one strategy family for one bot per tick.
type Executor interface {
	Type() model.BotType

	// Tick evaluates the bot once. The bot row is loaded by the caller;
	// the executor persists its own config/state mutations. A returned
	// error covers this bot only and never aborts the tick batch.
	Tick(ctx context.Context, b *model.Bot) error
}

// Deps bundles the collaborators shared by all executors.
type Deps struct {
	Candles   model.CandleSource
	Prices    model.PriceSource
	Gateway   model.ExecutionGateway
	Bots      model.BotStore
	Cache     model.RuntimeCache
	Notify    notification.Notifier
	Prom      *metrics.Metrics
	Timeframe string

	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) timeframe() string {
	if d.Timeframe != "" {
		return d.Timeframe
	}
	return DefaultTimeframe
}

// closes fetches the evaluation window and extracts the close series.
func (d *Deps) closes(ctx context.Context, symbol string) ([]model.Candle, []float64, error) {
	candles, err := d.Candles.GetCandles(ctx, symbol, d.timeframe(), candleLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return candles, closes, nil
}

// cooldownElapsed reports whether the per-bot cooldown has passed.
// A zero cooldown never blocks.
func cooldownElapsed(now time.Time, cooldownSec, lastTradeAt int64) bool {
	if cooldownSec <= 0 || lastTradeAt <= 0 {
		return true
	}
	return now.Unix()-lastTradeAt >= cooldownSec
}

// stopBot flips the bot to stopped with a reason and records the metric.
func (d *Deps) stopBot(ctx context.Context, b *model.Bot, reason string) error {
	log.Printf("[bot] %s %s %s stopping: %s", b.Type, b.ID, b.Symbol, reason)
	if err := d.Bots.SetBotStatus(ctx, b.ID, model.BotStopped, reason); err != nil {
		return fmt.Errorf("stop bot %s: %w", b.ID, err)
	}
	b.Status = model.BotStopped
	b.StopReason = reason
	if d.Prom != nil {
		d.Prom.BotsStopped.WithLabelValues(reason).Inc()
	}
	if d.Notify != nil {
		alert := notification.Alert{
			Level:   notification.AlertWarning,
			Title:   fmt.Sprintf("Bot stopped (%s %s)", b.Type, b.Symbol),
			Message: reason,
		}
		if err := d.Notify.Send(ctx, alert); err != nil {
			log.Printf("[bot] notify failed for %s: %v", b.ID, err)
		}
	}
	return nil
}

// recordTrade persists the config blob and trade counter after an
// actuating tick.
func (d *Deps) recordTrade(ctx context.Context, b *model.Bot, side model.OrderSide) error {
	b.TotalTrades++
	if d.Prom != nil {
		d.Prom.BotTradesTotal.WithLabelValues(string(b.Type), string(side)).Inc()
	}
	if err := d.Bots.SaveBotState(ctx, b.ID, b.Config, b.TotalTrades); err != nil {
		return fmt.Errorf("save bot %s state: %w", b.ID, err)
	}
	return nil
}

// Runner dispatches running bots to their executors once per tick.
type Runner struct {
	deps      *Deps
	executors map[model.BotType]Executor
}

// NewRunner registers one executor per strategy family. The set is
// exhaustive over model.BotType; an unknown type at dispatch is a data
// error, logged and skipped.
func NewRunner(deps *Deps) *Runner {
	r := &Runner{deps: deps, executors: make(map[model.BotType]Executor)}
	for _, ex := range []Executor{
		NewGridExecutor(deps),
		NewDCAExecutor(deps),
		NewRSIExecutor(deps),
		NewMACDExecutor(deps),
		NewMACrossExecutor(deps),
		NewBreakoutExecutor(deps),
		NewMeanReversionExecutor(deps),
		NewMomentumExecutor(deps),
	} {
		r.executors[ex.Type()] = ex
	}
	return r
}

// TickAll evaluates every running bot sequentially. A panic or error in
// one bot is logged and must not abort the rest of the batch.
func (r *Runner) TickAll(ctx context.Context) {
	bots, err := r.deps.Bots.ListByStatus(ctx, model.BotRunning)
	if err != nil {
		log.Printf("[bot] list running bots: %v", err)
		return
	}
	for i := range bots {
		b := &bots[i]
		r.tickOne(ctx, b)
	}
}

func (r *Runner) tickOne(ctx context.Context, b *model.Bot) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[bot] %s %s panicked: %v", b.Type, b.ID, rec)
			if r.deps.Prom != nil {
				r.deps.Prom.BotErrors.Inc()
			}
		}
	}()

	ex, ok := r.executors[b.Type]
	if !ok {
		log.Printf("[bot] %s has unknown type %q, skipping", b.ID, b.Type)
		return
	}
	if r.deps.Prom != nil {
		r.deps.Prom.BotTicksTotal.Inc()
	}
	if err := ex.Tick(ctx, b); err != nil {
		// Transient failure: the bot skips this tick and retries next
		// cycle. No terminal failure state for bots.
		log.Printf("[bot] %s %s tick: %v", b.Type, b.ID, err)
		if r.deps.Prom != nil {
			r.deps.Prom.BotErrors.Inc()
		}
	}
}
