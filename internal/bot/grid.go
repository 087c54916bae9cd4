package bot

import (
	"context"
	"fmt"
	"log"
	"math"

	"tradecore/internal/model"
)

// GridExecutor trades a discretized price grid: buy when the price steps
// down a level, sell the oldest lower-level position when it steps up.
type GridExecutor struct {
	deps *Deps
}

func NewGridExecutor(deps *Deps) *GridExecutor { return &GridExecutor{deps: deps} }

func (e *GridExecutor) Type() model.BotType { return model.BotGrid }

// GridLevels returns the gridCount+1 level boundaries between lower and
// upper, arithmetic or geometric.
func GridLevels(cfg model.GridConfig) []float64 {
	n := cfg.GridCount
	if n <= 0 {
		return nil
	}
	levels := make([]float64, n+1)
	if cfg.Geometric && cfg.LowerPrice > 0 {
		ratio := cfg.UpperPrice / cfg.LowerPrice
		for i := 0; i <= n; i++ {
			levels[i] = cfg.LowerPrice * math.Pow(ratio, float64(i)/float64(n))
		}
	} else {
		step := (cfg.UpperPrice - cfg.LowerPrice) / float64(n)
		for i := 0; i <= n; i++ {
			levels[i] = cfg.LowerPrice + float64(i)*step
		}
	}
	return levels
}

// levelIndex maps a price to the highest level boundary at or below it,
// clamped into [0, gridCount].
func levelIndex(levels []float64, price float64) int {
	idx := 0
	for i, lvl := range levels {
		if price >= lvl {
			idx = i
		}
	}
	return idx
}

func (e *GridExecutor) Tick(ctx context.Context, b *model.Bot) error {
	cfg, ok := b.Config.(model.GridConfig)
	if !ok {
		return fmt.Errorf("bot %s: config is %T, want GridConfig", b.ID, b.Config)
	}
	d := e.deps

	price, err := d.Prices.GetPrice(ctx, b.Symbol)
	if err != nil {
		return fmt.Errorf("price for %s: %w", b.Symbol, err)
	}

	// Risk exits before anything else.
	if cfg.StopLoss > 0 && price <= cfg.StopLoss {
		return d.stopBot(ctx, b, fmt.Sprintf("stop loss hit at %.4f", price))
	}
	if cfg.TakeProfit > 0 && price >= cfg.TakeProfit {
		return d.stopBot(ctx, b, fmt.Sprintf("take profit hit at %.4f", price))
	}

	// Trailing: price escaped above the window, shift the whole grid up
	// to anchor at the current price. The stop-loss keeps its original
	// distance below the lower bound. Cached positions are stale at the
	// new levels and are discarded.
	if cfg.Trailing && price > cfg.UpperPrice {
		width := cfg.UpperPrice - cfg.LowerPrice
		slDist := cfg.LowerPrice - cfg.StopLoss
		cfg.UpperPrice = price
		cfg.LowerPrice = price - width
		if cfg.StopLoss > 0 {
			cfg.StopLoss = cfg.LowerPrice - slDist
		}
		b.Config = cfg
		if err := d.Bots.SaveBotState(ctx, b.ID, cfg, b.TotalTrades); err != nil {
			return fmt.Errorf("persist trailed grid %s: %w", b.ID, err)
		}
		if err := d.Cache.DeleteGridState(ctx, b.ID); err != nil {
			return fmt.Errorf("clear grid state %s: %w", b.ID, err)
		}
		log.Printf("[bot] grid %s trailed window to %.4f..%.4f", b.ID, cfg.LowerPrice, cfg.UpperPrice)
		return nil
	}

	if !cooldownElapsed(d.now(), int64(cfg.CooldownSec), cfg.LastTradeAt) {
		return nil
	}

	state, err := d.Cache.GetGridState(ctx, b.ID)
	if err != nil {
		return fmt.Errorf("grid state %s: %w", b.ID, err)
	}
	if state == nil {
		state = model.NewGridRuntimeState()
	}

	levels := GridLevels(cfg)
	if len(levels) == 0 {
		return fmt.Errorf("bot %s: grid has no levels (count=%d)", b.ID, cfg.GridCount)
	}
	level := levelIndex(levels, price)
	notional := cfg.TotalInvestment / float64(cfg.GridCount)

	traded := false
	var side model.OrderSide

	switch {
	case state.LastLevel == -1:
		// Bootstrap: buy one position at every level strictly below the
		// current price to seed sell inventory.
		for i := 0; i < level; i++ {
			res, err := d.Gateway.PlaceOrder(ctx, b.UserID, model.OrderRequest{
				Symbol:      b.Symbol,
				Side:        model.SideBuy,
				Type:        "market",
				QuoteAmount: notional,
				Notes:       fmt.Sprintf("grid init level %d", i),
			})
			if err != nil {
				return fmt.Errorf("grid init buy level %d: %w", i, err)
			}
			state.Positions = append(state.Positions, model.GridPosition{
				Level:    i,
				Quantity: res.FillQty,
				Price:    res.FillPrice,
			})
			traded = true
			side = model.SideBuy
		}
		log.Printf("[bot] grid %s initialized at level %d with %d positions", b.ID, level, len(state.Positions))

	case level < state.LastLevel:
		// Price stepped down: buy this level.
		res, err := d.Gateway.PlaceOrder(ctx, b.UserID, model.OrderRequest{
			Symbol:      b.Symbol,
			Side:        model.SideBuy,
			Type:        "market",
			QuoteAmount: notional,
			Notes:       fmt.Sprintf("grid buy level %d", level),
		})
		if err != nil {
			return fmt.Errorf("grid buy level %d: %w", level, err)
		}
		state.Positions = append(state.Positions, model.GridPosition{
			Level:    level,
			Quantity: res.FillQty,
			Price:    res.FillPrice,
		})
		traded = true
		side = model.SideBuy

	case level > state.LastLevel:
		// Price stepped up: sell the oldest position recorded strictly
		// below the level being crossed. Profit-only: without such a
		// position nothing is sold.
		if idx := oldestBelow(state.Positions, level); idx >= 0 {
			pos := state.Positions[idx]
			_, err := d.Gateway.PlaceOrder(ctx, b.UserID, model.OrderRequest{
				Symbol:   b.Symbol,
				Side:     model.SideSell,
				Type:     "market",
				Quantity: pos.Quantity,
				Notes:    fmt.Sprintf("grid sell level %d (bought level %d)", level, pos.Level),
			})
			if err != nil {
				return fmt.Errorf("grid sell level %d: %w", level, err)
			}
			state.Positions = append(state.Positions[:idx], state.Positions[idx+1:]...)
			traded = true
			side = model.SideSell
		}
	}

	state.LastLevel = level
	if err := d.Cache.SetGridState(ctx, b.ID, state); err != nil {
		return fmt.Errorf("save grid state %s: %w", b.ID, err)
	}

	if traded {
		cfg.LastTradeAt = d.now().Unix()
		b.Config = cfg
		return d.recordTrade(ctx, b, side)
	}
	return nil
}

// oldestBelow finds the first-recorded position with a level strictly
// below the given level; -1 when none exists. Positions are appended in
// buy order, so index order is age order.
func oldestBelow(positions []model.GridPosition, level int) int {
	for i, p := range positions {
		if p.Level < level {
			return i
		}
	}
	return -1
}
