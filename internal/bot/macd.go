package bot

import (
	"context"
	"fmt"
	"log"

	"tradecore/internal/indicator"
	"tradecore/internal/model"
)

// MACDExecutor trades signal-line crossovers, acting only on the first
// tick of a new cross direction.
type MACDExecutor struct {
	deps *Deps
}

func NewMACDExecutor(deps *Deps) *MACDExecutor { return &MACDExecutor{deps: deps} }

func (e *MACDExecutor) Type() model.BotType { return model.BotMACD }

func (e *MACDExecutor) Tick(ctx context.Context, b *model.Bot) error {
	cfg, ok := b.Config.(model.MACDConfig)
	if !ok {
		return fmt.Errorf("bot %s: config is %T, want MACDConfig", b.ID, b.Config)
	}
	d := e.deps

	_, closes, err := d.closes(ctx, b.Symbol)
	if err != nil {
		return err
	}
	m := indicator.MACD(closes, 0, 0, 0)
	if !m.Sufficient {
		return nil
	}

	// Standing direction of the histogram; used to seed the guard on the
	// first tick so a pre-existing cross never fires retroactively.
	direction := "bearish"
	if m.Histogram > 0 {
		direction = "bullish"
	}
	if cfg.LastDirection == "" {
		cfg.LastDirection = direction
		b.Config = cfg
		return d.Bots.SaveBotState(ctx, b.ID, cfg, b.TotalTrades)
	}
	if direction == cfg.LastDirection {
		return nil
	}

	// New cross direction. The guard is written only after the order
	// succeeds so a transient gateway failure retries next tick.
	if !cooldownElapsed(d.now(), int64(cfg.CooldownSec), cfg.LastTradeAt) {
		return nil
	}

	side := model.SideSell
	if direction == "bullish" {
		side = model.SideBuy
	}

	req := model.OrderRequest{
		Symbol: b.Symbol,
		Side:   side,
		Type:   "market",
		Notes:  fmt.Sprintf("MACD %s crossover (hist %.4f)", direction, m.Histogram),
	}
	if side == model.SideBuy {
		req.QuoteAmount = cfg.Amount
		req.TrailingStopPct = cfg.TrailingStopPct
	} else {
		price := closes[len(closes)-1]
		qty, err := d.sellableQty(ctx, b.UserID, b.Symbol, cfg.Amount/price)
		if err != nil {
			return err
		}
		if qty <= 0 {
			// Nothing held: still flip the guard so the next opposite
			// cross is trusted.
			cfg.LastDirection = direction
			b.Config = cfg
			return d.Bots.SaveBotState(ctx, b.ID, cfg, b.TotalTrades)
		}
		req.Quantity = qty
	}

	if _, err := d.Gateway.PlaceOrder(ctx, b.UserID, req); err != nil {
		return fmt.Errorf("MACD %s order: %w", direction, err)
	}
	log.Printf("[bot] macd %s %s on %s crossover", b.ID, side, direction)

	cfg.LastDirection = direction
	cfg.LastTradeAt = d.now().Unix()
	b.Config = cfg
	return d.recordTrade(ctx, b, side)
}
