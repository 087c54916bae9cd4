package bot

import (
	"context"
	"fmt"
	"log"

	"tradecore/internal/indicator"
	"tradecore/internal/model"
)

// MACrossExecutor trades fast/slow moving-average crossovers (SMA or
// EMA), buying golden crosses and selling death crosses, first tick of a
// new direction only.
type MACrossExecutor struct {
	deps *Deps
}

func NewMACrossExecutor(deps *Deps) *MACrossExecutor { return &MACrossExecutor{deps: deps} }

func (e *MACrossExecutor) Type() model.BotType { return model.BotMACross }

func (e *MACrossExecutor) Tick(ctx context.Context, b *model.Bot) error {
	cfg, ok := b.Config.(model.MACrossConfig)
	if !ok {
		return fmt.Errorf("bot %s: config is %T, want MACrossConfig", b.ID, b.Config)
	}
	d := e.deps

	_, closes, err := d.closes(ctx, b.Symbol)
	if err != nil {
		return err
	}
	if len(closes) < cfg.SlowPeriod+1 {
		return nil
	}

	ma := indicator.SMA
	if cfg.UseEMA {
		ma = indicator.EMA
	}
	fast := ma(closes, cfg.FastPeriod)
	slow := ma(closes, cfg.SlowPeriod)

	direction := "death"
	if fast > slow {
		direction = "golden"
	}
	if cfg.LastDirection == "" {
		cfg.LastDirection = direction
		b.Config = cfg
		return d.Bots.SaveBotState(ctx, b.ID, cfg, b.TotalTrades)
	}
	if direction == cfg.LastDirection {
		return nil
	}
	if !cooldownElapsed(d.now(), int64(cfg.CooldownSec), cfg.LastTradeAt) {
		return nil
	}

	side := model.SideSell
	if direction == "golden" {
		side = model.SideBuy
	}

	req := model.OrderRequest{
		Symbol: b.Symbol,
		Side:   side,
		Type:   "market",
		Notes:  fmt.Sprintf("MA %s cross (fast %.4f, slow %.4f)", direction, fast, slow),
	}
	if side == model.SideBuy {
		req.QuoteAmount = cfg.Amount
	} else {
		price := closes[len(closes)-1]
		qty, err := d.sellableQty(ctx, b.UserID, b.Symbol, cfg.Amount/price)
		if err != nil {
			return err
		}
		if qty <= 0 {
			cfg.LastDirection = direction
			b.Config = cfg
			return d.Bots.SaveBotState(ctx, b.ID, cfg, b.TotalTrades)
		}
		req.Quantity = qty
	}

	if _, err := d.Gateway.PlaceOrder(ctx, b.UserID, req); err != nil {
		return fmt.Errorf("MA cross %s order: %w", direction, err)
	}
	log.Printf("[bot] macross %s %s on %s cross", b.ID, side, direction)

	cfg.LastDirection = direction
	cfg.LastTradeAt = d.now().Unix()
	b.Config = cfg
	return d.recordTrade(ctx, b, side)
}
