package bot

import (
	"context"
	"fmt"
	"log"

	"tradecore/internal/indicator"
	"tradecore/internal/model"
)

// MomentumExecutor rides strong RSI moves: buy when RSI is high and
// rising, sell when low and falling, optionally volume-confirmed, first
// tick of a new direction only.
type MomentumExecutor struct {
	deps *Deps
}

func NewMomentumExecutor(deps *Deps) *MomentumExecutor { return &MomentumExecutor{deps: deps} }

func (e *MomentumExecutor) Type() model.BotType { return model.BotMomentum }

func (e *MomentumExecutor) Tick(ctx context.Context, b *model.Bot) error {
	cfg, ok := b.Config.(model.MomentumConfig)
	if !ok {
		return fmt.Errorf("bot %s: config is %T, want MomentumConfig", b.ID, b.Config)
	}
	d := e.deps

	candles, closes, err := d.closes(ctx, b.Symbol)
	if err != nil {
		return err
	}
	if len(closes) < indicator.DefaultRSIPeriod+2 {
		return nil
	}
	rsi := indicator.RSI(closes, indicator.DefaultRSIPeriod)
	prevRSI := indicator.RSI(closes[:len(closes)-1], indicator.DefaultRSIPeriod)

	direction := ""
	switch {
	case rsi >= cfg.RSIThreshold && rsi > prevRSI:
		direction = "up"
	case rsi <= 100-cfg.RSIThreshold && rsi < prevRSI:
		direction = "down"
	default:
		return nil
	}

	if cfg.VolumeConfirm && !volumeSpiking(candles) {
		return nil
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
	if direction == "up" {
		side = model.SideBuy
	}

	req := model.OrderRequest{
		Symbol: b.Symbol,
		Side:   side,
		Type:   "market",
		Notes:  fmt.Sprintf("momentum %s (RSI %.1f, prev %.1f)", direction, rsi, prevRSI),
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
		return fmt.Errorf("momentum %s order: %w", direction, err)
	}
	log.Printf("[bot] momentum %s %s at RSI %.1f", b.ID, side, rsi)

	cfg.LastDirection = direction
	cfg.LastTradeAt = d.now().Unix()
	b.Config = cfg
	return d.recordTrade(ctx, b, side)
}

// volumeSpiking reports whether the latest candle's volume clears 1.5x
// the 20-candle average.
func volumeSpiking(candles []model.Candle) bool {
	if len(candles) == 0 {
		return false
	}
	avg := averageVolumeWindow(candles, 20)
	return avg > 0 && candles[len(candles)-1].Volume >= 1.5*avg
}

func averageVolumeWindow(candles []model.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if period > len(candles) {
		period = len(candles)
	}
	sum := 0.0
	for _, c := range candles[len(candles)-period:] {
		sum += c.Volume
	}
	return sum / float64(period)
}
