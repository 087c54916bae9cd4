package bot

import (
	"context"
	"fmt"
	"log"

	"tradecore/internal/model"
)

// BreakoutExecutor trades closes beyond the recent range, confirmed by a
// volume spike over the lookback average.
type BreakoutExecutor struct {
	deps *Deps
}

func NewBreakoutExecutor(deps *Deps) *BreakoutExecutor { return &BreakoutExecutor{deps: deps} }

func (e *BreakoutExecutor) Type() model.BotType { return model.BotBreakout }

func (e *BreakoutExecutor) Tick(ctx context.Context, b *model.Bot) error {
	cfg, ok := b.Config.(model.BreakoutConfig)
	if !ok {
		return fmt.Errorf("bot %s: config is %T, want BreakoutConfig", b.ID, b.Config)
	}
	d := e.deps

	if !cooldownElapsed(d.now(), int64(cfg.CooldownSec), cfg.LastTradeAt) {
		return nil
	}

	candles, _, err := d.closes(ctx, b.Symbol)
	if err != nil {
		return err
	}
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 20
	}
	// The range is defined by the lookback candles preceding the current one.
	if len(candles) < lookback+1 {
		return nil
	}
	window := candles[len(candles)-1-lookback : len(candles)-1]
	current := candles[len(candles)-1]

	rangeHigh, rangeLow := window[0].High, window[0].Low
	volSum := 0.0
	for _, c := range window {
		if c.High > rangeHigh {
			rangeHigh = c.High
		}
		if c.Low < rangeLow {
			rangeLow = c.Low
		}
		volSum += c.Volume
	}
	avgVol := volSum / float64(lookback)
	if cfg.VolumeMultiplier > 0 && current.Volume < cfg.VolumeMultiplier*avgVol {
		return nil
	}

	upper := rangeHigh * (1 + cfg.ThresholdPct/100)
	lower := rangeLow * (1 - cfg.ThresholdPct/100)

	switch {
	case current.Close > upper:
		_, err := d.Gateway.PlaceOrder(ctx, b.UserID, model.OrderRequest{
			Symbol:      b.Symbol,
			Side:        model.SideBuy,
			Type:        "market",
			QuoteAmount: cfg.Amount,
			Notes:       fmt.Sprintf("breakout above %.4f (range high %.4f)", upper, rangeHigh),
		})
		if err != nil {
			return fmt.Errorf("breakout buy: %w", err)
		}
		log.Printf("[bot] breakout %s buy: close %.4f > %.4f", b.ID, current.Close, upper)
		cfg.LastTradeAt = d.now().Unix()
		b.Config = cfg
		return d.recordTrade(ctx, b, model.SideBuy)

	case current.Close < lower:
		qty, err := d.sellableQty(ctx, b.UserID, b.Symbol, cfg.Amount/current.Close)
		if err != nil {
			return err
		}
		if qty <= 0 {
			return nil
		}
		_, err = d.Gateway.PlaceOrder(ctx, b.UserID, model.OrderRequest{
			Symbol:   b.Symbol,
			Side:     model.SideSell,
			Type:     "market",
			Quantity: qty,
			Notes:    fmt.Sprintf("breakdown below %.4f (range low %.4f)", lower, rangeLow),
		})
		if err != nil {
			return fmt.Errorf("breakdown sell: %w", err)
		}
		log.Printf("[bot] breakout %s sell: close %.4f < %.4f", b.ID, current.Close, lower)
		cfg.LastTradeAt = d.now().Unix()
		b.Config = cfg
		return d.recordTrade(ctx, b, model.SideSell)
	}
	return nil
}
