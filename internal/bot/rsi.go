package bot

import (
	"context"
	"fmt"
	"log"

	"tradecore/internal/indicator"
	"tradecore/internal/model"
)

// RSIExecutor buys oversold and sells overbought on RSI thresholds.
type RSIExecutor struct {
	deps *Deps
}

func NewRSIExecutor(deps *Deps) *RSIExecutor { return &RSIExecutor{deps: deps} }

func (e *RSIExecutor) Type() model.BotType { return model.BotRSI }

func (e *RSIExecutor) Tick(ctx context.Context, b *model.Bot) error {
	cfg, ok := b.Config.(model.RSIConfig)
	if !ok {
		return fmt.Errorf("bot %s: config is %T, want RSIConfig", b.ID, b.Config)
	}
	d := e.deps

	if !cooldownElapsed(d.now(), int64(cfg.CooldownSec), cfg.LastTradeAt) {
		return nil
	}

	_, closes, err := d.closes(ctx, b.Symbol)
	if err != nil {
		return err
	}
	period := cfg.Period
	if period <= 0 {
		period = indicator.DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return nil
	}
	rsi := indicator.RSI(closes, period)
	price := closes[len(closes)-1]

	switch {
	case rsi <= cfg.Oversold:
		_, err := d.Gateway.PlaceOrder(ctx, b.UserID, model.OrderRequest{
			Symbol:      b.Symbol,
			Side:        model.SideBuy,
			Type:        "market",
			QuoteAmount: cfg.AmountPerTrade,
			Notes:       fmt.Sprintf("RSI oversold %.1f <= %.1f", rsi, cfg.Oversold),
		})
		if err != nil {
			return fmt.Errorf("RSI buy: %w", err)
		}
		log.Printf("[bot] rsi %s buy at RSI %.1f", b.ID, rsi)
		cfg.LastTradeAt = d.now().Unix()
		b.Config = cfg
		return d.recordTrade(ctx, b, model.SideBuy)

	case rsi >= cfg.Overbought:
		// Sell up to amountPerTrade worth of the held asset.
		qty, err := d.sellableQty(ctx, b.UserID, b.Symbol, cfg.AmountPerTrade/price)
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
			Notes:    fmt.Sprintf("RSI overbought %.1f >= %.1f", rsi, cfg.Overbought),
		})
		if err != nil {
			return fmt.Errorf("RSI sell: %w", err)
		}
		log.Printf("[bot] rsi %s sell %.6f at RSI %.1f", b.ID, qty, rsi)
		cfg.LastTradeAt = d.now().Unix()
		b.Config = cfg
		return d.recordTrade(ctx, b, model.SideSell)
	}
	return nil
}
