package bot

import (
	"context"
	"fmt"
	"log"

	"tradecore/internal/indicator"
	"tradecore/internal/model"
)

// MeanReversionExecutor trades deviations from a moving average: buy when
// price is stretched below it, sell when stretched above.
type MeanReversionExecutor struct {
	deps *Deps
}

func NewMeanReversionExecutor(deps *Deps) *MeanReversionExecutor {
	return &MeanReversionExecutor{deps: deps}
}

func (e *MeanReversionExecutor) Type() model.BotType { return model.BotMeanReversion }

func (e *MeanReversionExecutor) Tick(ctx context.Context, b *model.Bot) error {
	cfg, ok := b.Config.(model.MeanReversionConfig)
	if !ok {
		return fmt.Errorf("bot %s: config is %T, want MeanReversionConfig", b.ID, b.Config)
	}
	d := e.deps

	if !cooldownElapsed(d.now(), int64(cfg.CooldownSec), cfg.LastTradeAt) {
		return nil
	}

	_, closes, err := d.closes(ctx, b.Symbol)
	if err != nil {
		return err
	}
	period := cfg.MAPeriod
	if period <= 0 {
		period = 20
	}
	if len(closes) < period {
		return nil
	}
	ma := indicator.SMA(closes, period)
	if ma <= 0 {
		return nil
	}
	price := closes[len(closes)-1]
	deviationPct := (price - ma) / ma * 100

	switch {
	case deviationPct <= -cfg.DeviationPct:
		_, err := d.Gateway.PlaceOrder(ctx, b.UserID, model.OrderRequest{
			Symbol:      b.Symbol,
			Side:        model.SideBuy,
			Type:        "market",
			QuoteAmount: cfg.Amount,
			Notes:       fmt.Sprintf("mean reversion: %.2f%% below MA(%d)", -deviationPct, period),
		})
		if err != nil {
			return fmt.Errorf("mean reversion buy: %w", err)
		}
		log.Printf("[bot] meanrev %s buy: %.2f%% below MA", b.ID, -deviationPct)
		cfg.LastTradeAt = d.now().Unix()
		b.Config = cfg
		return d.recordTrade(ctx, b, model.SideBuy)

	case deviationPct >= cfg.DeviationPct:
		qty, err := d.sellableQty(ctx, b.UserID, b.Symbol, cfg.Amount/price)
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
			Notes:    fmt.Sprintf("mean reversion: %.2f%% above MA(%d)", deviationPct, period),
		})
		if err != nil {
			return fmt.Errorf("mean reversion sell: %w", err)
		}
		log.Printf("[bot] meanrev %s sell: %.2f%% above MA", b.ID, deviationPct)
		cfg.LastTradeAt = d.now().Unix()
		b.Config = cfg
		return d.recordTrade(ctx, b, model.SideSell)
	}
	return nil
}
