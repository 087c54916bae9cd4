package bot

import (
	"context"
	"fmt"
	"log"

	"tradecore/internal/model"
)

// DCAExecutor buys a fixed quote amount at a fixed interval until the
// purchase count is exhausted, then stops its own bot.
type DCAExecutor struct {
	deps *Deps
}

func NewDCAExecutor(deps *Deps) *DCAExecutor { return &DCAExecutor{deps: deps} }

func (e *DCAExecutor) Type() model.BotType { return model.BotDCA }

func (e *DCAExecutor) Tick(ctx context.Context, b *model.Bot) error {
	cfg, ok := b.Config.(model.DCAConfig)
	if !ok {
		return fmt.Errorf("bot %s: config is %T, want DCAConfig", b.ID, b.Config)
	}
	d := e.deps

	if cfg.PurchasesMade >= cfg.TotalPurchases {
		return d.stopBot(ctx, b, "completed: all purchases made")
	}
	intervalSec := int64(cfg.IntervalHours * 3600)
	if cfg.LastPurchaseAt > 0 && d.now().Unix()-cfg.LastPurchaseAt < intervalSec {
		return nil
	}

	_, err := d.Gateway.PlaceOrder(ctx, b.UserID, model.OrderRequest{
		Symbol:      b.Symbol,
		Side:        model.SideBuy,
		Type:        "market",
		QuoteAmount: cfg.AmountPerPurchase,
		Notes:       fmt.Sprintf("DCA purchase %d/%d", cfg.PurchasesMade+1, cfg.TotalPurchases),
	})
	if err != nil {
		return fmt.Errorf("DCA buy: %w", err)
	}

	cfg.PurchasesMade++
	cfg.LastPurchaseAt = d.now().Unix()
	b.Config = cfg
	if err := d.recordTrade(ctx, b, model.SideBuy); err != nil {
		return err
	}
	log.Printf("[bot] dca %s purchase %d/%d done", b.ID, cfg.PurchasesMade, cfg.TotalPurchases)

	if cfg.PurchasesMade >= cfg.TotalPurchases {
		return d.stopBot(ctx, b, "completed: all purchases made")
	}
	return nil
}
