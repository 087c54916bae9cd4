package bot

import (
	"context"
	"fmt"
	"math"
	"strings"

	"tradecore/internal/model"
)

// ResolvedAmount is an amount specification made concrete against the
// current price and, for percentage mode, the user's portfolio. Exactly
// one of Quantity/QuoteAmount is nonzero.
type ResolvedAmount struct {
	Quantity    float64
	QuoteAmount float64
}

// ResolveAmount turns an AmountSpec into an order-ready amount.
// Percentage resolves against available quote balance on the buy side
// and against the held base-asset quantity on the sell side.
func ResolveAmount(ctx context.Context, gw model.ExecutionGateway, userID, symbol string, side model.OrderSide, amt model.AmountSpec, price float64) (ResolvedAmount, error) {
	switch amt.Mode {
	case model.AmountQuantity:
		return ResolvedAmount{Quantity: amt.Value}, nil
	case model.AmountQuote:
		return ResolvedAmount{QuoteAmount: amt.Value}, nil
	case model.AmountPercentage:
		pf, err := gw.GetPortfolio(ctx, userID)
		if err != nil {
			return ResolvedAmount{}, fmt.Errorf("resolve %v%% of portfolio: %w", amt.Value, err)
		}
		if side == model.SideBuy {
			return ResolvedAmount{QuoteAmount: pf.AvailableQuote * amt.Value / 100}, nil
		}
		holding, ok := pf.HoldingFor(BaseAsset(symbol))
		if !ok {
			return ResolvedAmount{}, fmt.Errorf("no %s holding to sell", BaseAsset(symbol))
		}
		return ResolvedAmount{Quantity: holding.Amount * amt.Value / 100}, nil
	default:
		return ResolvedAmount{}, fmt.Errorf("unknown amount mode %q", amt.Mode)
	}
}

// BaseAsset strips the quote suffix from a trading pair ("SOLUSDT" →
// "SOL"). Pairs without a known quote suffix are returned unchanged.
func BaseAsset(symbol string) string {
	for _, quote := range []string{"USDT", "USDC", "BUSD", "BTC", "ETH"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote)
		}
	}
	return symbol
}

// RoundToStep floors a quantity to the exchange's lot step size. A zero
// step leaves the quantity unchanged.
func RoundToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	return math.Floor(qty/step) * step
}

// sellableQty caps a desired sell quantity by the user's actual holding
// and rounds it to the symbol's lot step.
func (d *Deps) sellableQty(ctx context.Context, userID, symbol string, desired float64) (float64, error) {
	pf, err := d.Gateway.GetPortfolio(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("portfolio for sell sizing: %w", err)
	}
	holding, ok := pf.HoldingFor(BaseAsset(symbol))
	if !ok || holding.Amount <= 0 {
		return 0, nil
	}
	qty := math.Min(desired, holding.Amount)
	info, err := d.Gateway.GetSymbolInfo(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("symbol info for %s: %w", symbol, err)
	}
	return RoundToStep(qty, info.StepSize), nil
}
