// Package paper simulates order execution against live market prices.
// It satisfies model.ExecutionGateway so the engine runs unchanged in
// dry-run mode: real candles and prices, local fills and balances.
package paper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"tradecore/internal/model"

	"github.com/google/uuid"
)

const defaultStepSize = 0.000001

// Gateway fills orders locally. Balances start at startingQuote USDT
// and evolve with fills. Fill prices come from the price source with
// simulated slippage.
type Gateway struct {
	prices      model.PriceSource
	slippageBps float64

	mu       sync.Mutex
	quote    float64
	holdings map[string]float64 // asset -> amount
	journal  *Journal           // optional
}

// New creates a paper gateway. journal may be nil.
func New(prices model.PriceSource, startingQuote, slippageBps float64, journal *Journal) *Gateway {
	return &Gateway{
		prices:      prices,
		slippageBps: slippageBps,
		quote:       startingQuote,
		holdings:    make(map[string]float64),
		journal:     journal,
	}
}

// PlaceOrder simulates a fill. Market orders fill at the current price
// shifted by slippage, limit orders fill at the limit price. Fills that
// the balance cannot cover fail, exercising the same error path a real
// exchange rejection would.
func (g *Gateway) PlaceOrder(ctx context.Context, userID string, req model.OrderRequest) (model.OrderResult, error) {
	price, err := g.fillPrice(ctx, req)
	if err != nil {
		return model.OrderResult{}, err
	}

	qty := req.Quantity
	if qty <= 0 {
		if req.QuoteAmount <= 0 {
			return model.OrderResult{}, fmt.Errorf("paper order for %s has no amount", req.Symbol)
		}
		qty = req.QuoteAmount / price
	}
	notional := qty * price
	asset := baseAsset(req.Symbol)

	g.mu.Lock()
	defer g.mu.Unlock()

	switch req.Side {
	case model.SideBuy:
		if notional > g.quote {
			return model.OrderResult{}, fmt.Errorf("paper buy %s: need %.2f quote, have %.2f", req.Symbol, notional, g.quote)
		}
		g.quote -= notional
		g.holdings[asset] += qty
	case model.SideSell:
		if qty > g.holdings[asset] {
			return model.OrderResult{}, fmt.Errorf("paper sell %s: need %.8f %s, have %.8f", req.Symbol, qty, asset, g.holdings[asset])
		}
		g.holdings[asset] -= qty
		if g.holdings[asset] <= 0 {
			delete(g.holdings, asset)
		}
		g.quote += notional
	default:
		return model.OrderResult{}, fmt.Errorf("paper order: unknown side %q", req.Side)
	}

	result := model.OrderResult{
		OrderID:   "paper-" + uuid.NewString(),
		Symbol:    strings.ToUpper(req.Symbol),
		Side:      req.Side,
		FillQty:   qty,
		FillPrice: price,
		PlacedAt:  time.Now(),
	}
	log.Printf("[paper] user %s: %s %s qty=%.8f at %.4f (quote left %.2f)",
		userID, req.Side, result.Symbol, qty, price, g.quote)

	if g.journal != nil {
		if err := g.journal.RecordFill(ctx, userID, result, notional); err != nil {
			log.Printf("[paper] journal: %v", err)
		}
	}
	return result, nil
}

func (g *Gateway) fillPrice(ctx context.Context, req model.OrderRequest) (float64, error) {
	if req.Type == "limit" && req.Price > 0 {
		return req.Price, nil
	}
	price, err := g.prices.GetPrice(ctx, req.Symbol)
	if err != nil {
		return 0, fmt.Errorf("paper fill price %s: %w", req.Symbol, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("paper fill price %s: no price", req.Symbol)
	}
	slip := price * g.slippageBps / 10000
	if req.Side == model.SideBuy {
		return price + slip, nil
	}
	return price - slip, nil
}

// GetPortfolio reports the simulated balances, holdings valued at
// current prices.
func (g *Gateway) GetPortfolio(ctx context.Context, userID string) (model.Portfolio, error) {
	g.mu.Lock()
	pf := model.Portfolio{AvailableQuote: g.quote}
	assets := make([]string, 0, len(g.holdings))
	amounts := make(map[string]float64, len(g.holdings))
	for asset, amount := range g.holdings {
		assets = append(assets, asset+"USDT")
		amounts[asset] = amount
	}
	g.mu.Unlock()

	if len(assets) == 0 {
		return pf, nil
	}
	prices, err := g.prices.GetPricesBatch(ctx, assets)
	if err != nil {
		return model.Portfolio{}, err
	}
	for asset, amount := range amounts {
		price := prices[asset+"USDT"]
		pf.Holdings = append(pf.Holdings, model.Holding{
			Asset:      asset,
			Amount:     amount,
			Price:      price,
			ValueQuote: amount * price,
		})
	}
	return pf, nil
}

// GetSymbolInfo reports a fine fixed step; paper fills have no exchange
// lot rules to honor.
func (g *Gateway) GetSymbolInfo(ctx context.Context, symbol string) (model.SymbolInfo, error) {
	return model.SymbolInfo{Symbol: strings.ToUpper(symbol), StepSize: defaultStepSize}, nil
}

func baseAsset(symbol string) string {
	symbol = strings.ToUpper(symbol)
	for _, quote := range []string{"USDT", "USDC", "BUSD", "BTC", "ETH"} {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return strings.TrimSuffix(symbol, quote)
		}
	}
	return symbol
}
