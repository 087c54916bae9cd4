// Package binance implements the exchange collaborators (candle source,
// price source, execution gateway) over the Binance spot REST API.
package binance

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"tradecore/internal/metrics"
	"tradecore/internal/model"

	gobinance "github.com/adshao/go-binance/v2"
)

const maxKlineLimit = 1000

// Config configures the client. Empty keys give a read-only client
// (candles and prices work, orders fail server-side).
type Config struct {
	APIKey    string
	SecretKey string
	Testnet   bool
}

// Client talks to Binance spot. It satisfies model.CandleSource,
// model.PriceSource and model.ExecutionGateway. Prices read through the
// runtime cache when one is attached.
type Client struct {
	api   *gobinance.Client
	cache model.RuntimeCache
	prom  *metrics.Metrics
}

// New creates a client. cache and prom may be nil.
func New(cfg Config, cache model.RuntimeCache, prom *metrics.Metrics) *Client {
	gobinance.UseTestnet = cfg.Testnet
	return &Client{
		api:   gobinance.NewClient(cfg.APIKey, cfg.SecretKey),
		cache: cache,
		prom:  prom,
	}
}

// GetCandles fetches up to limit klines, ascending, most recent last.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxKlineLimit {
		limit = maxKlineLimit
	}
	klines, err := c.api.NewKlinesService().
		Symbol(strings.ToUpper(symbol)).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		c.countError()
		return nil, fmt.Errorf("klines %s %s: %w", symbol, timeframe, err)
	}

	out := make([]model.Candle, 0, len(klines))
	for i, k := range klines {
		candle := model.Candle{
			Symbol:    strings.ToUpper(symbol),
			Timeframe: timeframe,
			TS:        time.UnixMilli(k.OpenTime).UTC(),
			Open:      parseF(k.Open),
			High:      parseF(k.High),
			Low:       parseF(k.Low),
			Close:     parseF(k.Close),
			Volume:    parseF(k.Volume),
			// Only the most recent kline may still be forming.
			Final: i < len(klines)-1 || k.CloseTime < time.Now().UnixMilli(),
		}
		out = append(out, candle)
	}
	return out, nil
}

// GetPrice returns the current price, cache first.
func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(symbol)
	if c.cache != nil {
		if price, ok, err := c.cache.CachedPrice(ctx, symbol); err == nil && ok {
			return price, nil
		}
	}
	prices, err := c.api.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		c.countError()
		return 0, fmt.Errorf("ticker price %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no ticker price for %s", symbol)
	}
	price := parseF(prices[0].Price)
	c.storePrice(ctx, symbol, price)
	return price, nil
}

// GetPricesBatch resolves several symbols in one pass: cached prices
// first, one ticker call for the rest. Symbols the exchange does not
// know are absent from the result.
func (c *Client) GetPricesBatch(ctx context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	var missing []string
	for _, s := range symbols {
		s = strings.ToUpper(s)
		if c.cache != nil {
			if price, ok, err := c.cache.CachedPrice(ctx, s); err == nil && ok {
				out[s] = price
				continue
			}
		}
		missing = append(missing, s)
	}
	if len(missing) == 0 {
		return out, nil
	}

	prices, err := c.api.NewListPricesService().Symbols(missing).Do(ctx)
	if err != nil {
		c.countError()
		return nil, fmt.Errorf("ticker prices batch: %w", err)
	}
	for _, p := range prices {
		price := parseF(p.Price)
		out[p.Symbol] = price
		c.storePrice(ctx, p.Symbol, price)
	}
	return out, nil
}

// PlaceOrder submits a spot order. Stop-loss/take-profit/trailing fields
// on the request are advisory here: protective exits are run by the
// conditional order engine, not attached exchange-side.
func (c *Client) PlaceOrder(ctx context.Context, userID string, req model.OrderRequest) (model.OrderResult, error) {
	start := time.Now()
	defer func() {
		if c.prom != nil {
			c.prom.GatewayOrderDur.Observe(time.Since(start).Seconds())
		}
	}()

	svc := c.api.NewCreateOrderService().
		Symbol(strings.ToUpper(req.Symbol)).
		Side(sideType(req.Side))

	switch req.Type {
	case "limit":
		if req.Price <= 0 {
			return model.OrderResult{}, fmt.Errorf("limit order for %s without a price", req.Symbol)
		}
		if req.Quantity <= 0 {
			return model.OrderResult{}, fmt.Errorf("limit order for %s without a quantity", req.Symbol)
		}
		svc = svc.Type(gobinance.OrderTypeLimit).
			TimeInForce(gobinance.TimeInForceTypeGTC).
			Price(formatF(req.Price)).
			Quantity(formatF(req.Quantity))
	default: // market
		svc = svc.Type(gobinance.OrderTypeMarket)
		switch {
		case req.Quantity > 0:
			svc = svc.Quantity(formatF(req.Quantity))
		case req.QuoteAmount > 0:
			svc = svc.QuoteOrderQty(formatF(req.QuoteAmount))
		default:
			return model.OrderResult{}, fmt.Errorf("order for %s has no amount", req.Symbol)
		}
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		c.countError()
		return model.OrderResult{}, fmt.Errorf("place %s %s: %w", req.Side, req.Symbol, err)
	}

	result := model.OrderResult{
		OrderID:  strconv.FormatInt(resp.OrderID, 10),
		Symbol:   resp.Symbol,
		Side:     req.Side,
		FillQty:  parseF(resp.ExecutedQuantity),
		PlacedAt: time.Now(),
	}
	if result.FillQty > 0 {
		result.FillPrice = parseF(resp.CummulativeQuoteQuantity) / result.FillQty
	}
	log.Printf("[gateway] user %s: %s %s qty=%.8f at ~%.4f (order %s)",
		userID, req.Side, req.Symbol, result.FillQty, result.FillPrice, result.OrderID)
	return result, nil
}

// GetPortfolio reports the spot account: free USDT as available quote,
// every other non-dust balance valued through its USDT pair.
func (c *Client) GetPortfolio(ctx context.Context, userID string) (model.Portfolio, error) {
	acct, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		c.countError()
		return model.Portfolio{}, fmt.Errorf("account for %s: %w", userID, err)
	}

	var pf model.Portfolio
	var assets []string
	amounts := make(map[string]float64)
	for _, b := range acct.Balances {
		total := parseF(b.Free) + parseF(b.Locked)
		if total <= 0 {
			continue
		}
		if b.Asset == "USDT" {
			pf.AvailableQuote = parseF(b.Free)
			continue
		}
		assets = append(assets, b.Asset+"USDT")
		amounts[b.Asset] = total
	}
	if len(assets) == 0 {
		return pf, nil
	}

	prices, err := c.GetPricesBatch(ctx, assets)
	if err != nil {
		return model.Portfolio{}, err
	}
	for asset, amount := range amounts {
		price := prices[asset+"USDT"]
		if price <= 0 {
			continue // no USDT pair, not tradable by this engine
		}
		pf.Holdings = append(pf.Holdings, model.Holding{
			Asset:      asset,
			Amount:     amount,
			Price:      price,
			ValueQuote: amount * price,
		})
	}
	return pf, nil
}

// GetSymbolInfo returns the lot step size for quantity rounding.
func (c *Client) GetSymbolInfo(ctx context.Context, symbol string) (model.SymbolInfo, error) {
	symbol = strings.ToUpper(symbol)
	info, err := c.api.NewExchangeInfoService().Symbols(symbol).Do(ctx)
	if err != nil {
		c.countError()
		return model.SymbolInfo{}, fmt.Errorf("exchange info %s: %w", symbol, err)
	}
	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		out := model.SymbolInfo{Symbol: symbol}
		if f := s.LotSizeFilter(); f != nil {
			out.StepSize = parseF(f.StepSize)
		}
		return out, nil
	}
	return model.SymbolInfo{}, fmt.Errorf("symbol %s not on exchange", symbol)
}

func (c *Client) storePrice(ctx context.Context, symbol string, price float64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.CachePrice(ctx, symbol, price); err != nil {
		log.Printf("[gateway] cache price %s: %v", symbol, err)
	}
}

func (c *Client) countError() {
	if c.prom != nil {
		c.prom.GatewayErrors.Inc()
	}
}

func sideType(side model.OrderSide) gobinance.SideType {
	if side == model.SideSell {
		return gobinance.SideTypeSell
	}
	return gobinance.SideTypeBuy
}

func parseF(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func formatF(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
