package model

import "time"

// OrderSide is the trade direction.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// AmountMode selects how an order amount is specified.
type AmountMode string

const (
	AmountQuantity   AmountMode = "quantity"   // base asset units
	AmountQuote      AmountMode = "quote"      // quote currency notional
	AmountPercentage AmountMode = "percentage" // % of balance/holding
)

// AmountSpec is the amount specification shared by conditional orders
// and several bot configs.
type AmountSpec struct {
	Mode  AmountMode `json:"mode"`
	Value float64    `json:"value"`
}

// OrderCondition is a conditional order's price trigger rule.
type OrderCondition string

const (
	CondAbove       OrderCondition = "above"
	CondBelow       OrderCondition = "below"
	CondCrossesUp   OrderCondition = "crosses_up"
	CondCrossesDown OrderCondition = "crosses_down"
)

// OrderStatus is a conditional order's lifecycle state. Every state but
// active is terminal and entered exactly once.
type OrderStatus string

const (
	OrderActive    OrderStatus = "active"
	OrderTriggered OrderStatus = "triggered"
	OrderCancelled OrderStatus = "cancelled"
	OrderExpired   OrderStatus = "expired"
	OrderFailed    OrderStatus = "failed"
)

// OrderAction describes the trade a conditional order fires.
type OrderAction struct {
	Side            OrderSide  `json:"side"`
	Type            string     `json:"type"` // "market" | "limit"
	Amount          AmountSpec `json:"amount"`
	LimitPrice      float64    `json:"limit_price,omitempty"`
	StopLoss        float64    `json:"stop_loss,omitempty"`
	TakeProfit      float64    `json:"take_profit,omitempty"`
	TrailingStopPct float64    `json:"trailing_stop_pct,omitempty"`
	TrailingStopUSD float64    `json:"trailing_stop_usd,omitempty"` // converted to pct at fire time
}

// ConditionalOrder is a one-shot price-trigger rule placed by a user.
// LastPrice is the last observed price, used only for crossing detection.
type ConditionalOrder struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Symbol       string         `json:"symbol"`
	Condition    OrderCondition `json:"condition"`
	TriggerPrice float64        `json:"trigger_price"`
	Action       OrderAction    `json:"action"`
	Status       OrderStatus    `json:"status"`
	LastPrice    float64        `json:"last_price"`
	Error        string         `json:"error,omitempty"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	TriggeredAt  *time.Time     `json:"triggered_at,omitempty"`
}

// Expired reports whether the order is past its expiry at the given time.
func (o *ConditionalOrder) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}

// OrderRequest is what the engine hands to the execution gateway.
// Exactly one of Quantity or QuoteAmount is set.
type OrderRequest struct {
	Symbol          string    `json:"symbol"`
	Side            OrderSide `json:"side"`
	Type            string    `json:"type"` // "market" | "limit"
	Quantity        float64   `json:"quantity,omitempty"`
	QuoteAmount     float64   `json:"quote_amount,omitempty"`
	Price           float64   `json:"price,omitempty"`
	StopLoss        float64   `json:"stop_loss,omitempty"`
	TakeProfit      float64   `json:"take_profit,omitempty"`
	TrailingStopPct float64   `json:"trailing_stop_pct,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// OrderResult is the gateway's report of a placed order.
type OrderResult struct {
	OrderID   string    `json:"order_id"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	FillQty   float64   `json:"fill_qty"`
	FillPrice float64   `json:"fill_price"`
	PlacedAt  time.Time `json:"placed_at"`
}

// Holding is one asset position in a portfolio.
type Holding struct {
	Asset      string  `json:"asset"`
	Amount     float64 `json:"amount"`
	ValueQuote float64 `json:"value_quote"`
	Price      float64 `json:"price"`
}

// Portfolio is a user's balance view as reported by the gateway.
type Portfolio struct {
	AvailableQuote float64   `json:"available_quote"`
	Holdings       []Holding `json:"holdings"`
}

// HoldingFor returns the holding for an asset, if any.
func (p *Portfolio) HoldingFor(asset string) (Holding, bool) {
	for _, h := range p.Holdings {
		if h.Asset == asset {
			return h, true
		}
	}
	return Holding{}, false
}

// SymbolInfo carries the exchange trading rules the engine needs.
type SymbolInfo struct {
	Symbol   string  `json:"symbol"`
	StepSize float64 `json:"step_size"` // base quantity increment
}
