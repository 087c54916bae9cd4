package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// BotType identifies the strategy family a bot belongs to. It is the
// discriminator for the per-type config union.
type BotType string

const (
	BotGrid          BotType = "grid"
	BotDCA           BotType = "dca"
	BotRSI           BotType = "rsi"
	BotMACD          BotType = "macd"
	BotMACross       BotType = "ma_crossover"
	BotBreakout      BotType = "breakout"
	BotMeanReversion BotType = "mean_reversion"
	BotMomentum      BotType = "momentum"
)

// BotStatus is the lifecycle state of a bot.
type BotStatus string

const (
	BotRunning BotStatus = "running"
	BotStopped BotStatus = "stopped"
)

// Bot is one persisted strategy bot row. Config shape depends on Type;
// it is decoded through DecodeBotConfig so the executor dispatch point
// matches exhaustively instead of trusting structure.
type Bot struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        BotType   `json:"type"`
	Symbol      string    `json:"symbol"`
	Status      BotStatus `json:"status"`
	Config      BotConfig `json:"config"`
	TotalTrades int64     `json:"total_trades"`
	StopReason  string    `json:"stop_reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BotConfig is the tagged union of per-strategy configs.
type BotConfig interface {
	BotType() BotType
}

// GridConfig configures a grid bot. Prices define the active window;
// runtime level/position state lives in the external cache.
type GridConfig struct {
	LowerPrice      float64 `json:"lower_price"`
	UpperPrice      float64 `json:"upper_price"`
	GridCount       int     `json:"grid_count"`
	TotalInvestment float64 `json:"total_investment"` // quote currency
	Geometric       bool    `json:"geometric"`        // false = arithmetic spacing
	Trailing        bool    `json:"trailing"`
	StopLoss        float64 `json:"stop_loss,omitempty"`
	TakeProfit      float64 `json:"take_profit,omitempty"`
	CooldownSec     int     `json:"cooldown_sec,omitempty"`
	LastTradeAt     int64   `json:"last_trade_at,omitempty"` // unix seconds
}

func (GridConfig) BotType() BotType { return BotGrid }

// DCAConfig configures a dollar-cost-averaging bot.
type DCAConfig struct {
	AmountPerPurchase float64 `json:"amount_per_purchase"` // quote currency
	IntervalHours     float64 `json:"interval_hours"`
	TotalPurchases    int     `json:"total_purchases"`
	PurchasesMade     int     `json:"purchases_made"`
	LastPurchaseAt    int64   `json:"last_purchase_at,omitempty"` // unix seconds
}

func (DCAConfig) BotType() BotType { return BotDCA }

// RSIConfig configures an RSI threshold bot.
type RSIConfig struct {
	Period         int     `json:"period,omitempty"` // default 14
	Oversold       float64 `json:"oversold"`
	Overbought     float64 `json:"overbought"`
	AmountPerTrade float64 `json:"amount_per_trade"` // quote currency
	CooldownSec    int     `json:"cooldown_sec,omitempty"`
	LastTradeAt    int64   `json:"last_trade_at,omitempty"`
}

func (RSIConfig) BotType() BotType { return BotRSI }

// MACDConfig configures a MACD signal-line crossover bot.
type MACDConfig struct {
	Amount          float64 `json:"amount"` // quote currency per trade
	TrailingStopPct float64 `json:"trailing_stop_pct,omitempty"`
	CooldownSec     int     `json:"cooldown_sec,omitempty"`
	LastTradeAt     int64   `json:"last_trade_at,omitempty"`
	LastDirection   string  `json:"last_direction,omitempty"` // "bullish" | "bearish"
}

func (MACDConfig) BotType() BotType { return BotMACD }

// MACrossConfig configures a moving-average crossover bot.
type MACrossConfig struct {
	FastPeriod    int     `json:"fast_period"`
	SlowPeriod    int     `json:"slow_period"`
	UseEMA        bool    `json:"use_ema"` // false = SMA
	Amount        float64 `json:"amount"`
	CooldownSec   int     `json:"cooldown_sec,omitempty"`
	LastTradeAt   int64   `json:"last_trade_at,omitempty"`
	LastDirection string  `json:"last_direction,omitempty"` // "golden" | "death"
}

func (MACrossConfig) BotType() BotType { return BotMACross }

// BreakoutConfig configures a range breakout bot.
type BreakoutConfig struct {
	Lookback         int     `json:"lookback"`      // candles defining the range
	ThresholdPct     float64 `json:"threshold_pct"` // % beyond range to confirm
	VolumeMultiplier float64 `json:"volume_multiplier"`
	Amount           float64 `json:"amount"`
	CooldownSec      int     `json:"cooldown_sec,omitempty"`
	LastTradeAt      int64   `json:"last_trade_at,omitempty"`
}

func (BreakoutConfig) BotType() BotType { return BotBreakout }

// MeanReversionConfig configures a mean-reversion bot.
type MeanReversionConfig struct {
	MAPeriod     int     `json:"ma_period"`
	DeviationPct float64 `json:"deviation_pct"`
	Amount       float64 `json:"amount"`
	CooldownSec  int     `json:"cooldown_sec,omitempty"`
	LastTradeAt  int64   `json:"last_trade_at,omitempty"`
}

func (MeanReversionConfig) BotType() BotType { return BotMeanReversion }

// MomentumConfig configures an RSI momentum bot.
type MomentumConfig struct {
	RSIThreshold  float64 `json:"rsi_threshold"` // e.g. 60: buy >=60 rising, sell <=40 falling
	VolumeConfirm bool    `json:"volume_confirm"`
	Amount        float64 `json:"amount"`
	CooldownSec   int     `json:"cooldown_sec,omitempty"`
	LastTradeAt   int64   `json:"last_trade_at,omitempty"`
	LastDirection string  `json:"last_direction,omitempty"` // "up" | "down"
}

func (MomentumConfig) BotType() BotType { return BotMomentum }

// DecodeBotConfig decodes a raw config blob according to the bot type.
// Unknown types are an error, never a silently-empty config.
func DecodeBotConfig(t BotType, raw []byte) (BotConfig, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var (
		cfg BotConfig
		err error
	)
	switch t {
	case BotGrid:
		var c GridConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case BotDCA:
		var c DCAConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case BotRSI:
		var c RSIConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case BotMACD:
		var c MACDConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case BotMACross:
		var c MACrossConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case BotBreakout:
		var c BreakoutConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case BotMeanReversion:
		var c MeanReversionConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	case BotMomentum:
		var c MomentumConfig
		err = json.Unmarshal(raw, &c)
		cfg = c
	default:
		return nil, fmt.Errorf("unknown bot type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s config: %w", t, err)
	}
	return cfg, nil
}

// EncodeBotConfig serializes a config for row storage.
func EncodeBotConfig(cfg BotConfig) ([]byte, error) {
	if cfg == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(cfg)
}

// GridPosition is one open grid buy awaiting a profitable sell.
type GridPosition struct {
	Level    int     `json:"level"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

// GridRuntimeState is the grid bot's mutable runtime state, held in the
// shared cache keyed by bot id. LastLevel == -1 means uninitialized.
type GridRuntimeState struct {
	LastLevel int            `json:"last_level"`
	Positions []GridPosition `json:"positions"`
}

// NewGridRuntimeState returns the uninitialized state.
func NewGridRuntimeState() *GridRuntimeState {
	return &GridRuntimeState{LastLevel: -1}
}
