package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple the engine from its external collaborators
// (market data, exchange, relational store, shared cache). Each concrete
// implementation satisfies one or more of these.

// CandleSource provides candle history for a symbol and timeframe,
// ascending by time, most recent last.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}

// PriceSource provides current prices, cache-first with an exchange
// ticker fallback.
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// GetPricesBatch fetches prices for several symbols in one pass.
	// Missing symbols are absent from the returned map, not an error.
	GetPricesBatch(ctx context.Context, symbols []string) (map[string]float64, error)
}

// ExecutionGateway places orders and reports holdings on behalf of a user.
type ExecutionGateway interface {
	PlaceOrder(ctx context.Context, userID string, req OrderRequest) (OrderResult, error)
	GetPortfolio(ctx context.Context, userID string) (Portfolio, error)
	GetSymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
}

// SnapshotStore holds the latest indicator snapshot per (symbol, timeframe).
// Absence is distinguished from a zero-valued snapshot.
type SnapshotStore interface {
	Get(symbol, timeframe string) (IndicatorSnapshot, bool)
	Set(snap IndicatorSnapshot)
}

// BotStore persists bot rows.
type BotStore interface {
	ListByStatus(ctx context.Context, status BotStatus) ([]Bot, error)
	GetBot(ctx context.Context, id string) (Bot, error)
	CreateBot(ctx context.Context, b Bot) error

	// SaveBotState writes back a bot's config blob and trade counter
	// after an actuating tick.
	SaveBotState(ctx context.Context, id string, cfg BotConfig, totalTrades int64) error

	// SetBotStatus flips a bot's status with a human-readable reason.
	SetBotStatus(ctx context.Context, id string, status BotStatus, reason string) error
}

// ConditionalOrderStore persists conditional order rows.
type ConditionalOrderStore interface {
	ListActive(ctx context.Context) ([]ConditionalOrder, error)
	CreateOrder(ctx context.Context, o ConditionalOrder) error

	// MarkTerminal transitions an active order to a terminal status,
	// recording the error message for failed orders.
	MarkTerminal(ctx context.Context, id string, status OrderStatus, errMsg string, at time.Time) error

	// UpdateLastPrice records the last observed price for crossing detection.
	UpdateLastPrice(ctx context.Context, id string, price float64) error
}

// SettingsStore persists per-user indicator and advanced-signal settings.
// Readers default missing rows and missing fields rather than failing.
type SettingsStore interface {
	GetIndicatorSettings(ctx context.Context, userID string) (IndicatorSettings, error)
	SaveIndicatorSettings(ctx context.Context, s IndicatorSettings) error
	GetAdvancedSettings(ctx context.Context, userID string) (AdvancedSignalSettings, error)
	SaveAdvancedSettings(ctx context.Context, s AdvancedSignalSettings) error
}

// RuntimeCache is the low-latency shared cache for per-bot runtime state
// and snapshot mirrors.
type RuntimeCache interface {
	GetGridState(ctx context.Context, botID string) (*GridRuntimeState, error)
	SetGridState(ctx context.Context, botID string, st *GridRuntimeState) error
	DeleteGridState(ctx context.Context, botID string) error

	// MirrorSnapshot publishes an indicator snapshot for other processes.
	MirrorSnapshot(ctx context.Context, snap IndicatorSnapshot) error

	// CachePrice stores a price with a short TTL; CachedPrice returns
	// ok=false when absent or expired.
	CachePrice(ctx context.Context, symbol string, price float64) error
	CachedPrice(ctx context.Context, symbol string) (float64, bool, error)
}
