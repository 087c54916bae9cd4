// Package redis implements the shared runtime cache: grid bot runtime
// state, indicator snapshot mirrors for other processes, and a short-TTL
// price cache.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tradecore/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	gridStateTTL  = 7 * 24 * time.Hour
	snapshotTTL   = 30 * time.Minute
	priceTTL      = 10 * time.Second
	breakerProbes = 5
	breakerReset  = 10 * time.Second
)

// Config configures the Redis cache client.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Cache is the Redis-backed model.RuntimeCache. Mirror and price writes
// run through a circuit breaker so a Redis outage degrades them to no-ops
// instead of stalling the tick loop.
type Cache struct {
	client *goredis.Client
	cb     *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New creates the cache and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{
		client: client,
		cb:     NewCircuitBreaker(breakerProbes, breakerReset),
	}, nil
}

func gridKey(botID string) string { return "grid:state:" + botID }

func snapshotKey(symbol, timeframe string) string {
	return "indicators:" + symbol + ":" + timeframe
}

func priceKey(symbol string) string { return "price:" + symbol }

// GetGridState loads a grid bot's runtime state. A missing key returns
// (nil, nil): uninitialized, not an error.
func (c *Cache) GetGridState(ctx context.Context, botID string) (*model.GridRuntimeState, error) {
	data, err := c.client.Get(ctx, gridKey(botID)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grid state %s: %w", botID, err)
	}
	var st model.GridRuntimeState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode grid state %s: %w", botID, err)
	}
	return &st, nil
}

func (c *Cache) SetGridState(ctx context.Context, botID string, st *model.GridRuntimeState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode grid state %s: %w", botID, err)
	}
	if err := c.client.Set(ctx, gridKey(botID), data, gridStateTTL).Err(); err != nil {
		return fmt.Errorf("set grid state %s: %w", botID, err)
	}
	return nil
}

func (c *Cache) DeleteGridState(ctx context.Context, botID string) error {
	if err := c.client.Del(ctx, gridKey(botID)).Err(); err != nil {
		return fmt.Errorf("delete grid state %s: %w", botID, err)
	}
	return nil
}

// MirrorSnapshot publishes a snapshot for other processes: a keyed copy
// with a TTL plus a pub/sub notification for live consumers. Best-effort
// behind the circuit breaker.
func (c *Cache) MirrorSnapshot(ctx context.Context, snap model.IndicatorSnapshot) error {
	err := c.cb.Execute(func() error {
		data := snap.JSON()
		key := snapshotKey(snap.Symbol, snap.Timeframe)
		if err := c.client.Set(ctx, key, data, snapshotTTL).Err(); err != nil {
			return err
		}
		return c.client.Publish(ctx, "pub:"+key, data).Err()
	})
	if err == ErrCircuitOpen {
		// Mirrors are a convenience surface; drop silently while open.
		return nil
	}
	if err != nil {
		return fmt.Errorf("mirror snapshot %s/%s: %w", snap.Symbol, snap.Timeframe, err)
	}
	return nil
}

// CachePrice stores a price with a short TTL.
func (c *Cache) CachePrice(ctx context.Context, symbol string, price float64) error {
	err := c.cb.Execute(func() error {
		return c.client.Set(ctx, priceKey(symbol), price, priceTTL).Err()
	})
	if err == ErrCircuitOpen {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cache price %s: %w", symbol, err)
	}
	return nil
}

// CachedPrice returns ok=false when the key is absent or expired.
func (c *Cache) CachedPrice(ctx context.Context, symbol string) (float64, bool, error) {
	price, err := c.client.Get(ctx, priceKey(symbol)).Float64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cached price %s: %w", symbol, err)
	}
	return price, true, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
