// Package ws streams kline data from the Binance combined websocket
// endpoint. Closed klines are emitted as finalized candles; every update
// also refreshes the short-TTL price cache so price reads rarely hit the
// REST ticker.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"tradecore/internal/metrics"
	"tradecore/internal/model"
	"tradecore/internal/ringbuf"

	"github.com/gorilla/websocket"
)

const (
	defaultBaseURL = "wss://stream.binance.com:9443"
	readTimeout    = 3 * time.Minute
	maxBackoff     = 30 * time.Second
	queueCapacity  = 1024
	drainInterval  = 25 * time.Millisecond
)

// IngestConfig holds configuration for the kline stream ingest.
type IngestConfig struct {
	BaseURL    string // defaults to the Binance production stream host
	Symbols    []string
	Timeframes []string
}

// Ingest maintains one combined-streams connection covering every
// symbol x timeframe pair and reconnects with exponential backoff.
type Ingest struct {
	cfg   IngestConfig
	cache model.RuntimeCache
	prom  *metrics.Metrics
	queue *ringbuf.Ring
}

// New creates an Ingest. cache and prom may be nil.
func New(cfg IngestConfig, cache model.RuntimeCache, prom *metrics.Metrics) (*Ingest, error) {
	if len(cfg.Symbols) == 0 || len(cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("ws ingest: no symbols or timeframes configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Ingest{
		cfg:   cfg,
		cache: cache,
		prom:  prom,
		queue: ringbuf.New(queueCapacity),
	}, nil
}

// streamURL builds the combined endpoint:
// wss://host/stream?streams=btcusdt@kline_1m/ethusdt@kline_1h/...
func (ing *Ingest) streamURL() string {
	streams := make([]string, 0, len(ing.cfg.Symbols)*len(ing.cfg.Timeframes))
	for _, sym := range ing.cfg.Symbols {
		for _, tf := range ing.cfg.Timeframes {
			streams = append(streams, strings.ToLower(sym)+"@kline_"+tf)
		}
	}
	return ing.cfg.BaseURL + "/stream?streams=" + strings.Join(streams, "/")
}

// Start connects and streams finalized candles into candleCh. Blocks
// until ctx is cancelled. Reconnects forever on read errors.
func (ing *Ingest) Start(ctx context.Context, candleCh chan<- model.Candle) error {
	go ing.drain(ctx, candleCh)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := ing.runConn(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[ws] connection lost: %v, reconnecting in %s", err, backoff)
		if ing.prom != nil {
			ing.prom.WSReconnects.Inc()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runConn dials once and reads until the connection breaks.
func (ing *Ingest) runConn(ctx context.Context) error {
	url := ing.streamURL()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	log.Printf("[ws] connected, %d streams", len(ing.cfg.Symbols)*len(ing.cfg.Timeframes))

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(payload string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(10*time.Second))
	})

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		ing.handleMessage(ctx, raw)
	}
}

// drain moves queued candles onto the output channel.
func (ing *Ingest) drain(ctx context.Context, candleCh chan<- model.Candle) {
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()
	batch := make([]model.Candle, 64)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				n := ing.queue.PopBatch(batch)
				if n == 0 {
					break
				}
				for _, candle := range batch[:n] {
					select {
					case candleCh <- candle:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}
}

func (ing *Ingest) handleMessage(ctx context.Context, raw []byte) {
	candle, closed, err := parseKlineEvent(raw)
	if err != nil {
		log.Printf("[ws] parse error: %v", err)
		return
	}

	if ing.cache != nil {
		if err := ing.cache.CachePrice(ctx, candle.Symbol, candle.Close); err != nil {
			log.Printf("[ws] cache price %s: %v", candle.Symbol, err)
		}
	}
	if !closed {
		return
	}

	if ing.prom != nil {
		ing.prom.CandlesTotal.Inc()
	}
	if !ing.queue.Push(candle) {
		log.Printf("[ws] queue full, dropping candle %s", candle.Key())
	}
}

// klineEvent is the combined-streams payload shape.
type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Kline  struct {
			OpenTime int64 `json:"t"`
			// CloseTime must be declared so the decoder binds "T" here
			// exactly; otherwise case-insensitive tag matching lets "T"
			// overwrite OpenTime's "t".
			CloseTime int64  `json:"T"`
			Timeframe string `json:"i"`
			Open      string `json:"o"`
			High      string `json:"h"`
			Low       string `json:"l"`
			Close     string `json:"c"`
			Volume    string `json:"v"`
			Closed    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// parseKlineEvent converts a raw combined-streams frame into a candle.
// The second return reports whether the kline is finalized.
func parseKlineEvent(raw []byte) (model.Candle, bool, error) {
	var ev klineEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.Candle{}, false, fmt.Errorf("unmarshal kline event: %w", err)
	}
	k := ev.Data.Kline
	if ev.Data.Symbol == "" || k.Timeframe == "" {
		return model.Candle{}, false, fmt.Errorf("not a kline frame: %s", ev.Stream)
	}
	return model.Candle{
		Symbol:    ev.Data.Symbol,
		Timeframe: k.Timeframe,
		TS:        time.UnixMilli(k.OpenTime).UTC(),
		Open:      parseF(k.Open),
		High:      parseF(k.High),
		Low:       parseF(k.Low),
		Close:     parseF(k.Close),
		Volume:    parseF(k.Volume),
		Final:     k.Closed,
	}, k.Closed, nil
}

func parseF(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
