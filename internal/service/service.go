// Package service wires the engine together: market data feed, indicator
// scheduler, signal analyzer, bot runner and conditional order engine,
// each driven by its own loop under one lifecycle.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"tradecore/internal/bot"
	"tradecore/internal/condorder"
	"tradecore/internal/config"
	binancegw "tradecore/internal/gateway/binance"
	"tradecore/internal/gateway/paper"
	"tradecore/internal/indengine"
	"tradecore/internal/marketdata/bus"
	"tradecore/internal/marketdata/ws"
	"tradecore/internal/metrics"
	"tradecore/internal/model"
	"tradecore/internal/notification"
	"tradecore/internal/signal"
	"tradecore/internal/store/redis"
	"tradecore/internal/store/sqlite"
)

// defaultUserID scopes the engine-driven signal loop's settings reads.
// Bots and conditional orders carry their own user ids.
const defaultUserID = "default"

const candleBufSize = 256

// Service owns every engine component and their run loops.
type Service struct {
	cfg *config.Config

	prom      *metrics.Metrics
	cache     model.RuntimeCache
	store     *sqlite.Store
	exchange  *binancegw.Client
	gateway   model.ExecutionGateway
	notifier  notification.Notifier
	snapshots *indengine.Store
	scheduler *indengine.Scheduler
	analyzer  *signal.Analyzer
	settings  *signal.SettingsService
	runner    *bot.Runner
	orders    *condorder.Engine
	ingest    *ws.Ingest
	fanout    *bus.FanOut
}

// New wires all components from config. Redis being down is not fatal:
// the engine degrades to uncached prices and no snapshot mirror.
func New(cfg *config.Config) (*Service, error) {
	s := &Service{cfg: cfg, prom: metrics.NewMetrics()}

	cache, err := redis.New(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("[service] redis unavailable, running uncached: %v", err)
	} else {
		s.cache = cache
	}

	s.store, err = sqlite.New(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s.exchange = binancegw.New(binancegw.Config{
		APIKey:    cfg.BinanceAPIKey,
		SecretKey: cfg.BinanceSecretKey,
		Testnet:   cfg.BinanceTestnet,
	}, s.cache, s.prom)

	switch cfg.ExecutionMode {
	case "live":
		s.gateway = s.exchange
	default:
		journal, err := paper.NewJournal(cfg.SQLitePath + ".fills")
		if err != nil {
			return nil, fmt.Errorf("open fill journal: %w", err)
		}
		s.gateway = paper.New(s.exchange, 10000, 5, journal)
		log.Printf("[service] paper execution: simulated fills, live market data")
	}

	s.notifier = buildNotifier(cfg)
	s.snapshots = indengine.NewStore()
	s.scheduler = indengine.NewScheduler(indengine.SchedulerConfig{
		Symbols:    cfg.ParseSymbols(),
		Timeframes: cfg.ParseTimeframes(),
	}, s.exchange, s.snapshots, s.cache, s.prom)

	s.analyzer = signal.NewAnalyzer(s.snapshots)
	s.settings = signal.NewSettingsService(s.store)

	s.runner = bot.NewRunner(&bot.Deps{
		Candles: s.exchange,
		Prices:  s.exchange,
		Gateway: s.gateway,
		Bots:    s.store,
		Cache:   s.cache,
		Notify:  s.notifier,
		Prom:    s.prom,
	})
	s.orders = condorder.New(s.store, s.exchange, s.gateway, s.notifier, s.prom)

	s.ingest, err = ws.New(ws.IngestConfig{
		BaseURL:    cfg.StreamBaseURL,
		Symbols:    cfg.ParseSymbols(),
		Timeframes: cfg.ParseTimeframes(),
	}, s.cache, s.prom)
	if err != nil {
		return nil, fmt.Errorf("ws ingest: %w", err)
	}
	s.fanout = bus.New(candleBufSize)

	return s, nil
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	var backends []notification.Notifier
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	return notification.NewMulti(backends...)
}

// Run starts every loop and blocks until ctx is cancelled or a loop
// fails fatally.
func (s *Service) Run(ctx context.Context) error {
	metrics.ServeHTTP(s.cfg.MetricsAddr)

	candleCh := make(chan model.Candle, candleBufSize)
	recomputeCh := s.fanout.Subscribe("recompute")
	signalCh := s.fanout.Subscribe("signal")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.ingest.Start(ctx, candleCh)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		s.fanout.Run(ctx, candleCh)
		return nil
	})
	g.Go(func() error {
		for candle := range recomputeCh {
			s.scheduler.OnCandleClose(ctx, candle)
		}
		return nil
	})
	g.Go(func() error {
		s.signalLoop(ctx, signalCh)
		return nil
	})
	g.Go(func() error {
		s.scheduler.RunPeriodic(ctx, s.cfg.SweepInterval)
		return nil
	})
	g.Go(func() error {
		s.tickLoop(ctx, "bots", s.cfg.BotTickInterval, s.runner.TickAll)
		return nil
	})
	g.Go(func() error {
		s.tickLoop(ctx, "orders", s.cfg.OrderTickInterval, s.orders.Tick)
		return nil
	})

	log.Printf("[service] engine running: %d symbols x %d timeframes, execution=%s",
		len(s.cfg.ParseSymbols()), len(s.cfg.ParseTimeframes()), s.cfg.ExecutionMode)
	return g.Wait()
}

// tickLoop drives a batch function on a fixed interval.
func (s *Service) tickLoop(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// signalLoop re-evaluates the composite signal for a pair whenever one
// of its candles closes, and raises an alert on strong readings.
func (s *Service) signalLoop(ctx context.Context, candles <-chan model.Candle) {
	for candle := range candles {
		adv, err := s.settings.Advanced(ctx, defaultUserID)
		if err != nil {
			log.Printf("[service] advanced settings: %v", err)
			continue
		}
		res := s.analyzer.Analyze(candle.Symbol, candle.Timeframe, adv)
		s.prom.SignalsEvaluated.WithLabelValues(res.Signal).Inc()

		if res.Strength == signal.StrengthStrong && res.Signal != signal.SignalNeutral {
			s.notifier.Send(ctx, notification.Alert{
				Level: notification.AlertInfo,
				Title: fmt.Sprintf("strong %s signal: %s %s", res.Signal, candle.Symbol, candle.Timeframe),
				Message: fmt.Sprintf("confidence %.2f, reasons: %v",
					res.Confidence, res.Reasons),
			})
		}
	}
}

// Close releases persistent resources after Run returns.
func (s *Service) Close() {
	if s.store != nil {
		s.store.Close()
	}
	if c, ok := s.cache.(*redis.Cache); ok && c != nil {
		c.Close()
	}
}
