package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	// Candle feed
	CandlesTotal prometheus.Counter
	WSReconnects prometheus.Counter

	// Indicator scheduler
	SnapshotsComputed  prometheus.Counter
	SnapshotComputeDur prometheus.Histogram
	SweepDur           prometheus.Histogram
	SweepsSkipped      prometheus.Counter

	// Signal analyzer
	SignalsEvaluated *prometheus.CounterVec // labels: signal

	// Bot execution
	BotTicksTotal  prometheus.Counter
	BotTradesTotal *prometheus.CounterVec // labels: strategy, side
	BotErrors      prometheus.Counter
	BotsStopped    *prometheus.CounterVec // labels: reason

	// Conditional orders
	OrdersEvaluated prometheus.Counter
	OrdersTriggered prometheus.Counter
	OrdersFailed    prometheus.Counter
	OrdersExpired   prometheus.Counter

	// Gateway
	GatewayOrderDur prometheus.Histogram
	GatewayErrors   prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandlesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_candles_total",
			Help: "Total finalized candles received from the feed",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_ws_reconnects_total",
			Help: "Total WebSocket reconnection attempts",
		}),

		SnapshotsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_snapshots_computed_total",
			Help: "Indicator snapshots computed and stored",
		}),
		SnapshotComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradecore_snapshot_compute_duration_seconds",
			Help:    "Snapshot computation latency per (symbol, timeframe)",
			Buckets: prometheus.DefBuckets,
		}),
		SweepDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradecore_sweep_duration_seconds",
			Help:    "Full symbol x timeframe sweep latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SweepsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_sweeps_skipped_total",
			Help: "Sweeps skipped because a prior sweep was still running",
		}),

		SignalsEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_signals_evaluated_total",
			Help: "Signal analyzer evaluations by resulting signal",
		}, []string{"signal"}),

		BotTicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_bot_ticks_total",
			Help: "Bot evaluation ticks",
		}),
		BotTradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_bot_trades_total",
			Help: "Trades placed by bots (by strategy and side)",
		}, []string{"strategy", "side"}),
		BotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_bot_errors_total",
			Help: "Bot evaluation errors (bot skips the tick, batch continues)",
		}),
		BotsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_bots_stopped_total",
			Help: "Bots stopped (by reason: stop_loss, take_profit, completed, user)",
		}, []string{"reason"}),

		OrdersEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_conditional_orders_evaluated_total",
			Help: "Conditional order evaluations",
		}),
		OrdersTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_conditional_orders_triggered_total",
			Help: "Conditional orders fired",
		}),
		OrdersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_conditional_orders_failed_total",
			Help: "Conditional orders that failed at execution (terminal)",
		}),
		OrdersExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_conditional_orders_expired_total",
			Help: "Conditional orders swept to expired",
		}),

		GatewayOrderDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradecore_gateway_order_duration_seconds",
			Help:    "Order placement latency at the execution gateway",
			Buckets: prometheus.DefBuckets,
		}),
		GatewayErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_gateway_errors_total",
			Help: "Execution gateway call failures",
		}),
	}

	prometheus.MustRegister(
		m.CandlesTotal,
		m.WSReconnects,
		m.SnapshotsComputed,
		m.SnapshotComputeDur,
		m.SweepDur,
		m.SweepsSkipped,
		m.SignalsEvaluated,
		m.BotTicksTotal,
		m.BotTradesTotal,
		m.BotErrors,
		m.BotsStopped,
		m.OrdersEvaluated,
		m.OrdersTriggered,
		m.OrdersFailed,
		m.OrdersExpired,
		m.GatewayOrderDur,
		m.GatewayErrors,
	)

	return m
}

// NewTestMetrics returns metrics registered on a private registry, so
// tests can construct fresh instances without duplicate-registration
// panics.
func NewTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		CandlesTotal:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_candles_total"}),
		WSReconnects:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_ws_reconnects_total"}),
		SnapshotsComputed:  prometheus.NewCounter(prometheus.CounterOpts{Name: "test_snapshots_computed_total"}),
		SnapshotComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_snapshot_compute_duration_seconds"}),
		SweepDur:           prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_sweep_duration_seconds"}),
		SweepsSkipped:      prometheus.NewCounter(prometheus.CounterOpts{Name: "test_sweeps_skipped_total"}),
		SignalsEvaluated:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_signals_evaluated_total"}, []string{"signal"}),
		BotTicksTotal:      prometheus.NewCounter(prometheus.CounterOpts{Name: "test_bot_ticks_total"}),
		BotTradesTotal:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_bot_trades_total"}, []string{"strategy", "side"}),
		BotErrors:          prometheus.NewCounter(prometheus.CounterOpts{Name: "test_bot_errors_total"}),
		BotsStopped:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_bots_stopped_total"}, []string{"reason"}),
		OrdersEvaluated:    prometheus.NewCounter(prometheus.CounterOpts{Name: "test_orders_evaluated_total"}),
		OrdersTriggered:    prometheus.NewCounter(prometheus.CounterOpts{Name: "test_orders_triggered_total"}),
		OrdersFailed:       prometheus.NewCounter(prometheus.CounterOpts{Name: "test_orders_failed_total"}),
		OrdersExpired:      prometheus.NewCounter(prometheus.CounterOpts{Name: "test_orders_expired_total"}),
		GatewayOrderDur:    prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_gateway_order_duration_seconds"}),
		GatewayErrors:      prometheus.NewCounter(prometheus.CounterOpts{Name: "test_gateway_errors_total"}),
	}
	reg.MustRegister(m.CandlesTotal, m.SnapshotsComputed, m.SweepsSkipped)
	return m
}

// ServeHTTP starts the /metrics endpoint on addr in a goroutine.
func ServeHTTP(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[metrics] serving /metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}
