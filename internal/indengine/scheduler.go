package indengine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"tradecore/internal/metrics"
	"tradecore/internal/model"
)

// DefaultSweepConcurrency bounds how many pairs compute in flight during
// the periodic sweep.
const DefaultSweepConcurrency = 10

// SchedulerConfig configures the calculation scheduler.
type SchedulerConfig struct {
	Symbols     []string
	Timeframes  []string
	Concurrency int64 // 0 = DefaultSweepConcurrency
}

// Scheduler drives snapshot recomputation: a periodic sweep over the
// symbol×timeframe matrix plus an event-driven recompute on each
// finalized candle close. An in-flight flag keeps sweeps from
// overlapping; a per-key pending set collapses candle-close bursts.
type Scheduler struct {
	cfg     SchedulerConfig
	candles model.CandleSource
	store   *Store
	cache   model.RuntimeCache // optional snapshot mirror
	prom    *metrics.Metrics

	sweeping atomic.Bool

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewScheduler creates a scheduler writing into store. cache may be nil
// when no cross-process mirror is wanted.
func NewScheduler(cfg SchedulerConfig, candles model.CandleSource, store *Store, cache model.RuntimeCache, prom *metrics.Metrics) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultSweepConcurrency
	}
	return &Scheduler{
		cfg:     cfg,
		candles: candles,
		store:   store,
		cache:   cache,
		prom:    prom,
		pending: make(map[string]struct{}, 64),
	}
}

// SweepResult summarizes one periodic sweep.
type SweepResult struct {
	Computed int
	Skipped  int // insufficient history
	Failed   int
}

// Sweep recomputes every (symbol, timeframe) pair in bounded-concurrency
// batches. A sweep that would overlap one still in progress is skipped
// with a log line instead of queuing. On total failure it logs and
// returns zero counts rather than panicking its caller.
func (s *Scheduler) Sweep(ctx context.Context) SweepResult {
	if !s.sweeping.CompareAndSwap(false, true) {
		log.Println("[scheduler] sweep already in progress, skipping")
		s.prom.SweepsSkipped.Inc()
		return SweepResult{}
	}
	defer s.sweeping.Store(false)

	start := time.Now()
	sem := semaphore.NewWeighted(s.cfg.Concurrency)
	var wg sync.WaitGroup
	var computed, skipped, failed atomic.Int64

	for _, symbol := range s.cfg.Symbols {
		for _, tf := range s.cfg.Timeframes {
			if err := sem.Acquire(ctx, 1); err != nil {
				// Context cancelled mid-sweep; report what finished.
				wg.Wait()
				return s.finishSweep(start, &computed, &skipped, &failed)
			}
			wg.Add(1)
			go func(symbol, tf string) {
				defer wg.Done()
				defer sem.Release(1)
				switch err := s.recompute(ctx, symbol, tf); {
				case err == errInsufficientHistory:
					skipped.Add(1)
				case err != nil:
					log.Printf("[scheduler] sweep %s %s: %v", symbol, tf, err)
					failed.Add(1)
				default:
					computed.Add(1)
				}
			}(symbol, tf)
		}
	}
	wg.Wait()
	return s.finishSweep(start, &computed, &skipped, &failed)
}

func (s *Scheduler) finishSweep(start time.Time, computed, skipped, failed *atomic.Int64) SweepResult {
	res := SweepResult{
		Computed: int(computed.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
	}
	s.prom.SweepDur.Observe(time.Since(start).Seconds())
	log.Printf("[scheduler] sweep done in %v: %d computed, %d skipped, %d failed",
		time.Since(start).Round(time.Millisecond), res.Computed, res.Skipped, res.Failed)
	return res
}

// RunPeriodic runs Sweep on the given interval until ctx is cancelled.
// An immediate first sweep warms the store.
func (s *Scheduler) RunPeriodic(ctx context.Context, interval time.Duration) {
	s.Sweep(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// OnCandleClose schedules a recompute for the candle's pair. Provisional
// candles are ignored. A burst of close events for the same key collapses
// into one computation via the pending set; the key is dropped on
// completion or failure.
func (s *Scheduler) OnCandleClose(ctx context.Context, c model.Candle) {
	if !c.Final {
		return
	}
	k := c.Key()
	s.mu.Lock()
	if _, inFlight := s.pending[k]; inFlight {
		s.mu.Unlock()
		return
	}
	s.pending[k] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.pending, k)
			s.mu.Unlock()
		}()
		if err := s.recompute(ctx, c.Symbol, c.Timeframe); err != nil && err != errInsufficientHistory {
			log.Printf("[scheduler] candle-close recompute %s: %v", k, err)
		}
	}()
}

// PendingLen returns the current size of the pending set.
func (s *Scheduler) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

type schedulerErr string

func (e schedulerErr) Error() string { return string(e) }

// errInsufficientHistory marks a pair skipped for lack of candles.
// A normal outcome, never logged as a failure.
const errInsufficientHistory = schedulerErr("insufficient candle history")

// recompute fetches history, computes all indicators and overwrites the
// snapshot for one pair.
func (s *Scheduler) recompute(ctx context.Context, symbol, timeframe string) error {
	start := time.Now()
	candles, err := s.candles.GetCandles(ctx, symbol, timeframe, CandleFetchLimit)
	if err != nil {
		return err
	}

	snap, ok := ComputeSnapshot(symbol, timeframe, candles)
	if !ok {
		return errInsufficientHistory
	}
	s.store.Set(snap)
	s.prom.SnapshotsComputed.Inc()
	s.prom.SnapshotComputeDur.Observe(time.Since(start).Seconds())

	if s.cache != nil {
		if err := s.cache.MirrorSnapshot(ctx, snap); err != nil {
			// Mirror is best-effort; the in-process store is authoritative.
			log.Printf("[scheduler] snapshot mirror %s %s: %v", symbol, timeframe, err)
		}
	}
	return nil
}
