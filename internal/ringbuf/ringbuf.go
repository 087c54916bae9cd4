// Package ringbuf provides a lock-free, single-producer single-consumer
// ring buffer for model.Candle. The websocket ingest pushes finalized
// candles from its read loop and the dispatch loop pops them, so the
// read loop never blocks on a slow consumer.
package ringbuf

import (
	"sync/atomic"

	"tradecore/internal/model"
)

// pad separates the producer and consumer cursors onto their own
// cache lines so the two goroutines do not false-share.
type pad [64]byte

// Ring is a bounded SPSC queue. Capacity is a power of two so index
// wrapping is a single mask.
type Ring struct {
	slots []model.Candle
	mask  uint64

	_    pad
	head atomic.Uint64 // producer cursor
	_    pad
	tail atomic.Uint64 // consumer cursor
	_    pad

	dropped atomic.Uint64
}

// New creates a ring with at least the requested capacity, rounded up
// to a power of two (minimum 2).
func New(capacity int) *Ring {
	n := nextPow2(capacity)
	if n < 2 {
		n = 2
	}
	return &Ring{
		slots: make([]model.Candle, n),
		mask:  uint64(n - 1),
	}
}

// Push enqueues a candle without blocking. A full ring drops the candle,
// bumps the overflow counter and returns false.
func (r *Ring) Push(c model.Candle) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= uint64(len(r.slots)) {
		r.dropped.Add(1)
		return false
	}
	r.slots[head&r.mask] = c
	r.head.Store(head + 1)
	return true
}

// Pop dequeues one candle without blocking. Returns false when empty.
func (r *Ring) Pop() (model.Candle, bool) {
	tail := r.tail.Load()
	if tail >= r.head.Load() {
		return model.Candle{}, false
	}
	c := r.slots[tail&r.mask]
	r.tail.Store(tail + 1)
	return c, true
}

// PopBatch dequeues up to len(dst) candles into dst and returns how many
// were copied. The dispatch loop uses this to empty the queue per tick
// with one cursor update.
func (r *Ring) PopBatch(dst []model.Candle) int {
	tail := r.tail.Load()
	avail := r.head.Load() - tail
	n := uint64(len(dst))
	if avail < n {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = r.slots[(tail+i)&r.mask]
	}
	if n > 0 {
		r.tail.Store(tail + n)
	}
	return int(n)
}

// Len reports the number of candles currently queued.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Cap reports the ring capacity.
func (r *Ring) Cap() int {
	return len(r.slots)
}

// Overflow reports the total candles dropped by Push against a full ring.
func (r *Ring) Overflow() uint64 {
	return r.dropped.Load()
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
