// Package bus fans finalized candles out from the ingest to the engine
// consumers (indicator recompute, snapshot mirror).
package bus

import (
	"context"
	"log"
	"sync"

	"tradecore/internal/model"
)

// FanOut broadcasts candles from one input channel to named subscriber
// channels. A full subscriber channel drops the candle for that consumer
// only, so a stalled consumer cannot block the feed.
type FanOut struct {
	mu      sync.RWMutex
	subs    []subscriber
	bufSize int

	// OnDrop, when set, is called with the slow subscriber's name
	// instead of the default log line.
	OnDrop func(name string)
}

type subscriber struct {
	name string
	ch   chan model.Candle
}

// New creates a FanOut whose subscriber channels hold bufSize candles.
func New(bufSize int) *FanOut {
	return &FanOut{bufSize: bufSize}
}

// Subscribe registers a named consumer and returns its channel. The
// channel is closed when Run returns.
func (f *FanOut) Subscribe(name string) <-chan model.Candle {
	ch := make(chan model.Candle, f.bufSize)
	f.mu.Lock()
	f.subs = append(f.subs, subscriber{name: name, ch: ch})
	f.mu.Unlock()
	return ch
}

// Run reads candles from input and broadcasts until ctx is cancelled or
// input closes.
func (f *FanOut) Run(ctx context.Context, input <-chan model.Candle) {
	defer func() {
		f.mu.RLock()
		for _, s := range f.subs {
			close(s.ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case candle, ok := <-input:
			if !ok {
				return
			}
			f.broadcast(candle)
		}
	}
}

func (f *FanOut) broadcast(candle model.Candle) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.subs {
		select {
		case s.ch <- candle:
		default:
			if f.OnDrop != nil {
				f.OnDrop(s.name)
			} else {
				log.Printf("[bus] subscriber %q full, dropping candle %s", s.name, candle.Key())
			}
		}
	}
}
