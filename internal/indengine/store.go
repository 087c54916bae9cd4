// Package indengine computes indicator snapshots for every tracked
// (symbol, timeframe) pair and keeps the latest one in the snapshot store.
//
// Two recomputation paths feed the store: a periodic sweep over the full
// symbol×timeframe matrix, and an event-driven recompute on each
// finalized candle close. Both overwrite the snapshot; neither retains
// history.
package indengine

import (
	"sync"

	"tradecore/internal/model"
)

// Store holds the latest indicator snapshot per (symbol, timeframe).
// A missing entry means "not computed yet" and is distinguished from a
// zero-valued snapshot.
type Store struct {
	mu    sync.RWMutex
	snaps map[string]model.IndicatorSnapshot
}

// NewStore creates an empty snapshot store.
func NewStore() *Store {
	return &Store{snaps: make(map[string]model.IndicatorSnapshot, 64)}
}

func key(symbol, timeframe string) string {
	return symbol + ":" + timeframe
}

// Get returns the latest snapshot for the pair, if one has been computed.
func (s *Store) Get(symbol, timeframe string) (model.IndicatorSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[key(symbol, timeframe)]
	return snap, ok
}

// Set overwrites the snapshot for its (symbol, timeframe) pair.
func (s *Store) Set(snap model.IndicatorSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[key(snap.Symbol, snap.Timeframe)] = snap
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}
