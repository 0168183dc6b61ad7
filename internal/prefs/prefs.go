// Package prefs holds the adaptive preference multipliers learned from expert
// feedback. Values live in an append-only persistence log and are cached in
// memory after first read.
package prefs

import (
	"fmt"
	"sync"
)

// DefaultLearningRate is the exponential moving average factor applied to
// expert feedback.
const DefaultLearningRate = 0.1

// Persistence is the durable log the store reads and appends.
type Persistence interface {
	AppendPreference(agentType, context string, value float64) error
	LatestPreference(agentType, context string) (float64, error)
}

type key struct {
	agentType string
	context   string
}

// Store caches preference multipliers and applies feedback updates. Reads are
// concurrent; updates are serialized so concurrent read-modify-write cycles
// cannot lose feedback.
type Store struct {
	db           Persistence
	learningRate float64

	mu    sync.RWMutex
	cache map[key]float64

	updateMu sync.Mutex
}

// NewStore builds a preference store over the persistence log.
func NewStore(db Persistence) *Store {
	return &Store{
		db:           db,
		learningRate: DefaultLearningRate,
		cache:        make(map[key]float64),
	}
}

// Get returns the current multiplier for the key, loading it from persistence
// on cache miss. Missing keys default to 1.0.
func (s *Store) Get(agentType, context string) (float64, error) {
	k := key{agentType: agentType, context: context}

	s.mu.RLock()
	value, ok := s.cache[k]
	s.mu.RUnlock()
	if ok {
		return value, nil
	}

	value, err := s.db.LatestPreference(agentType, context)
	if err != nil {
		return 0, fmt.Errorf("load preference %s/%s: %w", agentType, context, err)
	}

	s.mu.Lock()
	s.cache[k] = value
	s.mu.Unlock()
	return value, nil
}

// Update folds feedback into the current value with the fixed learning rate,
// appends the new value to the persistence log, refreshes the cache, and
// returns the new value.
func (s *Store) Update(agentType, context string, feedback float64) (float64, error) {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	current, err := s.Get(agentType, context)
	if err != nil {
		return 0, err
	}

	updated := (1-s.learningRate)*current + s.learningRate*feedback
	if err := s.db.AppendPreference(agentType, context, updated); err != nil {
		return 0, fmt.Errorf("persist preference %s/%s: %w", agentType, context, err)
	}

	s.mu.Lock()
	s.cache[key{agentType: agentType, context: context}] = updated
	s.mu.Unlock()
	return updated, nil
}

// ClearCache drops every cached entry; subsequent reads go back to
// persistence.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[key]float64)
	s.mu.Unlock()
}
