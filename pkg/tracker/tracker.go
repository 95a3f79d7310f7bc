package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks geocoder usage per provider and orchestrator outcomes.
type Tracker struct {
	mu       sync.RWMutex
	stats    map[string]*ProviderStats
	outcomes map[string]*int64
}

// ProviderStats holds metrics for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	APISuccess    int64
	APIFailures   int64
	APIZeroResult int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats:    make(map[string]*ProviderStats),
		outcomes: make(map[string]*int64),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

func (t *Tracker) TrackAPISuccess(provider string) {
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

// TrackAPIZero counts a successful call that returned no candidates.
func (t *Tracker) TrackAPIZero(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIZeroResult, 1)
}

// TrackOutcome counts one finished (or rejected) orchestrator run by outcome name.
func (t *Tracker) TrackOutcome(outcome string) {
	t.mu.RLock()
	c, ok := t.outcomes[outcome]
	t.mu.RUnlock()
	if !ok {
		t.mu.Lock()
		if c, ok = t.outcomes[outcome]; !ok {
			c = new(int64)
			t.outcomes[outcome] = c
		}
		t.mu.Unlock()
	}
	atomic.AddInt64(c, 1)
}

// Snapshot returns a copy of the current provider stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = ProviderStats{
			APISuccess:    atomic.LoadInt64(&v.APISuccess),
			APIFailures:   atomic.LoadInt64(&v.APIFailures),
			APIZeroResult: atomic.LoadInt64(&v.APIZeroResult),
		}
	}
	return result
}

// Outcomes returns a copy of the outcome counters.
func (t *Tracker) Outcomes() map[string]int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]int64, len(t.outcomes))
	for k, v := range t.outcomes {
		result[k] = atomic.LoadInt64(v)
	}
	return result
}

// Reset zeroes all counters but keeps known providers.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.stats {
		atomic.StoreInt64(&s.APISuccess, 0)
		atomic.StoreInt64(&s.APIFailures, 0)
		atomic.StoreInt64(&s.APIZeroResult, 0)
	}
	t.outcomes = make(map[string]*int64)
}
