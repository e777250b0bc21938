package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// DispatchStats tracks per-registration dispatch counters. All methods are
// safe for concurrent dispatches.
type DispatchStats struct {
	delivered atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64

	mu           sync.Mutex
	lastError    string
	lastActivity time.Time
}

func newDispatchStats() *DispatchStats {
	return &DispatchStats{}
}

func (s *DispatchStats) onDispatch() {
	s.delivered.Add(1)
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *DispatchStats) onResult(err error) {
	if err == nil {
		s.succeeded.Add(1)
		return
	}
	s.failed.Add(1)
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
}

// StatsSnapshot is a point-in-time copy of the counters.
type StatsSnapshot struct {
	Delivered    uint64
	Succeeded    uint64
	Failed       uint64
	LastError    string
	LastActivity time.Time
}

// Snapshot returns a consistent copy of the current counters.
func (s *DispatchStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	lastError, lastActivity := s.lastError, s.lastActivity
	s.mu.Unlock()

	return StatsSnapshot{
		Delivered:    s.delivered.Load(),
		Succeeded:    s.succeeded.Load(),
		Failed:       s.failed.Load(),
		LastError:    lastError,
		LastActivity: lastActivity,
	}
}
