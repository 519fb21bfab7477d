package protection

import (
	"context"
	"sync"
	"time"
)

// MemoryWindowStore keeps per-IP timestamp lists in process memory. Single
// instance deployments only: counters are neither shared across instances nor
// preserved across restarts. Use the redis store for anything bigger.
type MemoryWindowStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewMemoryWindowStore creates an empty in-memory window store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		requests: make(map[string][]time.Time),
	}
}

// Counts prunes entries older than one hour and counts the trailing windows.
func (s *MemoryWindowStore) Counts(_ context.Context, ip string, now time.Time) (WindowCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.prune(ip, now)

	var counts WindowCounts
	burstCutoff := now.Add(-burstWindow)
	minuteCutoff := now.Add(-time.Minute)
	for _, ts := range kept {
		counts.Hour++
		if ts.After(minuteCutoff) {
			counts.Minute++
		}
		if ts.After(burstCutoff) {
			counts.Burst++
		}
	}
	return counts, nil
}

// Record appends the current request timestamp to the IP's list.
func (s *MemoryWindowStore) Record(_ context.Context, ip string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[ip] = append(s.requests[ip], now)
	return nil
}

// prune drops entries older than one hour; caller must hold the lock.
func (s *MemoryWindowStore) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-time.Hour)
	entries := s.requests[ip]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(s.requests, ip)
		return nil
	}
	s.requests[ip] = kept
	return kept
}
