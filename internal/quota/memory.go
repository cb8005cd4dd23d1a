package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps counters in process memory. Counters from days before
// the one being incremented are dropped lazily on the next Incr.
type MemoryStore struct {
	mu      sync.Mutex
	counts  map[string]int
	expires map[string]time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counts:  map[string]int{},
		expires: map[string]time.Time{},
	}
}

func memoryKey(client, day string) string { return day + "|" + client }

func (s *MemoryStore) Incr(_ context.Context, client, day string, expires time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// expires is the end of the caller's day, so anything expiring at or
	// before that day's start belongs to an earlier day.
	dayStart := expires.Add(-24 * time.Hour)
	for k, exp := range s.expires {
		if !exp.After(dayStart) {
			delete(s.counts, k)
			delete(s.expires, k)
		}
	}

	k := memoryKey(client, day)
	s.counts[k]++
	s.expires[k] = expires
	return s.counts[k], nil
}

func (s *MemoryStore) Count(_ context.Context, client, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[memoryKey(client, day)], nil
}

func (s *MemoryStore) Close() error { return nil }
