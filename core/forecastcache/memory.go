package forecastcache

import (
	"context"
	"sort"
	"sync"
	"time"
)

type entryKey struct {
	zoneID string
	at     int64
}

// MemoryStore is an in-memory Store for tests and single-node deployments.
type MemoryStore struct {
	mu   sync.Mutex
	data map[entryKey]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[entryKey]Entry{}}
}

func keyOf(e Entry) entryKey {
	return entryKey{zoneID: e.ZoneID, at: e.PredictedTime.UnixNano()}
}

// FindMany implements Store.
func (s *MemoryStore) FindMany(_ context.Context, zoneID string, from, to, asOf time.Time) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []Entry
	for _, e := range s.data {
		if e.ZoneID != zoneID {
			continue
		}
		if e.PredictedTime.Before(from) || !e.PredictedTime.Before(to) {
			continue
		}
		if !e.ExpiresAt.After(asOf) {
			continue
		}
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PredictedTime.Before(res[j].PredictedTime) })
	return res, nil
}

// CreateMany implements Store. Existing (zone, time) keys are left untouched.
func (s *MemoryStore) CreateMany(_ context.Context, entries []Entry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, e := range entries {
		k := keyOf(e)
		if _, ok := s.data[k]; ok {
			continue
		}
		s.data[k] = e
		inserted++
	}
	return inserted, nil
}

// DeleteExpired implements Store.
func (s *MemoryStore) DeleteExpired(_ context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for k, e := range s.data {
		if !e.ExpiresAt.After(asOf) {
			delete(s.data, k)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteZone implements Store.
func (s *MemoryStore) DeleteZone(_ context.Context, zoneID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for k, e := range s.data {
		if e.ZoneID == zoneID {
			delete(s.data, k)
			deleted++
		}
	}
	return deleted, nil
}

var _ Store = (*MemoryStore)(nil)
