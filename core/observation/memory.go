package observation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crowdsense/crowdcast/core/model"
)

// MemoryStore keeps a sliding window of observations in memory. It backs the
// live feed and is the substitutable store used across tests.
type MemoryStore struct {
	mu        sync.RWMutex
	data      map[string][]model.Observation
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore returns an empty store retaining readings for the given
// duration. A non-positive retention keeps everything.
func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		data:      map[string][]model.Observation{},
		retention: retention,
		now:       time.Now,
	}
}

// Add records a reading and drops entries older than the retention window.
func (s *MemoryStore) Add(obs model.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.data[obs.ZoneID], obs)
	if s.retention > 0 {
		cutoff := s.now().Add(-s.retention)
		kept := list[:0]
		for _, o := range list {
			if !o.Timestamp.Before(cutoff) {
				kept = append(kept, o)
			}
		}
		list = kept
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	s.data[obs.ZoneID] = list
}

// Query implements Reader.
func (s *MemoryStore) Query(_ context.Context, zoneID string, day time.Weekday, hours HourRange, daysBack int) ([]model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().AddDate(0, 0, -daysBack)
	hours = hours.Clamp()
	var res []model.Observation
	for _, o := range s.data[zoneID] {
		if o.Timestamp.Before(cutoff) {
			continue
		}
		if o.Timestamp.Weekday() != day {
			continue
		}
		if !hours.Contains(o.Timestamp.Hour()) {
			continue
		}
		res = append(res, o)
	}
	return res, nil
}

// Latest implements Reader.
func (s *MemoryStore) Latest(_ context.Context, zoneID string) (model.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.data[zoneID]
	if len(list) == 0 {
		return model.Observation{}, ErrNoObservation
	}
	return list[len(list)-1], nil
}

var _ Reader = (*MemoryStore)(nil)
