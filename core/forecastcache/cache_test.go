package forecastcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/observation"
	"github.com/crowdsense/crowdcast/infra/logger"
)

func newTestCache(t *testing.T) (*Cache, *MemoryStore, *observation.MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	obs := observation.NewMemoryStore(0)
	c := New(store, obs, logger.NopLogger{})
	return c, store, obs
}

func points(zoneID string, start time.Time, n int, interval time.Duration) []model.ForecastPoint {
	var pts []model.ForecastPoint
	for i := 0; i < n; i++ {
		pts = append(pts, model.ForecastPoint{
			ZoneID:            zoneID,
			ZoneName:          "Gate",
			Timestamp:         start.Add(time.Duration(i) * interval),
			PredictedFootfall: 100 + i,
			Confidence:        75,
			Capacity:          600,
			Source:            model.SourceHistorical,
		})
	}
	return pts
}

func TestCache_RoundTrip(t *testing.T) {
	c, _, obs := newTestCache(t)
	ctx := context.Background()
	start := time.Now().Truncate(time.Minute)
	obs.Add(model.Observation{ZoneID: "gate", ZoneName: "Gate", Timestamp: time.Now(), Footfall: 200, Capacity: 600})

	if got := c.CachePredictions(ctx, points("gate", start, 8, 15*time.Minute)); got != 8 {
		t.Fatalf("expected 8 inserts, got %d", got)
	}
	pts := c.CachedForecast(ctx, "gate", start, 2*time.Hour, 15*time.Minute)
	if len(pts) != 8 {
		t.Fatalf("expected full hit, got %d points", len(pts))
	}
	for i := 1; i < len(pts); i++ {
		if !pts[i].Timestamp.After(pts[i-1].Timestamp) {
			t.Fatalf("points out of order at %d", i)
		}
	}
	if pts[0].ZoneName != "Gate" || pts[0].Capacity != 600 {
		t.Fatalf("hydration missing: %+v", pts[0])
	}
	if pts[0].Confidence != 75 {
		t.Fatalf("confidence round-trip: got %d", pts[0].Confidence)
	}
}

func TestCache_CoverageBelowThresholdIsFullMiss(t *testing.T) {
	c, _, obs := newTestCache(t)
	ctx := context.Background()
	start := time.Now().Truncate(time.Minute)
	obs.Add(model.Observation{ZoneID: "gate", ZoneName: "Gate", Timestamp: time.Now(), Footfall: 200, Capacity: 600})

	// 6 of 8 expected points is 75% coverage, under the 80% threshold
	c.CachePredictions(ctx, points("gate", start, 6, 15*time.Minute))
	if pts := c.CachedForecast(ctx, "gate", start, 2*time.Hour, 15*time.Minute); pts != nil {
		t.Fatalf("expected full miss, got %d points", len(pts))
	}
}

func TestCache_ExpiredEntriesNotServed(t *testing.T) {
	c, _, obs := newTestCache(t)
	ctx := context.Background()
	start := time.Now().Truncate(time.Minute)
	obs.Add(model.Observation{ZoneID: "gate", ZoneName: "Gate", Timestamp: time.Now(), Footfall: 200, Capacity: 600})

	c.CachePredictions(ctx, points("gate", start, 8, 15*time.Minute))
	// move the cache's clock past the TTL
	c.now = func() time.Time { return time.Now().Add(TTL + time.Second) }
	if pts := c.CachedForecast(ctx, "gate", start, 2*time.Hour, 15*time.Minute); pts != nil {
		t.Fatalf("expired entries served: %d", len(pts))
	}
}

func TestCache_DuplicateWritesSkipped(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()
	start := time.Now().Truncate(time.Minute)
	pts := points("gate", start, 4, 15*time.Minute)
	if got := c.CachePredictions(ctx, pts); got != 4 {
		t.Fatalf("first write: %d", got)
	}
	if got := c.CachePredictions(ctx, pts); got != 0 {
		t.Fatalf("duplicate write should insert nothing, got %d", got)
	}
}

func TestCache_Invalidate(t *testing.T) {
	c, _, obs := newTestCache(t)
	ctx := context.Background()
	start := time.Now().Truncate(time.Minute)
	obs.Add(model.Observation{ZoneID: "gate", ZoneName: "Gate", Timestamp: time.Now(), Footfall: 200, Capacity: 600})

	c.CachePredictions(ctx, points("gate", start, 8, 15*time.Minute))
	deleted, err := c.Invalidate(ctx, "gate")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if deleted != 8 {
		t.Fatalf("expected 8 deleted, got %d", deleted)
	}
	if pts := c.CachedForecast(ctx, "gate", start, 2*time.Hour, 15*time.Minute); pts != nil {
		t.Fatalf("cache should be empty after invalidation")
	}
}

func TestCache_CleanupIdempotent(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		deleted, err := c.CleanupExpired(ctx)
		if err != nil {
			t.Fatalf("cleanup %d: %v", i, err)
		}
		if deleted != 0 {
			t.Fatalf("clean cache should delete 0, got %d", deleted)
		}
	}
}

func TestCache_CleanupRemovesExpiredOnly(t *testing.T) {
	c, store, _ := newTestCache(t)
	ctx := context.Background()
	now := time.Now()
	_, _ = store.CreateMany(ctx, []Entry{
		{ID: "a", ZoneID: "gate", PredictedTime: now, ExpiresAt: now.Add(-time.Minute)},
		{ID: "b", ZoneID: "gate", PredictedTime: now.Add(15 * time.Minute), ExpiresAt: now.Add(TTL)},
	})
	deleted, err := c.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
}

type failingStore struct{}

func (failingStore) FindMany(context.Context, string, time.Time, time.Time, time.Time) ([]Entry, error) {
	return nil, errors.New("cache down")
}
func (failingStore) CreateMany(context.Context, []Entry) (int, error) {
	return 0, errors.New("cache down")
}
func (failingStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, errors.New("cache down")
}
func (failingStore) DeleteZone(context.Context, string) (int64, error) {
	return 0, errors.New("cache down")
}

func TestCache_StoreFailuresAreSwallowed(t *testing.T) {
	c := New(failingStore{}, observation.NewMemoryStore(0), logger.NopLogger{})
	ctx := context.Background()
	start := time.Now()
	if pts := c.CachedForecast(ctx, "gate", start, 2*time.Hour, 15*time.Minute); pts != nil {
		t.Fatalf("failing read must miss, got %d", len(pts))
	}
	if got := c.CachePredictions(ctx, points("gate", start, 4, 15*time.Minute)); got != 0 {
		t.Fatalf("failing write must report 0 inserts, got %d", got)
	}
}
