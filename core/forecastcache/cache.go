package forecastcache

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/crowdsense/crowdcast/core/logger"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/observation"
)

// Cache is the cache-aside layer in front of the forecast generator. Reads
// below the coverage threshold miss entirely; hits are re-hydrated with the
// zone's name and capacity from the freshest observation rather than
// duplicating them into cache rows.
type Cache struct {
	store  Store
	reader observation.Reader
	log    logger.Logger
	now    func() time.Time
}

// New creates a Cache over the given store.
func New(store Store, reader observation.Reader, log logger.Logger) *Cache {
	return &Cache{store: store, reader: reader, log: log, now: time.Now}
}

// CachedForecast returns the cached points covering [start, start+window) at
// the given interval, or nil when coverage is below the threshold or any
// cache-side failure occurs.
func (c *Cache) CachedForecast(ctx context.Context, zoneID string, start time.Time, window time.Duration, interval time.Duration) []model.ForecastPoint {
	if interval <= 0 || window <= 0 {
		return nil
	}
	expected := int(window / interval)
	if expected == 0 {
		return nil
	}
	now := c.now()
	entries, err := c.store.FindMany(ctx, zoneID, start, start.Add(window), now)
	if err != nil {
		c.log.Warnf("cache read failed for zone %s: %v", zoneID, err)
		return nil
	}
	if float64(len(entries)) < CoverageThreshold*float64(expected) {
		return nil
	}
	latest, err := c.reader.Latest(ctx, zoneID)
	if err != nil {
		c.log.Warnf("cache hydration failed for zone %s: %v", zoneID, err)
		return nil
	}
	points := make([]model.ForecastPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, model.ForecastPoint{
			ZoneID:            e.ZoneID,
			ZoneName:          latest.ZoneName,
			Timestamp:         e.PredictedTime,
			PredictedFootfall: e.PredictedValue,
			Confidence:        int(math.Round(e.Confidence * 100)),
			Capacity:          latest.Capacity,
			Source:            e.Source,
		})
	}
	return points
}

// CachePredictions writes freshly generated points back. Duplicate
// (zone, time) keys lose the race silently; overlapping windows from
// concurrent requests rely on the store for resolution. Errors are logged and
// swallowed.
func (c *Cache) CachePredictions(ctx context.Context, points []model.ForecastPoint) int {
	if len(points) == 0 {
		return 0
	}
	now := c.now()
	entries := make([]Entry, 0, len(points))
	for _, p := range points {
		entries = append(entries, Entry{
			ID:             uuid.NewString(),
			ZoneID:         p.ZoneID,
			PredictedTime:  p.Timestamp,
			PredictedValue: p.PredictedFootfall,
			Confidence:     float64(p.Confidence) / 100,
			Source:         p.Source,
			GeneratedAt:    now,
			ExpiresAt:      now.Add(TTL),
		})
	}
	inserted, err := c.store.CreateMany(ctx, entries)
	if err != nil {
		c.log.Warnf("cache write failed for zone %s: %v", points[0].ZoneID, err)
		return 0
	}
	return inserted
}

// CleanupExpired removes every entry past its expiry. Idempotent and safe to
// run concurrently with reads and writes.
func (c *Cache) CleanupExpired(ctx context.Context) (int64, error) {
	return c.store.DeleteExpired(ctx, c.now())
}

// Invalidate drops all cached points for a zone, e.g. after a backfill
// correction.
func (c *Cache) Invalidate(ctx context.Context, zoneID string) (int64, error) {
	return c.store.DeleteZone(ctx, zoneID)
}
