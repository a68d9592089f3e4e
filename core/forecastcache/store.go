// Package forecastcache caches generated forecast points keyed by zone and
// predicted time. Caching is a performance layer only: every failure path
// degrades to recomputation, never to an error for the caller.
package forecastcache

import (
	"context"
	"time"

	"github.com/crowdsense/crowdcast/core/model"
)

// TTL is how long a cached point stays servable.
const TTL = 5 * time.Minute

// CoverageThreshold is the fraction of expected points a window must have
// cached before the cache serves it. Below this the read is a full miss;
// partial windows are never served.
const CoverageThreshold = 0.8

// Entry is one cached prediction. At most one active entry exists per
// (ZoneID, PredictedTime); duplicate inserts are skipped by the store.
type Entry struct {
	ID             string           `json:"id"`
	ZoneID         string           `json:"zone_id"`
	PredictedTime  time.Time        `json:"predicted_time"`
	PredictedValue int              `json:"predicted_value"`
	Confidence     float64          `json:"confidence"` // fraction 0-1
	Source         model.DataSource `json:"data_source"`
	GeneratedAt    time.Time        `json:"generated_at"`
	ExpiresAt      time.Time        `json:"expires_at"`
}

// Store is the persistence boundary of the cache. Implementations resolve
// concurrent duplicate writes themselves (insert-or-ignore on the zone/time
// key); the engine holds no locks.
type Store interface {
	// FindMany returns entries for the zone with PredictedTime in [from, to)
	// that have not expired as of asOf, ordered by PredictedTime.
	FindMany(ctx context.Context, zoneID string, from, to, asOf time.Time) ([]Entry, error)

	// CreateMany inserts entries, skipping any whose (ZoneID, PredictedTime)
	// already exists. Returns the number actually inserted.
	CreateMany(ctx context.Context, entries []Entry) (int, error)

	// DeleteExpired removes entries past their ExpiresAt as of asOf.
	DeleteExpired(ctx context.Context, asOf time.Time) (int64, error)

	// DeleteZone removes all entries for the zone.
	DeleteZone(ctx context.Context, zoneID string) (int64, error)
}
