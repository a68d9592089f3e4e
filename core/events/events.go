// Package events defines the forecast related events emitted on the event bus.
//
// Available event types:
//   - ForecastEvent: a zone forecast finished generating
//   - CacheEvent: cache hit/miss/write/prune activity
//   - ObservationEvent: a footfall reading arrived on the feed
package events

import (
	"time"

	"github.com/crowdsense/crowdcast/core/model"
)

// ForecastEvent is published when a zone's forecast has been generated.
type ForecastEvent struct {
	ZoneID    string
	Source    model.DataSource
	Points    int
	FromCache bool
	Duration  time.Duration
	Err       error
}

// CacheAction labels cache activity.
type CacheAction string

const (
	CacheHit        CacheAction = "hit"
	CacheMiss       CacheAction = "miss"
	CacheWrite      CacheAction = "write"
	CachePrune      CacheAction = "prune"
	CacheInvalidate CacheAction = "invalidate"
)

// CacheEvent is published for cache activity.
type CacheEvent struct {
	ZoneID  string
	Action  CacheAction
	Entries int
}

// ObservationEvent is published when a new footfall reading is stored.
type ObservationEvent struct {
	Observation model.Observation
}
