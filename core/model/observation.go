package model

import "time"

// Observation is one recorded footfall reading for a zone. Observations are
// produced by the ingestion side and are immutable from the engine's point of
// view.
type Observation struct {
	ZoneID    string    `json:"zone_id"`
	ZoneName  string    `json:"zone_name"`
	Timestamp time.Time `json:"timestamp"`
	Footfall  int       `json:"footfall"`
	Capacity  int       `json:"capacity"`
}

// Zone describes a bounded physical area with its own capacity.
type Zone struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// OccupancyStatus classifies a footfall count for display surfaces.
type OccupancyStatus string

const (
	OccupancyLow     OccupancyStatus = "low"
	OccupancyMedium  OccupancyStatus = "medium"
	OccupancyHigh    OccupancyStatus = "high"
	OccupancyUnknown OccupancyStatus = "unknown"
)

// Occupancy thresholds, in persons.
const (
	occupancyLowMax    = 200
	occupancyMediumMax = 400
)

// StatusForCount maps a footfall count to an occupancy status. Negative counts
// are reported as unknown.
func StatusForCount(count int) OccupancyStatus {
	switch {
	case count < 0:
		return OccupancyUnknown
	case count < occupancyLowMax:
		return OccupancyLow
	case count <= occupancyMediumMax:
		return OccupancyMedium
	default:
		return OccupancyHigh
	}
}
