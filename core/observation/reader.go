// Package observation defines the read-only boundary to the footfall
// observation source and an in-memory implementation backing the feed and
// tests.
package observation

import (
	"context"
	"errors"
	"time"

	"github.com/crowdsense/crowdcast/core/model"
)

// ErrNoObservation is returned by Latest when a zone has no readings yet.
var ErrNoObservation = errors.New("no observation for zone")

// HourRange is an inclusive range of hours of day. Callers may pass values
// outside [0,23]; implementations clamp.
type HourRange struct {
	Start int
	End   int
}

// Clamp returns the range limited to [0,23].
func (r HourRange) Clamp() HourRange {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > 23 {
		r.End = 23
	}
	return r
}

// Contains reports whether the hour falls inside the clamped range.
func (r HourRange) Contains(hour int) bool {
	c := r.Clamp()
	return hour >= c.Start && hour <= c.End
}

// Reader is the engine's view of the observation source.
type Reader interface {
	// Query returns readings for the zone taken on the given weekday within
	// the hour range during the last daysBack days. A zone with no matching
	// readings yields an empty slice, not an error.
	Query(ctx context.Context, zoneID string, day time.Weekday, hours HourRange, daysBack int) ([]model.Observation, error)

	// Latest returns the most recent reading for the zone, or
	// ErrNoObservation.
	Latest(ctx context.Context, zoneID string) (model.Observation, error)
}
