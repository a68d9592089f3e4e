package main

import (
	"math"
	"math/rand"
	"time"
)

var zoneRng = rand.New(rand.NewSource(time.Now().UnixNano()))

// SimZone describes one synthetic zone with its traffic band.
type SimZone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Capacity    int    `json:"capacity"`
	MinFootfall int    `json:"min_footfall"`
	MaxFootfall int    `json:"max_footfall"`
}

// reading is the wire format the service feed expects.
type reading struct {
	ZoneID    string    `json:"zone_id"`
	ZoneName  string    `json:"zone_name"`
	Footfall  int       `json:"footfall"`
	Capacity  int       `json:"capacity"`
	Timestamp time.Time `json:"timestamp"`
}

func defaultZones() []SimZone {
	return []SimZone{
		{ID: "gate", Name: "Main Gate", Capacity: 600, MinFootfall: 50, MaxFootfall: 600},
		{ID: "hall", Name: "Central Hall", Capacity: 1000, MinFootfall: 100, MaxFootfall: 800},
		{ID: "exit", Name: "East Exit", Capacity: 400, MinFootfall: 30, MaxFootfall: 400},
	}
}

// Reading produces one synthetic reading for the zone. The count follows a
// rush-hour day curve inside the zone's band with random jitter.
func (z SimZone) Reading(now time.Time) reading {
	span := float64(z.MaxFootfall - z.MinFootfall)
	base := float64(z.MinFootfall) + span*dayCurve(now.Hour())
	jitter := 0.85 + 0.3*zoneRng.Float64()
	count := int(math.Round(base * jitter))
	if count < 0 {
		count = 0
	}
	if count > z.Capacity {
		count = z.Capacity
	}
	return reading{
		ZoneID:    z.ID,
		ZoneName:  z.Name,
		Footfall:  count,
		Capacity:  z.Capacity,
		Timestamp: now,
	}
}

// dayCurve maps an hour to a load factor in [0,1] with morning and evening
// peaks.
func dayCurve(hour int) float64 {
	switch {
	case hour >= 7 && hour <= 9:
		return 0.9
	case hour >= 17 && hour <= 19:
		return 1
	case hour >= 10 && hour <= 16:
		return 0.6
	case hour >= 20 && hour <= 22:
		return 0.3
	default:
		return 0.05
	}
}
