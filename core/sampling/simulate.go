package sampling

import (
	"math"
	"time"

	"github.com/crowdsense/crowdcast/core/model"
)

// simulatedDays is the number of synthetic past days generated per request.
const simulatedDays = 7

// diurnalShape maps an hour of day to a fraction of zone capacity. The curve
// peaks in the morning and evening, mirroring the site's visiting pattern.
func diurnalShape(hour int) float64 {
	switch {
	case hour >= 6 && hour <= 9:
		return 0.55
	case hour >= 10 && hour <= 15:
		return 0.35
	case hour >= 16 && hour <= 20:
		return 0.60
	case hour >= 21 || hour <= 4:
		return 0.05
	default:
		return 0.15
	}
}

// SimulatedData synthesizes plausible observations around the target time:
// one reading per hour offset within ±spreadHours for each of the last
// simulatedDays days. Values follow the diurnal shape with bounded noise and
// never exceed capacity. Output depends only on the sampler's seeded rng.
func (s *Sampler) SimulatedData(zoneID, zoneName string, capacity int, target time.Time, spreadHours int) []model.Observation {
	if spreadHours < 0 {
		spreadHours = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Observation
	for day := 1; day <= simulatedDays; day++ {
		for off := -spreadHours; off <= spreadHours; off++ {
			ts := target.AddDate(0, 0, -day).Add(time.Duration(off) * time.Hour)
			base := float64(capacity) * diurnalShape(ts.Hour())
			// ±30% noise around the shape
			noise := 0.7 + 0.6*s.rng.Float64()
			val := math.Round(base * noise)
			if val < 0 {
				val = 0
			}
			if val > float64(capacity) {
				val = float64(capacity)
			}
			out = append(out, model.Observation{
				ZoneID:    zoneID,
				ZoneName:  zoneName,
				Timestamp: ts,
				Footfall:  int(val),
				Capacity:  capacity,
			})
		}
	}
	return out
}
