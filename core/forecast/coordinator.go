package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/crowdsense/crowdcast/core/model"
)

// MultiZone runs every zone's forecast concurrently and collects the results
// into a zoneID-keyed map. A zone that fails or times out contributes an
// empty list; siblings are never cancelled or blocked by it, and the call
// itself does not fail.
func (g *Generator) MultiZone(ctx context.Context, zones []model.Zone, start time.Time, opts Options) map[string][]model.ForecastPoint {
	type zoneResult struct {
		zoneID string
		points []model.ForecastPoint
		err    error
	}

	results := make([]zoneResult, len(zones))
	var wg sync.WaitGroup
	for i, zone := range zones {
		wg.Add(1)
		go func(i int, zone model.Zone) {
			defer wg.Done()
			fc, err := g.Forecast(ctx, zone, start, opts)
			results[i] = zoneResult{zoneID: zone.ID, points: fc.Points, err: err}
		}(i, zone)
	}
	wg.Wait()

	out := make(map[string][]model.ForecastPoint, len(zones))
	for _, r := range results {
		if r.err != nil {
			g.log.Errorf("forecast failed for zone %s: %v", r.zoneID, r.err)
			out[r.zoneID] = []model.ForecastPoint{}
			continue
		}
		out[r.zoneID] = r.points
	}
	return out
}
