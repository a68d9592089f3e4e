// Package sampling turns irregular historical observations into the sample
// sets the forecast engine scores: matching-time-window queries, synthetic
// samples for thin history, and blends of the two.
package sampling

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/crowdsense/crowdcast/core/logger"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/observation"
)

// DefaultLookbackDays is the historical window queried per forecast interval.
const DefaultLookbackDays = 30

// Sampler queries and synthesizes observation samples.
type Sampler struct {
	reader observation.Reader
	log    logger.Logger
	now    func() time.Time

	// rng is guarded: zones are sampled concurrently by the coordinator.
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Sampler. The seed fixes the synthetic generator so simulated
// forecasts are reproducible.
func New(reader observation.Reader, seed int64, log logger.Logger) *Sampler {
	return &Sampler{
		reader: reader,
		log:    log,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// HistoricalData returns readings for the zone matching the weekday and hour
// range over the last daysBack days. No matching data is an empty slice; only
// a store-level failure is an error.
func (s *Sampler) HistoricalData(ctx context.Context, zoneID string, day time.Weekday, hours observation.HourRange, daysBack int) ([]model.Observation, error) {
	obs, err := s.reader.Query(ctx, zoneID, day, hours.Clamp(), daysBack)
	if err != nil {
		return nil, fmt.Errorf("query history for zone %s: %w", zoneID, err)
	}
	return obs, nil
}

// Blend merges historical and simulated samples, weighting the simulated share
// by how thin the real history is. With historicalDays >= DefaultLookbackDays
// no simulated samples are taken; with none, all of them are.
func (s *Sampler) Blend(historical, simulated []model.Observation, historicalDays int) []model.Observation {
	if historicalDays < 0 {
		historicalDays = 0
	}
	if historicalDays > DefaultLookbackDays {
		historicalDays = DefaultLookbackDays
	}
	simShare := 1 - float64(historicalDays)/float64(DefaultLookbackDays)
	take := int(math.Round(float64(len(simulated)) * simShare))
	merged := make([]model.Observation, 0, len(historical)+take)
	merged = append(merged, historical...)
	merged = append(merged, simulated[:take]...)
	return merged
}

// HistoricalDaySpan counts the distinct days covered by the samples, the
// blending weight for thin history.
func HistoricalDaySpan(samples []model.Observation) int {
	days := map[string]struct{}{}
	for _, o := range samples {
		days[o.Timestamp.Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}
