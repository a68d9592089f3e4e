package forecast

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/crowdsense/crowdcast/core/confidence"
	"github.com/crowdsense/crowdcast/core/events"
	"github.com/crowdsense/crowdcast/core/forecastcache"
	"github.com/crowdsense/crowdcast/core/logger"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/observation"
	"github.com/crowdsense/crowdcast/core/sampling"
	"github.com/crowdsense/crowdcast/internal/eventbus"
)

const (
	// MinHistoricalDataPoints is the sample count above which a point is
	// predicted from real history alone.
	MinHistoricalDataPoints = 10

	// DefaultInterval spaces forecast points.
	DefaultInterval = 15 * time.Minute
	// DefaultWindow is the forward span forecasts cover.
	DefaultWindow = 2 * time.Hour

	// hybridConfidenceFactor discounts scores built on a historical/simulated
	// blend.
	hybridConfidenceFactor = 0.8
	// simulatedConfidenceCap bounds scores with no real history behind them.
	simulatedConfidenceCap = 60

	// decayFactorDays controls how fast older samples lose weight.
	decayFactorDays = 7.0
	// hourSpread widens the per-point history query to the neighbouring hours.
	hourSpread = 1
)

// Options tune one forecast request.
type Options struct {
	Interval      time.Duration
	Window        time.Duration
	UseCache      bool
	MinConfidence int
}

// DefaultOptions returns the standard 2h/15m cached request.
func DefaultOptions() Options {
	return Options{Interval: DefaultInterval, Window: DefaultWindow, UseCache: true}
}

func (o Options) normalized() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	return o
}

// Generator produces interval-spaced forecast points for zones.
type Generator struct {
	sampler *sampling.Sampler
	cache   *forecastcache.Cache
	bus     eventbus.EventBus
	log     logger.Logger
	now     func() time.Time
}

// NewGenerator creates a Generator. The bus may be nil when no observers are
// wired.
func NewGenerator(sampler *sampling.Sampler, cache *forecastcache.Cache, bus eventbus.EventBus, log logger.Logger) *Generator {
	return &Generator{sampler: sampler, cache: cache, bus: bus, log: log, now: time.Now}
}

// Forecast generates the ordered points spanning [start, start+window) for
// one zone. Missing or thin history never fails a call; only a store-level
// read error does, wrapped with the zone it hit.
func (g *Generator) Forecast(ctx context.Context, zone model.Zone, start time.Time, opts Options) (model.Forecast, error) {
	began := g.now()
	opts = opts.normalized()
	if start.IsZero() {
		start = began
	}
	start = start.Truncate(time.Minute)

	var cached map[int64]model.ForecastPoint
	if opts.UseCache {
		hit := g.cache.CachedForecast(ctx, zone.ID, start, opts.Window, opts.Interval)
		if hit != nil {
			g.publish(events.CacheEvent{ZoneID: zone.ID, Action: events.CacheHit, Entries: len(hit)})
			cached = make(map[int64]model.ForecastPoint, len(hit))
			for _, p := range hit {
				cached[p.Timestamp.UnixNano()] = p
			}
		} else {
			g.publish(events.CacheEvent{ZoneID: zone.ID, Action: events.CacheMiss})
		}
	}

	steps := int(opts.Window / opts.Interval)
	points := make([]model.ForecastPoint, 0, steps)
	var fresh []model.ForecastPoint
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return model.Forecast{}, err
		}
		ts := start.Add(time.Duration(i) * opts.Interval)
		if p, ok := cached[ts.UnixNano()]; ok {
			points = append(points, p)
			continue
		}
		p, err := g.predictPoint(ctx, zone, ts)
		if err != nil {
			g.emitResult(zone.ID, began, nil, false, err)
			return model.Forecast{}, err
		}
		points = append(points, p)
		fresh = append(fresh, p)
	}

	if opts.UseCache && len(fresh) > 0 {
		// lower-confidence points are cached too; MinConfidence only filters
		// what this call returns
		written := g.cache.CachePredictions(ctx, fresh)
		g.publish(events.CacheEvent{ZoneID: zone.ID, Action: events.CacheWrite, Entries: written})
	}

	if opts.MinConfidence > 0 {
		kept := points[:0]
		for _, p := range points {
			if p.Confidence >= opts.MinConfidence {
				kept = append(kept, p)
			}
		}
		points = kept
	}

	fromCache := len(fresh) == 0 && cached != nil
	g.emitResult(zone.ID, began, points, fromCache, nil)
	return model.Forecast{
		Metadata: model.ForecastMetadata{
			ForecastID:  uuid.NewString(),
			GeneratedAt: began,
			WindowStart: start,
			WindowEnd:   start.Add(opts.Window),
			Source:      dominantSource(points),
		},
		Points: points,
	}, nil
}

// predictPoint applies the three-tier data-source strategy for one interval.
func (g *Generator) predictPoint(ctx context.Context, zone model.Zone, ts time.Time) (model.ForecastPoint, error) {
	hours := observation.HourRange{Start: ts.Hour() - hourSpread, End: ts.Hour() + hourSpread}
	hist, err := g.sampler.HistoricalData(ctx, zone.ID, ts.Weekday(), hours, sampling.DefaultLookbackDays)
	if err != nil {
		return model.ForecastPoint{}, err
	}

	var samples []model.Observation
	var source model.DataSource
	var score int
	switch {
	case len(hist) >= MinHistoricalDataPoints:
		samples = hist
		source = model.SourceHistorical
		score = confidence.Estimate(samples)
	case len(hist) > 0:
		sim := g.sampler.SimulatedData(zone.ID, zone.Name, zone.Capacity, ts, hourSpread)
		samples = g.sampler.Blend(hist, sim, sampling.HistoricalDaySpan(hist))
		source = model.SourceHybrid
		score = int(math.Round(float64(confidence.Estimate(samples)) * hybridConfidenceFactor))
	default:
		samples = g.sampler.SimulatedData(zone.ID, zone.Name, zone.Capacity, ts, hourSpread)
		source = model.SourceSimulated
		score = confidence.Estimate(samples)
		if score > simulatedConfidenceCap {
			score = simulatedConfidenceCap
		}
	}

	avg := sampling.WeightedAverage(samples, decayFactorDays, g.now())
	predicted := int(math.Round(math.Min(math.Max(avg, 0), float64(zone.Capacity))))
	return model.ForecastPoint{
		ZoneID:            zone.ID,
		ZoneName:          zone.Name,
		Timestamp:         ts,
		PredictedFootfall: predicted,
		Confidence:        score,
		Capacity:          zone.Capacity,
		Source:            source,
	}, nil
}

func (g *Generator) publish(e eventbus.Event) {
	if g.bus != nil {
		g.bus.Publish(e)
	}
}

func (g *Generator) emitResult(zoneID string, began time.Time, points []model.ForecastPoint, fromCache bool, err error) {
	g.publish(events.ForecastEvent{
		ZoneID:    zoneID,
		Source:    dominantSource(points),
		Points:    len(points),
		FromCache: fromCache,
		Duration:  g.now().Sub(began),
		Err:       err,
	})
}

// dominantSource reduces a point list to one tag: pure lists keep their tag,
// mixed lists are hybrid.
func dominantSource(points []model.ForecastPoint) model.DataSource {
	if len(points) == 0 {
		return model.SourceSimulated
	}
	first := points[0].Source
	for _, p := range points[1:] {
		if p.Source != first {
			return model.SourceHybrid
		}
	}
	return first
}
