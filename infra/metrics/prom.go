package metrics

import (
	"strconv"

	coremetrics "github.com/crowdsense/crowdcast/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records forecast and cache events in Prometheus metrics.
type PromSink struct {
	forecasts    *prometheus.CounterVec
	points       *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	cacheActions *prometheus.CounterVec
	observations *prometheus.CounterVec
}

// NewPromSink registers forecast metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	forecasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_generations_total",
		Help: "Total number of zone forecasts generated",
	}, []string{"zone_id", "data_source", "from_cache", "failed"})
	points := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_points_total",
		Help: "Total forecast points produced by data source",
	}, []string{"zone_id", "data_source"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_generation_seconds",
		Help:    "Time to generate one zone forecast",
		Buckets: prometheus.DefBuckets,
	}, []string{"zone_id", "from_cache"})
	cacheActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_cache_actions_total",
		Help: "Cache activity by action",
	}, []string{"zone_id", "action"})
	observations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "footfall_observations_total",
		Help: "Footfall readings ingested per zone",
	}, []string{"zone_id"})

	if err := registerCounterVec(reg, &forecasts); err != nil {
		return nil, err
	}
	if err := registerCounterVec(reg, &points); err != nil {
		return nil, err
	}
	if err := reg.Register(latency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			latency = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := registerCounterVec(reg, &cacheActions); err != nil {
		return nil, err
	}
	if err := registerCounterVec(reg, &observations); err != nil {
		return nil, err
	}

	return &PromSink{
		forecasts:    forecasts,
		points:       points,
		latency:      latency,
		cacheActions: cacheActions,
		observations: observations,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, vec **prometheus.CounterVec) error {
	if err := reg.Register(*vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*vec = are.ExistingCollector.(*prometheus.CounterVec)
			return nil
		}
		return err
	}
	return nil
}

// RecordForecast increments the forecast counters and observes latency.
func (s *PromSink) RecordForecast(rec coremetrics.ForecastRecord) error {
	fromCache := strconv.FormatBool(rec.FromCache)
	s.forecasts.WithLabelValues(rec.ZoneID, string(rec.Source), fromCache, strconv.FormatBool(rec.Failed)).Inc()
	if !rec.Failed {
		s.points.WithLabelValues(rec.ZoneID, string(rec.Source)).Add(float64(rec.Points))
	}
	s.latency.WithLabelValues(rec.ZoneID, fromCache).Observe(rec.Duration.Seconds())
	return nil
}

// RecordCache increments the cache activity counter.
func (s *PromSink) RecordCache(rec coremetrics.CacheRecord) error {
	s.cacheActions.WithLabelValues(rec.ZoneID, rec.Action).Inc()
	return nil
}

// RecordObservation counts an ingested reading.
func (s *PromSink) RecordObservation(rec coremetrics.ObservationRecord) error {
	s.observations.WithLabelValues(rec.ZoneID).Inc()
	return nil
}
