// Package app wires configuration into a running forecast service.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	apiforecast "github.com/crowdsense/crowdcast/api/forecast"
	"github.com/crowdsense/crowdcast/config"
	"github.com/crowdsense/crowdcast/core/events"
	"github.com/crowdsense/crowdcast/core/forecast"
	"github.com/crowdsense/crowdcast/core/forecastcache"
	coremetrics "github.com/crowdsense/crowdcast/core/metrics"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/observation"
	"github.com/crowdsense/crowdcast/core/sampling"
	"github.com/crowdsense/crowdcast/infra/feed"
	infracache "github.com/crowdsense/crowdcast/infra/forecastcache"
	"github.com/crowdsense/crowdcast/infra/logger"
	"github.com/crowdsense/crowdcast/infra/metrics"
	"github.com/crowdsense/crowdcast/internal/eventbus"
)

// Service orchestrates the observation feed, forecast engine and HTTP surface.
type Service struct {
	Engine *forecast.Generator
	Cache  *forecastcache.Cache

	cfg    *config.Config
	zones  []model.Zone
	store  *observation.MemoryStore
	feed   *feed.Feed
	bus    *eventbus.Bus
	sink   coremetrics.Sink
	log    logger.Logger
	closer func() error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	setLogLevel(cfg.Logging.Level)

	store := observation.NewMemoryStore(cfg.Observations.Retention())

	var cacheStore forecastcache.Store
	var closer func() error
	if cfg.Cache.Backend == "sqlite" {
		sqlStore, err := infracache.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("cache store: %w", err)
		}
		cacheStore = sqlStore
		closer = sqlStore.Close
	} else {
		cacheStore = forecastcache.NewMemoryStore()
	}
	cache := forecastcache.New(cacheStore, store, logger.New("cache"))

	seed := cfg.Simulator.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sampler := sampling.New(store, seed, logger.New("sampler"))

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	var sink coremetrics.Sink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	engine := forecast.NewGenerator(sampler, cache, bus, logg)

	svc := &Service{
		Engine: engine,
		Cache:  cache,
		cfg:    cfg,
		zones:  cfg.ZoneList(),
		store:  store,
		bus:    bus,
		sink:   sink,
		log:    logg,
		closer: closer,
	}

	if cfg.Feed.Enabled {
		f, err := feed.New(cfg.Feed, store, bus, logger.New("feed"))
		if err != nil {
			return nil, fmt.Errorf("observation feed: %w", err)
		}
		svc.feed = f
	}
	return svc, nil
}

// Options returns the service-level forecast options from the configuration.
func (s *Service) Options() forecast.Options {
	return forecast.Options{
		Interval:      s.cfg.Forecast.Interval(),
		Window:        s.cfg.Forecast.Window(),
		UseCache:      !s.cfg.Forecast.DisableCache,
		MinConfidence: s.cfg.Forecast.MinConfidence,
	}
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.sink != nil {
		go s.consumeEvents(ctx)
	}
	go s.pruneLoop(ctx)
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", s.cfg.Metrics.PrometheusPort)
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	apiforecast.NewHandler(s.Engine, s.Cache, s.store, s.zones, s.Options()).Register(mux)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", s.cfg.API.Port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api shutdown: %v", err)
		}
	}()
	s.log.Infof("serving %d zones on :%d", len(s.zones), s.cfg.API.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// consumeEvents forwards bus events to the metrics sink.
func (s *Service) consumeEvents(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			s.record(e)
		}
	}
}

func (s *Service) record(e eventbus.Event) {
	now := time.Now()
	switch ev := e.(type) {
	case events.ForecastEvent:
		err := s.sink.RecordForecast(coremetrics.ForecastRecord{
			ZoneID:    ev.ZoneID,
			Source:    ev.Source,
			Points:    ev.Points,
			FromCache: ev.FromCache,
			Duration:  ev.Duration,
			Failed:    ev.Err != nil,
			Time:      now,
		})
		if err != nil {
			s.log.Warnf("record forecast: %v", err)
		}
	case events.CacheEvent:
		if rec, ok := s.sink.(coremetrics.CacheRecorder); ok {
			if err := rec.RecordCache(coremetrics.CacheRecord{
				ZoneID: ev.ZoneID, Action: string(ev.Action), Entries: ev.Entries, Time: now,
			}); err != nil {
				s.log.Warnf("record cache: %v", err)
			}
		}
	case events.ObservationEvent:
		if rec, ok := s.sink.(coremetrics.ObservationRecorder); ok {
			if err := rec.RecordObservation(coremetrics.ObservationRecord{
				ZoneID:   ev.Observation.ZoneID,
				Footfall: ev.Observation.Footfall,
				Capacity: ev.Observation.Capacity,
				Time:     now,
			}); err != nil {
				s.log.Warnf("record observation: %v", err)
			}
		}
	}
}

// pruneLoop sweeps expired cache entries on the configured interval.
func (s *Service) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Cache.PruneInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Cache.CleanupExpired(ctx)
			if err != nil {
				s.log.Warnf("cache prune: %v", err)
				continue
			}
			if deleted > 0 {
				s.bus.Publish(events.CacheEvent{Action: events.CachePrune, Entries: int(deleted)})
				s.log.Debugf("pruned %d expired cache entries", deleted)
			}
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.feed != nil {
		s.feed.Close()
	}
	s.bus.Close()
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
