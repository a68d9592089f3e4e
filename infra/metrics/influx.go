package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/crowdsense/crowdcast/core/metrics"
	"github.com/crowdsense/crowdcast/infra/logger"
)

// InfluxSink writes forecast events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordForecast writes the forecast result as a line protocol event.
func (s *InfluxSink) RecordForecast(rec coremetrics.ForecastRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("forecast_generated").
		AddTag("zone_id", rec.ZoneID).
		AddTag("data_source", string(rec.Source)).
		AddTag("from_cache", strconv.FormatBool(rec.FromCache)).
		AddTag("failed", strconv.FormatBool(rec.Failed)).
		AddTag("component", "forecast_engine").
		AddField("points", rec.Points).
		AddField("duration_ms", rec.Duration.Seconds()*1000).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCache writes cache activity.
func (s *InfluxSink) RecordCache(rec coremetrics.CacheRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("forecast_cache_action").
		AddTag("zone_id", rec.ZoneID).
		AddTag("action", rec.Action).
		AddTag("component", "forecast_cache").
		AddField("entries", rec.Entries).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordObservation writes an ingested reading snapshot.
func (s *InfluxSink) RecordObservation(rec coremetrics.ObservationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("footfall_observation").
		AddTag("zone_id", rec.ZoneID).
		AddTag("component", "feed").
		AddField("footfall", rec.Footfall).
		AddField("capacity", rec.Capacity).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
