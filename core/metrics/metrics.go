package metrics

import (
	"time"

	"github.com/crowdsense/crowdcast/core/model"
)

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    int    `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// ForecastRecord represents one completed zone forecast to be recorded.
type ForecastRecord struct {
	ZoneID    string
	Source    model.DataSource
	Points    int
	FromCache bool
	Duration  time.Duration
	Failed    bool
	Time      time.Time
}

// Sink records forecast results for observability purposes.
type Sink interface {
	RecordForecast(rec ForecastRecord) error
}

// CacheRecord captures cache activity.
type CacheRecord struct {
	ZoneID  string
	Action  string
	Entries int
	Time    time.Time
}

// CacheRecorder records cache activity.
type CacheRecorder interface {
	RecordCache(rec CacheRecord) error
}

// ObservationRecord is a snapshot of an ingested footfall reading.
type ObservationRecord struct {
	ZoneID   string
	Footfall int
	Capacity int
	Time     time.Time
}

// ObservationRecorder records ingested readings.
type ObservationRecorder interface {
	RecordObservation(rec ObservationRecord) error
}

// NopSink implements Sink and the optional recorders with no-op methods.
type NopSink struct{}

func (NopSink) RecordForecast(ForecastRecord) error       { return nil }
func (NopSink) RecordCache(CacheRecord) error             { return nil }
func (NopSink) RecordObservation(ObservationRecord) error { return nil }
