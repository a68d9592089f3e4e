package model

import "time"

// DataSource tags which sample mix produced a forecast point.
type DataSource string

const (
	SourceHistorical DataSource = "historical"
	SourceSimulated  DataSource = "simulated"
	SourceHybrid     DataSource = "hybrid"
)

// ForecastPoint is one interval-spaced prediction for a zone. Points are
// immutable once returned: predicted footfall is clamped to [0, capacity] and
// confidence is an integer in [0, 100].
type ForecastPoint struct {
	ZoneID            string     `json:"zone_id"`
	ZoneName          string     `json:"zone_name"`
	Timestamp         time.Time  `json:"timestamp"`
	PredictedFootfall int        `json:"predicted_footfall"`
	Confidence        int        `json:"confidence"`
	Capacity          int        `json:"capacity"`
	Source            DataSource `json:"data_source"`
}

// ForecastMetadata describes how and when a forecast was produced.
type ForecastMetadata struct {
	ForecastID  string     `json:"forecast_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	WindowStart time.Time  `json:"window_start"`
	WindowEnd   time.Time  `json:"window_end"`
	Source      DataSource `json:"data_source"`
}

// Forecast bundles the points of one zone with their metadata.
type Forecast struct {
	Metadata ForecastMetadata `json:"metadata"`
	Points   []ForecastPoint  `json:"points"`
}
