// Package forecast exposes the forecast engine over HTTP.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/crowdsense/crowdcast/core/forecast"
	"github.com/crowdsense/crowdcast/core/forecastcache"
	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/observation"
)

// Engine generates forecasts. Implemented by forecast.Generator.
type Engine interface {
	Forecast(ctx context.Context, zone model.Zone, start time.Time, opts forecast.Options) (model.Forecast, error)
	MultiZone(ctx context.Context, zones []model.Zone, start time.Time, opts forecast.Options) map[string][]model.ForecastPoint
}

// Handler serves the forecast endpoints for a fixed set of zones.
type Handler struct {
	engine Engine
	cache  *forecastcache.Cache
	reader observation.Reader
	zones  []model.Zone
	byID   map[string]model.Zone
	opts   forecast.Options
}

// NewHandler builds a Handler. opts carries the service-level defaults;
// requests can narrow them with query parameters.
func NewHandler(engine Engine, cache *forecastcache.Cache, reader observation.Reader, zones []model.Zone, opts forecast.Options) *Handler {
	byID := make(map[string]model.Zone, len(zones))
	for _, z := range zones {
		byID[z.ID] = z
	}
	return &Handler{engine: engine, cache: cache, reader: reader, zones: zones, byID: byID, opts: opts}
}

// Register mounts the endpoints on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/zones", h.handleZones)
	mux.HandleFunc("/api/forecast", h.handleForecast)
	mux.HandleFunc("/api/forecast/all", h.handleForecastAll)
	mux.HandleFunc("/api/cache/cleanup", h.handleCleanup)
	mux.HandleFunc("/api/cache/invalidate", h.handleInvalidate)
}

// zoneStatus is the /api/zones response row.
type zoneStatus struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Capacity  int                   `json:"capacity"`
	Footfall  int                   `json:"footfall"`
	Status    model.OccupancyStatus `json:"status"`
	UpdatedAt *time.Time            `json:"updated_at,omitempty"`
}

func (h *Handler) handleZones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	out := make([]zoneStatus, 0, len(h.zones))
	for _, z := range h.zones {
		row := zoneStatus{ID: z.ID, Name: z.Name, Capacity: z.Capacity}
		latest, err := h.reader.Latest(r.Context(), z.ID)
		switch {
		case err == nil:
			row.Footfall = latest.Footfall
			row.Status = model.StatusForCount(latest.Footfall)
			ts := latest.Timestamp
			row.UpdatedAt = &ts
		case errors.Is(err, observation.ErrNoObservation):
			row.Status = model.StatusForCount(0)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, row)
	}
	writeJSON(w, out)
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	zone, ok := h.byID[r.URL.Query().Get("zone_id")]
	if !ok {
		http.Error(w, "unknown zone_id", http.StatusNotFound)
		return
	}
	opts, err := h.requestOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	fc, err := h.engine.Forecast(r.Context(), zone, time.Time{}, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, fc)
}

func (h *Handler) handleForecastAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	opts, err := h.requestOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, h.engine.MultiZone(r.Context(), h.zones, time.Time{}, opts))
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	deleted, err := h.cache.CleanupExpired(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int64{"deleted": deleted})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	zoneID := r.URL.Query().Get("zone_id")
	if _, ok := h.byID[zoneID]; !ok {
		http.Error(w, "unknown zone_id", http.StatusNotFound)
		return
	}
	deleted, err := h.cache.Invalidate(r.Context(), zoneID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]int64{"deleted": deleted})
}

// requestOptions narrows the service defaults with query parameters.
func (h *Handler) requestOptions(r *http.Request) (forecast.Options, error) {
	opts := h.opts
	q := r.URL.Query()
	if v := q.Get("interval_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errors.New("invalid interval_minutes")
		}
		opts.Interval = time.Duration(n) * time.Minute
	}
	if v := q.Get("window_minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, errors.New("invalid window_minutes")
		}
		opts.Window = time.Duration(n) * time.Minute
	}
	if v := q.Get("min_confidence"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			return opts, errors.New("invalid min_confidence")
		}
		opts.MinConfidence = n
	}
	if q.Get("no_cache") == "1" || q.Get("no_cache") == "true" {
		opts.UseCache = false
	}
	return opts, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
