package sampling

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/crowdsense/crowdcast/core/model"
)

// TrendDirection labels the movement of a sample series.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// trendStableThreshold is the normalized slope (persons per day over the mean)
// below which a series is considered stable.
const trendStableThreshold = 0.05

// Stats holds the dispersion measures of a sample set.
type Stats struct {
	Variance float64
	// CV is the coefficient of variation, stdev/mean. A zero-mean series has
	// CV 0: a zone that reliably reports no traffic is perfectly predictable,
	// so dispersion scoring treats it as such rather than leaving CV
	// undefined.
	CV float64
}

// Trend summarizes the slope of a sample series.
type Trend struct {
	Direction TrendDirection
	// Strength is in [0,1]; 0 for flat series.
	Strength float64
}

// WeightedAverage computes a decay-weighted mean of the footfall counts. Each
// sample's weight falls off exponentially with its age in days, so recent
// readings dominate. An empty set yields 0.
func WeightedAverage(samples []model.Observation, decayFactorDays float64, now time.Time) float64 {
	if len(samples) == 0 {
		return 0
	}
	if decayFactorDays <= 0 {
		decayFactorDays = 1
	}
	xs := make([]float64, len(samples))
	ws := make([]float64, len(samples))
	for i, s := range samples {
		ageDays := now.Sub(s.Timestamp).Hours() / 24
		if ageDays < 0 {
			ageDays = 0
		}
		xs[i] = float64(s.Footfall)
		ws[i] = math.Exp(-ageDays / decayFactorDays)
	}
	return stat.Mean(xs, ws)
}

// VarianceStats computes the sample variance and coefficient of variation of
// the footfall counts. Fewer than two samples yields zero stats.
func VarianceStats(samples []model.Observation) Stats {
	if len(samples) < 2 {
		return Stats{}
	}
	xs := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = float64(s.Footfall)
	}
	mean, variance := stat.MeanVariance(xs, nil)
	st := Stats{Variance: variance}
	if mean != 0 {
		st.CV = math.Sqrt(variance) / mean
	}
	return st
}

// IdentifyTrend fits a line through the series ordered by timestamp and
// normalizes its slope by the mean, expressing relative growth per day.
// Fewer than two samples, or a zero-mean series, is stable.
func IdentifyTrend(samples []model.Observation) Trend {
	if len(samples) < 2 {
		return Trend{Direction: TrendStable}
	}
	origin := samples[0].Timestamp
	xs := make([]float64, len(samples))
	ys := make([]float64, len(samples))
	for i, s := range samples {
		xs[i] = s.Timestamp.Sub(origin).Hours() / 24
		ys[i] = float64(s.Footfall)
	}
	mean := stat.Mean(ys, nil)
	if mean == 0 {
		return Trend{Direction: TrendStable}
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) {
		return Trend{Direction: TrendStable}
	}
	rel := slope / mean
	strength := math.Min(1, math.Abs(rel))
	switch {
	case math.Abs(rel) < trendStableThreshold:
		return Trend{Direction: TrendStable, Strength: strength}
	case rel > 0:
		return Trend{Direction: TrendIncreasing, Strength: strength}
	default:
		return Trend{Direction: TrendDecreasing, Strength: strength}
	}
}
