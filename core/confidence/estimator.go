// Package confidence derives a 0-100 reliability score from sample
// statistics. Adjustments apply in a fixed order - sample count, then
// dispersion, then trend - so scores are deterministic for a given sample set.
package confidence

import (
	"math"

	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/sampling"
)

// baseScoreFloor is the score for sample sets below every tier.
const baseScoreFloor = 40

// countTiers maps minimum sample counts to base scores. Ordered descending;
// the first matching tier wins.
var countTiers = []struct {
	MinSamples int
	Score      float64
}{
	{20, 90},
	{15, 80},
	{10, 70},
	{5, 55},
}

// cvBands adjusts the score by coefficient of variation. Ordered ascending by
// upper bound (exclusive); the first band containing the CV applies. A zero
// Bonus with a zero Factor marks the neutral band.
var cvBands = []struct {
	Below  float64
	Bonus  float64
	Factor float64
}{
	{0.15, 10, 0},
	{0.20, 5, 0},
	{0.30, 0, 0},
	{0.40, 0, 0.85},
	{math.Inf(1), 0, 0.7},
}

// Trend adjustments: a stable series earns a small bonus, a strongly moving
// one a small penalty.
const (
	trendStableBonus      = 5
	trendStrengthCutoff   = 0.5
	trendUnstableDiscount = 0.95
)

// Score converts pre-computed statistics into a clamped integer confidence.
func Score(sampleCount int, stats sampling.Stats, trend sampling.Trend) int {
	score := float64(baseScoreFloor)
	for _, tier := range countTiers {
		if sampleCount >= tier.MinSamples {
			score = tier.Score
			break
		}
	}

	for _, band := range cvBands {
		if stats.CV < band.Below {
			if band.Factor > 0 {
				score *= band.Factor
			} else {
				score += band.Bonus
			}
			break
		}
	}

	if trend.Direction == sampling.TrendStable {
		score += trendStableBonus
	} else if trend.Strength > trendStrengthCutoff {
		score *= trendUnstableDiscount
	}

	return clamp(score)
}

// Estimate computes statistics for the sample set and scores them.
func Estimate(samples []model.Observation) int {
	return Score(len(samples), sampling.VarianceStats(samples), sampling.IdentifyTrend(samples))
}

func clamp(score float64) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(math.Round(score))
}
