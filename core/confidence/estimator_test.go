package confidence

import (
	"testing"
	"time"

	"github.com/crowdsense/crowdcast/core/model"
	"github.com/crowdsense/crowdcast/core/sampling"
)

func stable() sampling.Trend { return sampling.Trend{Direction: sampling.TrendStable} }

func moving(strength float64) sampling.Trend {
	return sampling.Trend{Direction: sampling.TrendIncreasing, Strength: strength}
}

func TestScore_CountTiers(t *testing.T) {
	// neutral CV band and a moving-but-weak trend isolate the base score
	neutral := sampling.Stats{CV: 0.25}
	weak := moving(0.1)
	cases := []struct {
		count int
		want  int
	}{
		{25, 90},
		{20, 90},
		{15, 80},
		{10, 70},
		{5, 55},
		{4, 40},
		{0, 40},
	}
	for _, c := range cases {
		if got := Score(c.count, neutral, weak); got != c.want {
			t.Fatalf("count %d: got %d want %d", c.count, got, c.want)
		}
	}
}

func TestScore_CountMonotonicity(t *testing.T) {
	neutral := sampling.Stats{CV: 0.25}
	weak := moving(0.1)
	prev := -1
	for _, count := range []int{0, 5, 10, 15, 20, 25} {
		got := Score(count, neutral, weak)
		if got < prev {
			t.Fatalf("score decreased at count %d: %d < %d", count, got, prev)
		}
		prev = got
	}
}

func TestScore_CVBands(t *testing.T) {
	weak := moving(0.1)
	cases := []struct {
		cv   float64
		want int
	}{
		{0.10, 100}, // 90 + 10
		{0.17, 95},  // 90 + 5
		{0.25, 90},  // neutral band
		{0.35, 77},  // 90 * 0.85 = 76.5 rounded
		{0.50, 63},  // 90 * 0.7
	}
	for _, c := range cases {
		if got := Score(20, sampling.Stats{CV: c.cv}, weak); got != c.want {
			t.Fatalf("cv %.2f: got %d want %d", c.cv, got, c.want)
		}
	}
}

func TestScore_TrendAdjustments(t *testing.T) {
	neutral := sampling.Stats{CV: 0.25}
	if got := Score(20, neutral, stable()); got != 95 {
		t.Fatalf("stable bonus: got %d want 95", got)
	}
	if got := Score(20, neutral, moving(0.8)); got != 86 {
		t.Fatalf("strong trend discount: got %d want 86", got)
	}
	if got := Score(20, neutral, moving(0.5)); got != 90 {
		t.Fatalf("strength at cutoff must not discount: got %d", got)
	}
}

func TestScore_ClampedTo100(t *testing.T) {
	// 90 base + 10 CV bonus + 5 stable bonus clamps at 100
	if got := Score(25, sampling.Stats{CV: 0.0}, stable()); got != 100 {
		t.Fatalf("got %d want 100", got)
	}
}

func TestEstimate_SteadySeries(t *testing.T) {
	base := time.Now().AddDate(0, 0, -25)
	var samples []model.Observation
	for i := 0; i < 25; i++ {
		samples = append(samples, model.Observation{
			ZoneID:    "hall",
			Timestamp: base.AddDate(0, 0, i),
			Footfall:  500,
			Capacity:  1000,
		})
	}
	if got := Estimate(samples); got != 100 {
		t.Fatalf("25 identical samples: got %d want 100", got)
	}
}
