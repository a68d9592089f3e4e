package metrics

import (
	"testing"

	coremetrics "github.com/crowdsense/crowdcast/core/metrics"
)

type recordSink struct {
	count int
}

func (r *recordSink) RecordForecast(coremetrics.ForecastRecord) error {
	r.count++
	return nil
}

func (r *recordSink) RecordCache(coremetrics.CacheRecord) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordForecast(coremetrics.ForecastRecord{}); err != nil {
		t.Fatalf("record forecast: %v", err)
	}
	if err := m.RecordCache(coremetrics.CacheRecord{}); err != nil {
		t.Fatalf("record cache: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("records not forwarded")
	}
}

func TestMultiSink_SkipsUnsupportedRecorders(t *testing.T) {
	m := NewMultiSink(coremetrics.NopSink{})
	if err := m.RecordObservation(coremetrics.ObservationRecord{}); err != nil {
		t.Fatalf("record observation: %v", err)
	}
}
