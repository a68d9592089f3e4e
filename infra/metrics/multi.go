package metrics

import coremetrics "github.com/crowdsense/crowdcast/core/metrics"

// MultiSink fans forecast records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordForecast forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordForecast(rec coremetrics.ForecastRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordForecast(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordCache forwards cache activity to sinks that support it.
func (m *MultiSink) RecordCache(rec coremetrics.CacheRecord) error {
	for _, s := range m.Sinks {
		if cr, ok := s.(coremetrics.CacheRecorder); ok {
			if err := cr.RecordCache(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordObservation forwards reading snapshots to sinks that support it.
func (m *MultiSink) RecordObservation(rec coremetrics.ObservationRecord) error {
	for _, s := range m.Sinks {
		if or, ok := s.(coremetrics.ObservationRecorder); ok {
			if err := or.RecordObservation(rec); err != nil {
				return err
			}
		}
	}
	return nil
}
