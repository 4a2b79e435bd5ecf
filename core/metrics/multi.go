package metrics

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordResolution forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordResolution(ev ResolutionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordResolution(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordScoring forwards scoring events when supported by the sink.
func (m *MultiSink) RecordScoring(ev ScoringEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ScoringRecorder); ok {
			if err := rec.RecordScoring(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordCatalogSize forwards catalog size metrics when supported by the sink.
func (m *MultiSink) RecordCatalogSize(size int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CatalogRecorder); ok {
			if err := rec.RecordCatalogSize(size); err != nil {
				return err
			}
		}
	}
	return nil
}
