package metrics

import (
	"time"

	"github.com/kilianp07/evsession/core/model"
)

// ResolutionEvent describes one session decision.
type ResolutionEvent struct {
	Outcome model.OutcomeKind
	// Stage is the resolver stage that matched the vehicle, "none" when the
	// catalog had no match and "skipped" when brand or model was missing.
	Stage    string
	Missing  []string
	Duration time.Duration
	Time     time.Time
}

// MetricsSink records resolution decisions for observability purposes.
type MetricsSink interface {
	RecordResolution(ev ResolutionEvent) error
}

// ScoringEvent captures one call to the scoring model.
type ScoringEvent struct {
	Scorer     string
	Prediction float64
	Latency    time.Duration
	Err        string
	Time       time.Time
}

// ScoringRecorder records scoring calls.
type ScoringRecorder interface {
	RecordScoring(ev ScoringEvent) error
}

// CatalogRecorder records the number of records of the loaded catalog.
type CatalogRecorder interface {
	RecordCatalogSize(size int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordResolution(ResolutionEvent) error { return nil }
func (NopSink) RecordScoring(ScoringEvent) error       { return nil }
func (NopSink) RecordCatalogSize(int) error            { return nil }
