package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evsession/core/metrics"
)

// PromSink records session decisions in Prometheus metrics.
type PromSink struct {
	resolutions *prometheus.CounterVec
	missing     *prometheus.CounterVec
	decideTime  prometheus.Histogram
	scoring     *prometheus.HistogramVec
	catalogSize prometheus.Gauge
}

// NewPromSink registers session metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusAddr.
func NewPromSink(cfg coremetrics.Config) (*PromSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_resolutions_total",
			Help: "Session decisions by outcome and resolver stage",
		}, []string{"outcome", "stage"}),
		missing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_missing_fields_total",
			Help: "Critical fields missing when a session was decided",
		}, []string{"field"}),
		decideTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "session_decide_seconds",
			Help:    "Time spent resolving, deriving and evaluating a session",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}),
		scoring: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "session_scoring_seconds",
			Help:    "Latency of scoring model calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"scorer", "status"}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vehicle_catalog_records",
			Help: "Number of records in the loaded vehicle catalog",
		}),
	}

	var err error
	if s.resolutions, err = register(reg, s.resolutions); err != nil {
		return nil, err
	}
	if s.missing, err = register(reg, s.missing); err != nil {
		return nil, err
	}
	if s.decideTime, err = register(reg, s.decideTime); err != nil {
		return nil, err
	}
	if s.scoring, err = register(reg, s.scoring); err != nil {
		return nil, err
	}
	if s.catalogSize, err = register(reg, s.catalogSize); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c was registered
// before, so several sinks can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordResolution counts the decision and its missing fields.
func (s *PromSink) RecordResolution(ev coremetrics.ResolutionEvent) error {
	s.resolutions.WithLabelValues(string(ev.Outcome), ev.Stage).Inc()
	for _, f := range ev.Missing {
		s.missing.WithLabelValues(f).Inc()
	}
	s.decideTime.Observe(ev.Duration.Seconds())
	return nil
}

// RecordScoring observes the scoring latency.
func (s *PromSink) RecordScoring(ev coremetrics.ScoringEvent) error {
	status := "ok"
	if ev.Err != "" {
		status = "error"
	}
	s.scoring.WithLabelValues(ev.Scorer, status).Observe(ev.Latency.Seconds())
	return nil
}

// RecordCatalogSize sets the catalog gauge.
func (s *PromSink) RecordCatalogSize(size int) error {
	s.catalogSize.Set(float64(size))
	return nil
}
