// Package session composes vehicle resolution, feature derivation and the
// completeness check into a single decision per request.
//
// The engine keeps no state between calls. Decide is pure apart from the
// optional logging and metrics side channels; Run additionally calls the
// scoring model when the session is complete and reports its failure as a
// scoring error.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/completeness"
	"github.com/kilianp07/evsession/core/features"
	"github.com/kilianp07/evsession/core/logger"
	"github.com/kilianp07/evsession/core/metrics"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/resolver"
	"github.com/kilianp07/evsession/core/scoring"
)

// Stage labels used when the resolver did not produce a match.
const (
	StageSkipped = "skipped"
	StageMiss    = "none"
)

// ErrNoScorer is wrapped in the scoring error returned by Run when no
// scorer is available for a complete session.
var ErrNoScorer = errors.New("no scorer configured")

// Query is everything the extraction step could tell about a session.
type Query struct {
	Brand         string      `json:"brand,omitempty"`
	Model         string      `json:"model,omitempty"`
	BatteryKWh    model.Value `json:"battery_capacity_kwh"`
	SoCStartPct   model.Value `json:"soc_start_pct"`
	SoCEndPct     model.Value `json:"soc_end_pct"`
	DurationHours model.Value `json:"charging_duration_hours"`
	VehicleYear   model.Value `json:"vehicle_year"`
}

// Vehicle returns the catalog part of the query.
func (q Query) Vehicle() model.VehicleQuery {
	return model.VehicleQuery{Brand: q.Brand, Model: q.Model}
}

// Assemble converts q into raw session input, computing the SoC difference
// as soon as both bounds are known.
func Assemble(q Query) model.RawSessionInput {
	return model.RawSessionInput{
		BatteryKWh:    q.BatteryKWh,
		DurationHours: q.DurationHours,
		VehicleYear:   q.VehicleYear,
	}.WithSoCBounds(q.SoCStartPct, q.SoCEndPct)
}

// Decision is the result of Decide.
type Decision struct {
	Outcome model.Outcome
	// Vehicle is the catalog match, nil when there was none.
	Vehicle *resolver.Match
	// Session holds the derived features, complete or not.
	Session model.SessionInfo
	Missing []completeness.Field
}

// Stage returns the resolver stage label of the decision.
func (d Decision) Stage(q Query) string {
	if d.Vehicle != nil {
		return d.Vehicle.Stage.String()
	}
	if q.Vehicle().Empty() {
		return StageSkipped
	}
	return StageMiss
}

// Reply is a decision plus the prediction obtained for it.
type Reply struct {
	Decision
	// Prediction is known only for ReadyToPredict outcomes that were scored.
	Prediction model.Value
}

// Engine runs the session resolution protocol against a catalog provider.
type Engine struct {
	catalog    catalog.Provider
	resolver   *resolver.Resolver
	efficiency float64
	now        func() time.Time
	log        logger.Logger
	metrics    metrics.MetricsSink
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. It is also used by the default resolver.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics sets the sink receiving resolution and scoring events.
func WithMetrics(m metrics.MetricsSink) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock sets the time source used to compute vehicle ages.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEfficiency sets the charge efficiency reported in every session.
func WithEfficiency(eff float64) Option {
	return func(e *Engine) {
		if eff > 0 {
			e.efficiency = eff
		}
	}
}

// WithResolver replaces the default resolver.
func WithResolver(r *resolver.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// New creates an Engine reading vehicles from p. A nil provider behaves like
// an empty catalog.
func New(p catalog.Provider, opts ...Option) *Engine {
	e := &Engine{
		catalog:    p,
		efficiency: features.DefaultChargeEfficiency,
		now:        time.Now,
		log:        logger.NopLogger{},
		metrics:    metrics.NopSink{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.resolver == nil {
		e.resolver = resolver.New(resolver.WithLogger(e.log))
	}
	return e
}

func (e *Engine) snapshot() *catalog.Catalog {
	if e.catalog == nil {
		return nil
	}
	return e.catalog.Snapshot()
}

// Match resolves q against the current catalog snapshot.
func (e *Engine) Match(q model.VehicleQuery) (resolver.Match, bool) {
	if q.Empty() {
		return resolver.Match{}, false
	}
	return e.resolver.Resolve(q, e.snapshot())
}

// Decide resolves the vehicle, derives the session features and checks
// completeness. It never fails: missing data yields AskMissing.
func (e *Engine) Decide(q Query) Decision {
	start := time.Now()
	var d Decision
	var matched *model.VehicleRecord
	if m, ok := e.Match(q.Vehicle()); ok {
		d.Vehicle = &m
		matched = &m.Record
	}

	raw := Assemble(q)
	d.Session = features.Derive(raw, matched, e.now().Year(), e.efficiency)
	d.Missing = completeness.Missing(d.Session)
	if questions := completeness.Evaluate(d.Session); len(questions) > 0 {
		d.Outcome = model.AskMissing{Questions: questions}
	} else {
		d.Outcome = model.ReadyToPredict{Session: d.Session}
	}

	missing := make([]string, len(d.Missing))
	for i, f := range d.Missing {
		missing[i] = string(f)
	}
	e.log.Debugw("session decided", map[string]any{
		"outcome": string(d.Outcome.Kind()),
		"stage":   d.Stage(q),
		"missing": missing,
	})
	if err := e.metrics.RecordResolution(metrics.ResolutionEvent{
		Outcome:  d.Outcome.Kind(),
		Stage:    d.Stage(q),
		Missing:  missing,
		Duration: time.Since(start),
		Time:     time.Now(),
	}); err != nil {
		e.log.Warnf("record resolution: %v", err)
	}
	return d
}

// Run decides q and, when the session is complete, scores it with s. A
// failure of the scorer is returned as a *scoring.Error together with the
// decision; no retry is attempted.
func (e *Engine) Run(ctx context.Context, q Query, s scoring.Scorer) (Reply, error) {
	reply := Reply{Decision: e.Decide(q)}
	ready, ok := reply.Outcome.(model.ReadyToPredict)
	if !ok {
		return reply, nil
	}
	if s == nil {
		return reply, scoring.Wrap("", ErrNoScorer)
	}

	name := ScorerName(s)
	start := time.Now()
	v, err := s.Score(ctx, ready.Session.Features())
	if err == nil && !model.Known(v).IsKnown() {
		err = fmt.Errorf("non-finite prediction %v", v)
	}
	ev := metrics.ScoringEvent{Scorer: name, Prediction: v, Latency: time.Since(start), Time: time.Now()}
	if err != nil {
		ev.Err = err.Error()
	}
	if rec, ok := e.metrics.(metrics.ScoringRecorder); ok {
		if merr := rec.RecordScoring(ev); merr != nil {
			e.log.Warnf("record scoring: %v", merr)
		}
	}
	if err != nil {
		e.log.Errorf("scoring with %s: %v", name, err)
		return reply, scoring.Wrap(name, err)
	}
	reply.Prediction = model.Known(v)
	return reply, nil
}

// ScorerName returns s.Name() when available, or the dynamic type.
func ScorerName(s scoring.Scorer) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}
