// Package resolver matches free-text brand and model strings against the
// vehicle catalog.
//
// Resolution runs an ordered cascade of strategies from strict to loose.
// Each strategy is tried only when the previous ones found nothing; the first
// strategy with at least one candidate wins and its first candidate, in
// catalog order, is returned. The stage that produced the match is part of
// the result so callers can trace and count it.
package resolver

import (
	"github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/logger"
	"github.com/kilianp07/evsession/core/model"
)

// Match is a resolved record and the stage that found it.
type Match struct {
	Record model.VehicleRecord `json:"record"`
	Stage  Stage               `json:"stage"`
}

// Resolver runs the cascade. It holds no mutable state and is safe for
// concurrent use.
type Resolver struct {
	strategies []Strategy
	log        logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to trace resolution stages.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithStrategies replaces the default cascade.
func WithStrategies(s ...Strategy) Option {
	return func(r *Resolver) {
		if len(s) > 0 {
			r.strategies = append([]Strategy(nil), s...)
		}
	}
}

// New creates a Resolver using DefaultStrategies unless overridden.
func New(opts ...Option) *Resolver {
	r := &Resolver{strategies: DefaultStrategies(), log: logger.NopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks q up in cat. It returns false when brand or model is
// missing or when no stage matches.
func (r *Resolver) Resolve(q model.VehicleQuery, cat *catalog.Catalog) (Match, bool) {
	nq := NewQuery(q)
	if !nq.Valid() {
		return Match{}, false
	}
	for _, s := range r.strategies {
		rec, ok := s.first(nq, cat)
		if !ok {
			continue
		}
		r.log.Debugw("vehicle resolved", map[string]any{
			"brand":        q.Brand,
			"model":        q.Model,
			"stage":        s.Stage.String(),
			"match":        rec.Brand + " " + rec.Model,
			"catalog_size": cat.Len(),
		})
		return Match{Record: rec, Stage: s.Stage}, true
	}
	r.log.Debugw("vehicle not found", map[string]any{
		"brand":        q.Brand,
		"model":        q.Model,
		"catalog_size": cat.Len(),
	})
	return Match{}, false
}

var defaultResolver = New()

// Resolve runs the default cascade without tracing.
func Resolve(brand, modelName string, cat *catalog.Catalog) (model.VehicleRecord, bool) {
	m, ok := defaultResolver.Resolve(model.VehicleQuery{Brand: brand, Model: modelName}, cat)
	return m.Record, ok
}
