package resolver

import (
	"strings"

	"github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/normalize"
)

// MinTokenRunes is the minimum length of a model token taken into account by
// the token based stages.
const MinTokenRunes = 3

// Stage identifies the strategy that produced a match.
type Stage int

const (
	StageNone Stage = iota
	StageExact
	StageContainment
	StageTokenOverlap
	StageModelOnly
)

func (s Stage) String() string {
	switch s {
	case StageExact:
		return "exact"
	case StageContainment:
		return "containment"
	case StageTokenOverlap:
		return "token_overlap"
	case StageModelOnly:
		return "model_only"
	default:
		return "none"
	}
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a stage name. Unknown names decode to StageNone.
func (s *Stage) UnmarshalText(b []byte) error {
	*s = ParseStage(string(b))
	return nil
}

// ParseStage returns the stage named name or StageNone.
func ParseStage(name string) Stage {
	for _, st := range []Stage{StageExact, StageContainment, StageTokenOverlap, StageModelOnly} {
		if st.String() == name {
			return st
		}
	}
	return StageNone
}

// Query is a vehicle query in normalized form.
type Query struct {
	Brand string
	Model string
	// Tokens are the model tokens of at least MinTokenRunes characters.
	Tokens []string
}

// NewQuery normalizes q.
func NewQuery(q model.VehicleQuery) Query {
	m := normalize.Normalize(q.Model)
	return Query{
		Brand:  normalize.Normalize(q.Brand),
		Model:  m,
		Tokens: normalize.Qualifying(strings.Fields(m), MinTokenRunes),
	}
}

// Valid reports whether both brand and model are present.
func (q Query) Valid() bool { return q.Brand != "" && q.Model != "" }

// Strategy is one step of the resolution cascade. Match must be a pure
// predicate over the query and a catalog entry.
type Strategy struct {
	Stage Stage
	Match func(q Query, e catalog.Entry) bool
}

// Candidates returns every record accepted by the strategy, in catalog order.
func (s Strategy) Candidates(q Query, cat *catalog.Catalog) []model.VehicleRecord {
	var out []model.VehicleRecord
	for _, e := range cat.Entries() {
		if s.Match(q, e) {
			out = append(out, e.Record)
		}
	}
	return out
}

func (s Strategy) first(q Query, cat *catalog.Catalog) (model.VehicleRecord, bool) {
	for _, e := range cat.Entries() {
		if s.Match(q, e) {
			return e.Record, true
		}
	}
	return model.VehicleRecord{}, false
}

// Exact requires brand and model to be equal once normalized.
var Exact = Strategy{
	Stage: StageExact,
	Match: func(q Query, e catalog.Entry) bool {
		return e.Brand == q.Brand && e.Model == q.Model
	},
}

// Containment accepts catalog entries whose brand and model contain the
// query brand and model.
var Containment = Strategy{
	Stage: StageContainment,
	Match: func(q Query, e catalog.Entry) bool {
		return strings.Contains(e.Brand, q.Brand) && strings.Contains(e.Model, q.Model)
	},
}

// TokenOverlap accepts entries whose brand contains the query brand and whose
// model contains every qualifying query token. It never matches when the
// query has no qualifying token.
var TokenOverlap = Strategy{
	Stage: StageTokenOverlap,
	Match: func(q Query, e catalog.Entry) bool {
		if len(q.Tokens) == 0 || !strings.Contains(e.Brand, q.Brand) {
			return false
		}
		for _, tok := range q.Tokens {
			if !strings.Contains(e.Model, tok) {
				return false
			}
		}
		return true
	},
}

// ModelOnly ignores the brand and looks for the first qualifying token, or
// the whole model when no token qualifies, in the catalog model.
var ModelOnly = Strategy{
	Stage: StageModelOnly,
	Match: func(q Query, e catalog.Entry) bool {
		needle := q.Model
		if len(q.Tokens) > 0 {
			needle = q.Tokens[0]
		}
		return strings.Contains(e.Model, needle)
	},
}

// DefaultStrategies returns the strict-to-loose cascade.
func DefaultStrategies() []Strategy {
	return []Strategy{Exact, Containment, TokenOverlap, ModelOnly}
}
