package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/completeness"
	"github.com/kilianp07/evsession/core/metrics"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/resolver"
	"github.com/kilianp07/evsession/core/scoring"
)

func fixedClock() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

func testCatalog() catalog.Static {
	return catalog.NewStatic([]model.VehicleRecord{
		{Brand: "Tesla", Model: "Model 3", BatteryKWh: 60, ModelYear: 2021},
		{Brand: "Renault", Model: "Zoe", BatteryKWh: 52},
	})
}

type recordingSink struct {
	mu          sync.Mutex
	resolutions []metrics.ResolutionEvent
	scorings    []metrics.ScoringEvent
}

func (r *recordingSink) RecordResolution(ev metrics.ResolutionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions = append(r.resolutions, ev)
	return nil
}

func (r *recordingSink) RecordScoring(ev metrics.ScoringEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorings = append(r.scorings, ev)
	return nil
}

func TestDecideCompleteSession(t *testing.T) {
	e := New(testCatalog(), WithClock(fixedClock))
	d := e.Decide(Query{
		BatteryKWh:    model.Known(75),
		SoCStartPct:   model.Known(20),
		SoCEndPct:     model.Known(60),
		DurationHours: model.Known(1.5),
		VehicleYear:   model.Known(2023),
	})

	ready, ok := d.Outcome.(model.ReadyToPredict)
	require.True(t, ok, "outcome %T", d.Outcome)
	want := model.SessionInfo{
		BatteryKWh:       model.Known(75),
		SoCDiff:          model.Known(40),
		DurationHours:    model.Known(1.5),
		EnergyEstSoC:     model.Known(30),
		ChargingRate:     model.Known(20),
		PowerProxy:       model.Known(20),
		ChargeEfficiency: model.Known(0.92),
		EnergyPerSoC:     model.Known(0.75),
		VehicleAgeYears:  model.Known(1),
	}
	assert.Equal(t, want, ready.Session)
	assert.Equal(t, want, d.Session)
	assert.Empty(t, d.Missing)
	assert.Nil(t, d.Vehicle)
}

func TestDecideOnlyDuration(t *testing.T) {
	e := New(testCatalog(), WithClock(fixedClock))
	d := e.Decide(Query{DurationHours: model.Known(1.5)})

	ask, ok := d.Outcome.(model.AskMissing)
	require.True(t, ok, "outcome %T", d.Outcome)
	assert.Equal(t, []string{
		completeness.Question(completeness.FieldBatteryCapacity),
		completeness.Question(completeness.FieldSoCDiff),
		completeness.Question(completeness.FieldVehicleAge),
	}, ask.Questions)
	assert.Equal(t, []completeness.Field{
		completeness.FieldBatteryCapacity,
		completeness.FieldSoCDiff,
		completeness.FieldVehicleAge,
	}, d.Missing)
	assert.Equal(t, StageSkipped, d.Stage(Query{DurationHours: model.Known(1.5)}))
}

func TestDecideFillsFromCatalog(t *testing.T) {
	e := New(testCatalog(), WithClock(fixedClock))
	q := Query{
		Brand:         "Tesla",
		Model:         "model 3 long range",
		SoCStartPct:   model.Known(10),
		SoCEndPct:     model.Known(60),
		DurationHours: model.Known(2),
	}
	d := e.Decide(q)

	require.NotNil(t, d.Vehicle)
	assert.Equal(t, resolver.ModelOnly.Stage, d.Vehicle.Stage)
	assert.Equal(t, "Model 3", d.Vehicle.Record.Model)
	assert.Equal(t, "model_only", d.Stage(q))

	ready, ok := d.Outcome.(model.ReadyToPredict)
	require.True(t, ok, "outcome %T", d.Outcome)
	assert.Equal(t, model.Known(60), ready.Session.BatteryKWh)
	assert.Equal(t, model.Known(3), ready.Session.VehicleAgeYears)
	assert.Equal(t, model.Known(30), ready.Session.EnergyEstSoC)
	assert.Equal(t, model.Known(15), ready.Session.ChargingRate)
}

func TestDecideUnknownVehicle(t *testing.T) {
	e := New(testCatalog(), WithClock(fixedClock))
	q := Query{Brand: "Peugeot", Model: "e-208", SoCStartPct: model.Known(10), SoCEndPct: model.Known(50), DurationHours: model.Known(1)}
	d := e.Decide(q)

	assert.Nil(t, d.Vehicle)
	assert.Equal(t, StageMiss, d.Stage(q))
	assert.Equal(t, []completeness.Field{completeness.FieldBatteryCapacity, completeness.FieldVehicleAge}, d.Missing)
	assert.Equal(t, model.KindAskMissing, d.Outcome.Kind())
}

func TestDecideZeroDuration(t *testing.T) {
	e := New(nil, WithClock(fixedClock))
	d := e.Decide(Query{
		BatteryKWh:    model.Known(50),
		SoCStartPct:   model.Known(20),
		SoCEndPct:     model.Known(80),
		DurationHours: model.Known(0),
		VehicleYear:   model.Known(2020),
	})
	assert.False(t, d.Session.ChargingRate.IsKnown())
	assert.False(t, d.Session.PowerProxy.IsKnown())
	// a zero duration is known, so the session is still complete
	assert.Equal(t, model.KindPredict, d.Outcome.Kind())
}

func TestDecideEfficiencyOption(t *testing.T) {
	e := New(nil, WithClock(fixedClock), WithEfficiency(0.85))
	d := e.Decide(Query{})
	assert.Equal(t, model.Known(0.85), d.Session.ChargeEfficiency)

	e = New(nil, WithEfficiency(-1))
	d = e.Decide(Query{})
	assert.Equal(t, model.Known(0.92), d.Session.ChargeEfficiency)
}

func TestDecideRecordsMetrics(t *testing.T) {
	sink := &recordingSink{}
	e := New(testCatalog(), WithClock(fixedClock), WithMetrics(sink))
	e.Decide(Query{Brand: "Renault", Model: "Zoe"})

	require.Len(t, sink.resolutions, 1)
	ev := sink.resolutions[0]
	assert.Equal(t, model.KindAskMissing, ev.Outcome)
	assert.Equal(t, "exact", ev.Stage)
	assert.Equal(t, []string{"soc_diff", "charging_duration", "vehicle_age"}, ev.Missing)
}

func completeQuery() Query {
	return Query{
		BatteryKWh:    model.Known(75),
		SoCStartPct:   model.Known(20),
		SoCEndPct:     model.Known(60),
		DurationHours: model.Known(1.5),
		VehicleYear:   model.Known(2023),
	}
}

func TestRunScoresCompleteSession(t *testing.T) {
	sink := &recordingSink{}
	e := New(nil, WithClock(fixedClock), WithMetrics(sink))
	mock := &scoring.Mock{Value: 32.6}

	reply, err := e.Run(context.Background(), completeQuery(), mock)
	require.NoError(t, err)
	assert.Equal(t, model.Known(32.6), reply.Prediction)
	require.Len(t, mock.Calls(), 1)
	assert.Equal(t, reply.Session.Features(), mock.Calls()[0])

	require.Len(t, sink.scorings, 1)
	assert.Equal(t, "mock", sink.scorings[0].Scorer)
	assert.Empty(t, sink.scorings[0].Err)
}

func TestRunSkipsScoringWhenIncomplete(t *testing.T) {
	e := New(nil, WithClock(fixedClock))
	mock := &scoring.Mock{Value: 1}

	reply, err := e.Run(context.Background(), Query{DurationHours: model.Known(1)}, mock)
	require.NoError(t, err)
	assert.Equal(t, model.KindAskMissing, reply.Outcome.Kind())
	assert.False(t, reply.Prediction.IsKnown())
	assert.Empty(t, mock.Calls())
}

func TestRunScoringFailure(t *testing.T) {
	sink := &recordingSink{}
	e := New(nil, WithClock(fixedClock), WithMetrics(sink))
	cause := errors.New("model offline")

	reply, err := e.Run(context.Background(), completeQuery(), &scoring.Mock{Err: cause})
	require.Error(t, err)
	assert.ErrorIs(t, err, scoring.ErrScoring)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, model.KindPredict, reply.Outcome.Kind())
	assert.False(t, reply.Prediction.IsKnown())
	require.Len(t, sink.scorings, 1)
	assert.NotEmpty(t, sink.scorings[0].Err)
}

func TestRunRejectsNonFinitePrediction(t *testing.T) {
	e := New(nil, WithClock(fixedClock))
	nan := scoring.Func(func(context.Context, model.FeatureVector) (float64, error) { return math.NaN(), nil })

	_, err := e.Run(context.Background(), completeQuery(), nan)
	assert.ErrorIs(t, err, scoring.ErrScoring)
}

func TestRunWithoutScorer(t *testing.T) {
	e := New(nil, WithClock(fixedClock))
	_, err := e.Run(context.Background(), completeQuery(), nil)
	assert.ErrorIs(t, err, scoring.ErrScoring)
	assert.ErrorIs(t, err, ErrNoScorer)
}

func TestRunPhysicsBaseline(t *testing.T) {
	e := New(nil, WithClock(fixedClock))
	reply, err := e.Run(context.Background(), completeQuery(), scoring.Physics{Efficiency: 0.75})
	require.NoError(t, err)
	v, ok := reply.Prediction.Get()
	require.True(t, ok)
	assert.InDelta(t, 40.0, v, 1e-9)
}

func TestEngineConcurrentUse(t *testing.T) {
	cat := catalog.NewAtomic(testCatalog().Snapshot())
	e := New(cat, WithClock(fixedClock))
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%8 == 0 {
				cat.Store(testCatalog().Snapshot())
			}
			d := e.Decide(Query{Brand: "Renault", Model: "Zoe", VehicleYear: model.Known(2020)})
			if d.Vehicle == nil || d.Vehicle.Record.Model != "Zoe" {
				t.Errorf("unexpected match %+v", d.Vehicle)
			}
		}(i)
	}
	wg.Wait()
}

func TestScorerName(t *testing.T) {
	assert.Equal(t, "physics", ScorerName(scoring.Physics{}))
	assert.Equal(t, "mock", ScorerName(&scoring.Mock{}))
	assert.Equal(t, "scoring.Func", ScorerName(scoring.Func(nil)))
}
