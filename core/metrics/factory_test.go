package metrics_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsession/core/factory"
	metrics "github.com/kilianp07/evsession/core/metrics"
	"github.com/kilianp07/evsession/core/model"
	_ "github.com/kilianp07/evsession/infra/metrics"
)

// captureSink keeps every event it receives under its label.
type captureSink struct {
	label       string
	mu          sync.Mutex
	resolutions []metrics.ResolutionEvent
	scorings    []metrics.ScoringEvent
	closed      bool
}

func (c *captureSink) RecordResolution(ev metrics.ResolutionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolutions = append(c.resolutions, ev)
	return nil
}

func (c *captureSink) RecordScoring(ev metrics.ScoringEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scorings = append(c.scorings, ev)
	return nil
}

func (c *captureSink) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

var (
	capturedMu sync.Mutex
	captured   = map[string]*captureSink{}
)

func capture(label string) *captureSink {
	capturedMu.Lock()
	defer capturedMu.Unlock()
	return captured[label]
}

func init() {
	_ = metrics.RegisterSink("capture", func(conf map[string]any) (metrics.MetricsSink, error) {
		var c struct {
			Label string `json:"label"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Label == "" {
			return nil, errors.New("label is required")
		}
		s := &captureSink{label: c.Label}
		capturedMu.Lock()
		captured[c.Label] = s
		capturedMu.Unlock()
		return s, nil
	})
}

func TestNewSinkDefaultsToNop(t *testing.T) {
	s, err := metrics.NewSink(metrics.Config{})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewSink(metrics.Config{Sinks: []factory.ModuleConfig{{Type: "nop"}}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)
}

func TestNewSinkFansOutEvents(t *testing.T) {
	s, err := metrics.NewSink(metrics.Config{Sinks: []factory.ModuleConfig{
		{Type: "capture", Conf: map[string]any{"label": "fan-a"}},
		{Type: "nop"},
		{Type: "capture", Conf: map[string]any{"label": "fan-b"}},
	}})
	require.NoError(t, err)
	multi, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "got %T", s)
	require.Len(t, multi.Sinks, 3)

	res := metrics.ResolutionEvent{
		Outcome:  model.KindAskMissing,
		Stage:    "containment",
		Missing:  []string{"soc_diff", "vehicle_age"},
		Duration: time.Millisecond,
	}
	require.NoError(t, s.RecordResolution(res))
	rec, ok := s.(metrics.ScoringRecorder)
	require.True(t, ok)
	sc := metrics.ScoringEvent{Scorer: "physics", Prediction: 33.9, Latency: 2 * time.Millisecond}
	require.NoError(t, rec.RecordScoring(sc))

	for _, label := range []string{"fan-a", "fan-b"} {
		c := capture(label)
		require.NotNil(t, c, label)
		assert.Equal(t, []metrics.ResolutionEvent{res}, c.resolutions, label)
		assert.Equal(t, []metrics.ScoringEvent{sc}, c.scorings, label)
	}
}

func TestNewSinkFailureClosesBuiltSinks(t *testing.T) {
	_, err := metrics.NewSink(metrics.Config{Sinks: []factory.ModuleConfig{
		{Type: "capture", Conf: map[string]any{"label": "closed-a"}},
		{Type: "missing"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics sink 1 (missing)")
	c := capture("closed-a")
	require.NotNil(t, c)
	assert.True(t, c.closed)

	_, err = metrics.NewSink(metrics.Config{Sinks: []factory.ModuleConfig{{Type: "capture"}}})
	assert.ErrorContains(t, err, "label is required")
}
