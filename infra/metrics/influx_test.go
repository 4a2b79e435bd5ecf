package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evsession/core/metrics"
	"github.com/kilianp07/evsession/core/model"
)

type bodyRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (b *bodyRecorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.bodies = append(b.bodies, strings.TrimSpace(string(data)))
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSink_RecordResolution(t *testing.T) {
	rec := &bodyRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.ResolutionEvent{
		Outcome:  model.KindAskMissing,
		Stage:    "model_only",
		Missing:  []string{"soc_diff", "vehicle_age"},
		Duration: 1500 * time.Nanosecond,
		Time:     now,
	}
	if err := sink.RecordResolution(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("session_resolution").
		AddTag("outcome", "ask_missing").
		AddTag("stage", "model_only").
		AddTag("component", "session_engine").
		AddField("missing", 2).
		AddField("missing_fields", "soc_diff,vehicle_age").
		AddField("duration_us", 1.5).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(rec.bodies) != 1 || rec.bodies[0] != exp {
		t.Errorf("unexpected bodies: %#v", rec.bodies)
	}
}

func TestInfluxSink_RecordScoring(t *testing.T) {
	rec := &bodyRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	if err := sink.RecordScoring(coremetrics.ScoringEvent{Scorer: "http", Prediction: 32.6087, Latency: 250 * time.Millisecond, Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.RecordScoring(coremetrics.ScoringEvent{Scorer: "http", Err: "timeout", Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	ok := write.NewPointWithMeasurement("session_prediction").
		AddTag("scorer", "http").
		AddTag("component", "scoring").
		AddField("latency_ms", 250.0).
		AddField("prediction_kwh", 32.609).
		SetTime(now)
	failed := write.NewPointWithMeasurement("session_prediction").
		AddTag("scorer", "http").
		AddTag("component", "scoring").
		AddField("latency_ms", 0.0).
		AddField("error", "timeout").
		SetTime(now)
	exp1 := strings.TrimSpace(write.PointToLineProtocol(ok, time.Nanosecond))
	exp2 := strings.TrimSpace(write.PointToLineProtocol(failed, time.Nanosecond))
	if len(rec.bodies) != 2 || rec.bodies[0] != exp1 || rec.bodies[1] != exp2 {
		t.Errorf("unexpected bodies: %#v", rec.bodies)
	}
}

func TestInfluxSink_RecordCatalogSize(t *testing.T) {
	rec := &bodyRecorder{}
	sink := NewInfluxSink(rec.server(t).URL, "token", "org", "bucket")
	defer sink.Close()

	if err := sink.RecordCatalogSize(12); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(rec.bodies) != 1 || !strings.HasPrefix(rec.bodies[0], "vehicle_catalog,component=catalog records=12i ") {
		t.Errorf("unexpected bodies: %#v", rec.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
