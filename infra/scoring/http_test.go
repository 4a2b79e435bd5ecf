package scoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evsession/core/factory"
	"github.com/kilianp07/evsession/core/model"
	corescoring "github.com/kilianp07/evsession/core/scoring"
)

func features() model.FeatureVector {
	return model.SessionInfo{
		BatteryKWh:       model.Known(75),
		SoCDiff:          model.Known(40),
		DurationHours:    model.Known(1.5),
		EnergyEstSoC:     model.Known(30),
		ChargingRate:     model.Known(20),
		PowerProxy:       model.Known(20),
		ChargeEfficiency: model.Known(0.92),
		EnergyPerSoC:     model.Known(0.75),
		VehicleAgeYears:  model.Known(1),
	}.Features()
}

func TestHTTPScorer_Prediction(t *testing.T) {
	var body []byte
	var authz string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		authz = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"prediction": 32.6}`))
	}))
	defer srv.Close()

	s, err := NewHTTPScorer(HTTPConfig{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	v, err := s.Score(context.Background(), features())
	require.NoError(t, err)
	assert.Equal(t, 32.6, v)
	assert.Equal(t, "Bearer secret", authz)
	assert.JSONEq(t, `{"features":{
		"Battery Capacity (kWh)":75,"SoC_diff":40,"Charging Duration (hours)":1.5,
		"Energy_est_SoC":30,"Charging_Rate":20,"Power_proxy":20,
		"Charge_Efficiency":0.92,"Energy_per_SoC":0.75,"Vehicle Age (years)":1}}`, string(body))
	// keys keep the feature order on the wire
	assert.Regexp(t, `^\{"features":\{"Battery Capacity \(kWh\)":75,"SoC_diff":40,`, string(body))
}

func TestHTTPScorer_PredictionsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"predictions": [12.5, 99]}`))
	}))
	defer srv.Close()

	s, err := NewHTTPScorer(HTTPConfig{URL: srv.URL})
	require.NoError(t, err)
	v, err := s.Score(context.Background(), features())
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)
}

func TestHTTPScorer_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusServiceUnavailable)
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
		"empty": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"predictions": []}`))
		},
	}
	for label, h := range cases {
		t.Run(label, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			s, err := NewHTTPScorer(HTTPConfig{URL: srv.URL})
			require.NoError(t, err)
			_, err = s.Score(context.Background(), features())
			require.Error(t, err)
			assert.ErrorIs(t, err, corescoring.ErrScoring)
		})
	}
}

func TestHTTPScorer_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	s, err := NewHTTPScorer(HTTPConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = s.Score(context.Background(), features())
	assert.ErrorIs(t, err, corescoring.ErrScoring)
}

func TestHTTPScorer_OAuth(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"oauth-token","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer oauth-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]float64{"prediction": 1})
	}))
	defer srv.Close()

	s, err := corescoring.New(factory.ModuleConfig{Type: "http", Conf: map[string]any{
		"url":     srv.URL,
		"timeout": "2s",
		"oauth":   map[string]any{"client_id": "id", "client_secret": "s", "auth_url": tokenSrv.URL},
	}})
	require.NoError(t, err)
	v, err := s.Score(context.Background(), features())
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestHTTPScorer_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prediction": 1}`))
	}))
	defer srv.Close()

	s, err := NewHTTPScorer(HTTPConfig{URL: srv.URL, RatePerSecond: 0.001})
	require.NoError(t, err)
	_, err = s.Score(context.Background(), features())
	require.NoError(t, err)

	// the single token is spent, the next call would wait far beyond the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Score(ctx, features())
	assert.ErrorIs(t, err, corescoring.ErrScoring)
}

func TestNewHTTPScorer_Validation(t *testing.T) {
	_, err := NewHTTPScorer(HTTPConfig{})
	assert.Error(t, err)
	_, err = corescoring.New(factory.ModuleConfig{Type: "http"})
	assert.Error(t, err)
}
