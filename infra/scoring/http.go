// Package scoring contains scorers backed by a remote prediction service.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kilianp07/evsession/auth"
	"github.com/kilianp07/evsession/core/factory"
	"github.com/kilianp07/evsession/core/model"
	corescoring "github.com/kilianp07/evsession/core/scoring"
	"github.com/kilianp07/evsession/infra/logger"
)

const name = "http"

// HTTPConfig configures an HTTPScorer.
type HTTPConfig struct {
	URL string `json:"url"`
	// Token is sent as a static bearer token when OAuth is not configured.
	Token   string        `json:"token"`
	OAuth   auth.Conf     `json:"oauth"`
	Timeout time.Duration `json:"timeout"`
	// RatePerSecond limits outgoing calls when positive.
	RatePerSecond float64 `json:"rate_per_second"`
	Burst         int     `json:"burst"`
}

// SetDefaults fills unset fields.
func (c *HTTPConfig) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
}

// Validate checks the configuration.
func (c HTTPConfig) Validate() error {
	if c.URL == "" {
		return errors.New("http scorer: url is required")
	}
	return nil
}

// HTTPScorer posts the feature vector to a remote model.
type HTTPScorer struct {
	url     string
	client  *http.Client
	auth    auth.Authorizer
	limiter *rate.Limiter
	log     logger.Logger
}

type request struct {
	Features model.FeatureVector `json:"features"`
}

type response struct {
	Prediction  *float64  `json:"prediction"`
	Predictions []float64 `json:"predictions"`
}

// NewHTTPScorer builds a scorer from cfg.
func NewHTTPScorer(cfg HTTPConfig) (*HTTPScorer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &HTTPScorer{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		auth:   auth.New(cfg.OAuth, cfg.Token),
		log:    logger.New("http-scorer"),
	}
	if cfg.RatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}
	return s, nil
}

// Name returns "http".
func (s *HTTPScorer) Name() string { return name }

// Score implements scoring.Scorer.
func (s *HTTPScorer) Score(ctx context.Context, features model.FeatureVector) (float64, error) {
	v, err := s.score(ctx, features)
	if err != nil {
		return 0, corescoring.Wrap(name, err)
	}
	return v, nil
}

func (s *HTTPScorer) score(ctx context.Context, features model.FeatureVector) (float64, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limit: %w", err)
		}
	}
	body, err := json.Marshal(request{Features: features})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.auth != nil {
		if err := s.auth.SetAuthHeader(ctx, req); err != nil {
			return 0, err
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	switch {
	case out.Prediction != nil:
		return *out.Prediction, nil
	case len(out.Predictions) > 0:
		return out.Predictions[0], nil
	}
	s.log.Warnf("prediction service answered without a prediction")
	return 0, errors.New("response holds no prediction")
}

func init() {
	_ = corescoring.Register(name, func(conf map[string]any) (corescoring.Scorer, error) {
		var c HTTPConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewHTTPScorer(c)
	})
}
