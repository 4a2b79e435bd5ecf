// Package app wires configuration, catalog, engine and adapters into a
// running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	apisession "github.com/kilianp07/evsession/api/session"
	"github.com/kilianp07/evsession/config"
	corecatalog "github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/decisionlog"
	coremetrics "github.com/kilianp07/evsession/core/metrics"
	"github.com/kilianp07/evsession/core/scoring"
	"github.com/kilianp07/evsession/core/session"
	infracatalog "github.com/kilianp07/evsession/infra/catalog"
	"github.com/kilianp07/evsession/infra/logger"
	"github.com/kilianp07/evsession/infra/metrics"
	"github.com/kilianp07/evsession/infra/mqtt"
	_ "github.com/kilianp07/evsession/infra/scoring" // registers the http scorer
	"github.com/kilianp07/evsession/internal/eventbus"
)

// Service owns every long-lived component of the resolution service.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	Catalog   *corecatalog.Atomic
	Engine    *session.Engine
	Scorer    scoring.Scorer
	Store     decisionlog.Store
	sink      coremetrics.MetricsSink
	bus       *eventbus.TypedBus[decisionlog.Record]
	mqtt      mqtt.Client
	publisher *mqtt.OutcomePublisher
	handler   http.Handler
	gatherer  prometheus.Gatherer

	started   chan struct{}
	addr      net.Addr
	closeOnce sync.Once
}

// Option customizes a Service.
type Option func(*Service)

// WithMQTTClient replaces the Paho client built from mqtt config. The
// publisher is enabled regardless of mqtt.enabled.
func WithMQTTClient(c mqtt.Client) Option {
	return func(s *Service) { s.mqtt = c }
}

// WithGatherer sets the registry served on the metrics address.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Service) { s.gatherer = g }
}

// New creates a Service from the configuration. A catalog that cannot be
// loaded is fatal.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		log:      logger.New("service"),
		bus:      eventbus.NewTyped[decisionlog.Record](),
		gatherer: prometheus.DefaultGatherer,
		started:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	cat, err := infracatalog.LoadFile(cfg.Catalog.Path, logger.New("catalog"))
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	s.Catalog = corecatalog.NewAtomic(cat)
	s.log.Infof("catalog %s loaded with %d records", cfg.Catalog.Path, cat.Len())

	s.sink, err = coremetrics.NewSink(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	s.recordCatalog(cat)

	s.Scorer, err = scoring.New(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("scorer %s: %w", cfg.Scoring.Type, err)
	}

	if cfg.DecisionLog.Backend != "" {
		s.Store, err = decisionlog.Open(cfg.DecisionLog)
		if err != nil {
			return nil, fmt.Errorf("decision log: %w", err)
		}
	}

	if s.mqtt == nil && cfg.MQTT.Enabled {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			s.closeStore()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.mqtt = client
	}
	if s.mqtt != nil {
		s.publisher = mqtt.NewOutcomePublisher(s.mqtt, cfg.MQTT.TopicPrefix)
	}

	s.Engine = session.New(s.Catalog,
		session.WithLogger(logger.New("engine")),
		session.WithMetrics(s.sink),
		session.WithEfficiency(cfg.Engine.ChargeEfficiency),
	)
	s.handler = apisession.NewHandler(apisession.Deps{
		Engine:  s.Engine,
		Scorer:  s.Scorer,
		Catalog: s.Catalog,
		Store:   s.Store,
		Publish: s.bus.Publish,
		Token:   cfg.Server.APIToken,
		Logger:  logger.New("api"),
	})
	return s, nil
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler { return s.handler }

// Started is closed once Run listens and every consumer is subscribed.
func (s *Service) Started() <-chan struct{} { return s.started }

// Addr returns the listen address after Started is closed.
func (s *Service) Addr() net.Addr { return s.addr }

func (s *Service) recordCatalog(cat *corecatalog.Catalog) {
	rec, ok := s.sink.(coremetrics.CatalogRecorder)
	if !ok {
		return
	}
	if err := rec.RecordCatalogSize(cat.Len()); err != nil {
		s.log.Warnf("record catalog size: %v", err)
	}
}

// Run serves the API and background jobs until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if s.publisher != nil {
		done := s.bus.Consume(ctx, func(ctx context.Context, rec decisionlog.Record) {
			if err := s.publisher.PublishRecord(ctx, rec); err != nil {
				s.log.Errorf("publish decision %s: %v", rec.ID, err)
			}
		})
		wg.Add(1)
		go func() { defer wg.Done(); <-done }()
	}
	if s.cfg.Catalog.Watch {
		w := infracatalog.NewWatcher(s.cfg.Catalog.Path, s.Catalog, logger.New("catalog_watcher"), s.recordCatalog)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil {
				s.log.Errorf("catalog watcher: %v", err)
			}
		}()
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, addr, s.gatherer); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.addr = ln.Addr()
	s.log.Infof("serving API on %s", s.addr)
	close(s.started)

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		s.log.Warnf("api shutdown: %v", serr)
	}
	cancel()
	wg.Wait()
	return err
}

func (s *Service) closeStore() {
	if s.Store == nil {
		return
	}
	if err := s.Store.Close(); err != nil {
		s.log.Errorf("close decision log: %v", err)
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.bus.Close()
		s.closeStore()
		if p, ok := s.mqtt.(*mqtt.PahoClient); ok {
			p.Disconnect()
		}
		closeSinks(s.sink)
	})
	return nil
}

func closeSinks(sink coremetrics.MetricsSink) {
	if m, ok := sink.(*coremetrics.MultiSink); ok {
		for _, s := range m.Sinks {
			closeSinks(s)
		}
		return
	}
	if c, ok := sink.(interface{ Close() }); ok {
		c.Close()
	}
}
