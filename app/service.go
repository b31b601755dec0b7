// Package app wires the configured components into a runnable service.
package app

import (
	"context"
	"fmt"

	"github.com/chargescope/chargescope/config"
	"github.com/chargescope/chargescope/core/analytics"
	"github.com/chargescope/chargescope/core/logger"
	coremetrics "github.com/chargescope/chargescope/core/metrics"
	"github.com/chargescope/chargescope/core/scheduler"
	"github.com/chargescope/chargescope/core/store"
	"github.com/chargescope/chargescope/infra/ingest"
	infralogger "github.com/chargescope/chargescope/infra/logger"
	"github.com/chargescope/chargescope/infra/metrics"
	"github.com/chargescope/chargescope/infra/storage/postgres"
)

// Service orchestrates ingestion, scheduled analysis and metrics exposure.
type Service struct {
	Repo   store.Repository
	Engine *analytics.Engine

	sched       *scheduler.Scheduler
	ingestor    *ingest.Ingestor
	log         logger.Logger
	promEnabled bool
	promPort    string
	closers     []func() error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := infralogger.New("service")

	var repo store.Repository
	var closers []func() error
	switch cfg.Storage.Backend {
	case "postgres":
		pg, err := postgres.Connect(cfg.Storage.DSN, cfg.Storage.MaxOpenConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(context.Background()); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
	default:
		repo = store.NewMemoryRepository()
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
		if closer, ok := sink.(interface{ Close() }); ok {
			closers = append(closers, func() error { closer.Close(); return nil })
		}
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	engine := analytics.New(repo, cfg.Analytics, sink, infralogger.New("engine"))

	sched, err := scheduler.New(cfg.Scheduler, func(ctx context.Context) error {
		_, err := engine.RunCycle(ctx)
		return err
	}, infralogger.New("scheduler"))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	svc := &Service{
		Repo:        repo,
		Engine:      engine,
		sched:       sched,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
		closers:     closers,
	}
	if cfg.Ingest.Enabled {
		rec, _ := sink.(coremetrics.IngestRecorder)
		svc.ingestor = ingest.New(cfg.Ingest, repo, rec, infralogger.New("ingest"))
	}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.ingestor != nil {
		go func() {
			if err := s.ingestor.Start(ctx); err != nil && ctx.Err() == nil {
				s.log.Errorf("ingest: %v", err)
			}
		}()
	}
	err := s.sched.Start(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var first error
	if s.ingestor != nil {
		if err := s.ingestor.Close(); err != nil {
			first = err
		}
	}
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
